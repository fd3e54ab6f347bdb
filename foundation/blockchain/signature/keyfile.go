package signature

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ParseAlgorithm returns the algorithm with the name, ignoring case.
func ParseAlgorithm(name string) (Algorithm, error) {
	for _, alg := range []Algorithm{ECDSA, Schnorr, Ed25519} {
		if strings.EqualFold(alg.String(), name) {
			return alg, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// MarshalText implements the TextMarshaler interface.
func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements the TextUnmarshaler interface.
func (a *Algorithm) UnmarshalText(text []byte) error {
	alg, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = alg
	return nil
}

// KeyExtension returns the file extension used for private keys of the
// algorithm.
func (a Algorithm) KeyExtension() string {
	return "." + strings.ToLower(a.String())
}

// SaveKey writes the private key to the file as hex. ECDSA keys use the
// go-ethereum key file format.
func SaveKey(path string, alg Algorithm, privateKey []byte) error {
	if _, err := PublicKey(alg, privateKey); err != nil {
		return err
	}

	if alg == ECDSA {
		pk, err := crypto.ToECDSA(privateKey)
		if err != nil {
			return err
		}
		return crypto.SaveECDSA(path, pk)
	}

	return os.WriteFile(path, []byte(hexutil.Encode(privateKey)[2:]), 0600)
}

// LoadKey reads a private key saved by SaveKey. The algorithm is taken from
// the file extension.
func LoadKey(path string) (Algorithm, []byte, error) {
	alg, err := ParseAlgorithm(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return 0, nil, err
	}

	if alg == ECDSA {
		pk, err := crypto.LoadECDSA(path)
		if err != nil {
			return 0, nil, err
		}
		return alg, crypto.FromECDSA(pk), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, err
	}

	privateKey, err := hexutil.Decode("0x" + strings.TrimSpace(string(content)))
	if err != nil {
		return 0, nil, fmt.Errorf("decode key file %s: %w", path, err)
	}

	if _, err := PublicKey(alg, privateKey); err != nil {
		return 0, nil, err
	}

	return alg, privateKey, nil
}

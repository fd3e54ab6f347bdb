// Package signature provides the sign and verify capability used by the
// script engine. Keys and signatures are handled as raw bytes so scripts can
// carry them as stack items.
package signature

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/ethereum/go-ethereum/crypto"
)

// Algorithm identifies the signature scheme in use.
type Algorithm uint8

// Set of supported algorithms.
const (
	ECDSA   Algorithm = iota // secp256k1 ECDSA, 33 byte compressed public key, 64 byte R|S signature.
	Schnorr                  // BIP-340 schnorr over secp256k1, 32 byte public key, 64 byte signature.
	Ed25519                  // Ed25519, 32 byte seed as private key, 32 byte public key.
)

// ErrUnknownAlgorithm is returned when an algorithm is not supported.
var ErrUnknownAlgorithm = errors.New("unknown signature algorithm")

// String returns the name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case ECDSA:
		return "ECDSA"
	case Schnorr:
		return "SCHNORR"
	case Ed25519:
		return "ED25519"
	}
	return fmt.Sprintf("Algorithm(%d)", uint8(a))
}

// =============================================================================

// Verifier represents the behavior required to check a signature.
type Verifier interface {
	Verify(alg Algorithm, publicKey []byte, message []byte, sig []byte) bool
}

// VerifierFunc is an adapter to allow the use of ordinary functions as a
// Verifier.
type VerifierFunc func(alg Algorithm, publicKey []byte, message []byte, sig []byte) bool

// Verify calls f(alg, publicKey, message, sig).
func (f VerifierFunc) Verify(alg Algorithm, publicKey []byte, message []byte, sig []byte) bool {
	return f(alg, publicKey, message, sig)
}

// Default is the verifier backed by this package.
var Default Verifier = VerifierFunc(Verify)

// =============================================================================

// GenerateKey creates a new private key for the specified algorithm and
// returns the private and public key material.
func GenerateKey(alg Algorithm) (privateKey []byte, publicKey []byte, err error) {
	switch alg {
	case ECDSA:
		pk, err := crypto.GenerateKey()
		if err != nil {
			return nil, nil, err
		}
		return crypto.FromECDSA(pk), crypto.CompressPubkey(&pk.PublicKey), nil

	case Schnorr:
		pk, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, nil, err
		}
		return pk.Serialize(), schnorr.SerializePubKey(pk.PubKey()), nil

	case Ed25519:
		pub, pk, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, err
		}
		return pk.Seed(), pub, nil
	}

	return nil, nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, alg)
}

// PublicKey derives the public key material from the private key.
func PublicKey(alg Algorithm, privateKey []byte) ([]byte, error) {
	switch alg {
	case ECDSA:
		pk, err := crypto.ToECDSA(privateKey)
		if err != nil {
			return nil, err
		}
		return crypto.CompressPubkey(&pk.PublicKey), nil

	case Schnorr:
		if len(privateKey) != btcec.PrivKeyBytesLen {
			return nil, errors.New("invalid schnorr private key length")
		}
		_, pub := btcec.PrivKeyFromBytes(privateKey)
		return schnorr.SerializePubKey(pub), nil

	case Ed25519:
		if len(privateKey) != ed25519.SeedSize {
			return nil, errors.New("invalid ed25519 seed length")
		}
		pk := ed25519.NewKeyFromSeed(privateKey)
		return pk.Public().(ed25519.PublicKey), nil
	}

	return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, alg)
}

// Sign uses the specified private key to sign the message. ECDSA and schnorr
// require a 32 byte message digest.
func Sign(alg Algorithm, privateKey []byte, message []byte) ([]byte, error) {
	switch alg {
	case ECDSA:
		pk, err := crypto.ToECDSA(privateKey)
		if err != nil {
			return nil, err
		}

		sig, err := crypto.Sign(message, pk)
		if err != nil {
			return nil, err
		}

		// Drop the recovery id, the public key is supplied by the script.
		return sig[:crypto.RecoveryIDOffset], nil

	case Schnorr:
		if len(privateKey) != btcec.PrivKeyBytesLen {
			return nil, errors.New("invalid schnorr private key length")
		}

		pk, _ := btcec.PrivKeyFromBytes(privateKey)
		sig, err := schnorr.Sign(pk, message)
		if err != nil {
			return nil, err
		}
		return sig.Serialize(), nil

	case Ed25519:
		if len(privateKey) != ed25519.SeedSize {
			return nil, errors.New("invalid ed25519 seed length")
		}
		return ed25519.Sign(ed25519.NewKeyFromSeed(privateKey), message), nil
	}

	return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, alg)
}

// Verify checks the signature of the message against the public key.
// Malformed keys or signatures produce false.
func Verify(alg Algorithm, publicKey []byte, message []byte, sig []byte) bool {
	switch alg {
	case ECDSA:
		if len(sig) != crypto.RecoveryIDOffset || len(message) != crypto.DigestLength {
			return false
		}
		return crypto.VerifySignature(publicKey, message, sig)

	case Schnorr:
		pub, err := schnorr.ParsePubKey(publicKey)
		if err != nil {
			return false
		}
		s, err := schnorr.ParseSignature(sig)
		if err != nil {
			return false
		}
		return s.Verify(message, pub)

	case Ed25519:
		if len(publicKey) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(publicKey, message, sig)
	}

	return false
}

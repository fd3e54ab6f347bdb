// Package nameservice reads a folder of wallet key files and creates a name
// service lookup from public key hash to wallet name.
package nameservice

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/script"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NameService maintains a map of public key hashes for name lookup.
type NameService struct {
	names map[string]string
}

// New constructs a name service with the keys found under root. Files
// without a key extension are ignored.
func New(root string) (*NameService, error) {
	ns := NameService{
		names: make(map[string]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(fileName)
		if _, err := signature.ParseAlgorithm(strings.TrimPrefix(ext, ".")); err != nil {
			return nil
		}

		alg, privateKey, err := signature.LoadKey(fileName)
		if err != nil {
			return err
		}

		publicKey, err := signature.PublicKey(alg, privateKey)
		if err != nil {
			return err
		}

		pkh := hexutil.Encode(script.PublicKeyHash(publicKey))
		ns.names[pkh] = strings.TrimSuffix(filepath.Base(fileName), ext)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified public key hash. The hex of
// the hash is returned when no name is known.
func (ns *NameService) Lookup(pkh []byte) string {
	key := hexutil.Encode(pkh)
	name, exists := ns.names[key]
	if !exists {
		return key
	}
	return name
}

// Copy returns a copy of the map of public key hashes and names.
func (ns *NameService) Copy() map[string]string {
	cpy := make(map[string]string, len(ns.names))
	for pkh, name := range ns.names {
		cpy[pkh] = name
	}
	return cpy
}

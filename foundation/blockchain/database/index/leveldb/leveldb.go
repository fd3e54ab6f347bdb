// Package leveldb implements the chain index on top of goleveldb. Block
// hashes, transaction ids and spent out points are stored under their own
// key prefix.
package leveldb

import (
	"encoding/binary"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Key prefixes.
const (
	prefixBlock byte = 'b'
	prefixTx    byte = 't'
	prefixSpent byte = 's'
	prefixMeta  byte = 'm'
)

var keyCount = []byte{prefixMeta, 'c', 'o', 'u', 'n', 't'}

var options = opt.Options{
	Compression: opt.NoCompression,
}

// LevelDB represents the index implementation backed by a leveldb
// database. This implements the database.Index interface.
type LevelDB struct {
	ldb *leveldb.DB
}

// New opens the index at the specified path, creating it if it doesn't exist.
// A corrupted database is recovered.
func New(path string, evHandler func(v string, args ...any)) (*LevelDB, error) {
	ldb, err := leveldb.OpenFile(path, &options)

	if _, corrupted := err.(*ldbErrors.ErrCorrupted); corrupted {
		if evHandler != nil {
			evHandler("leveldb: New: corruption detected: path[%s]: %s", path, err)
		}

		ldb, err = leveldb.RecoverFile(path, &options)
		if err != nil {
			return nil, errors.Wrapf(err, "recovering %s", path)
		}

		if evHandler != nil {
			evHandler("leveldb: New: recovered from corruption: path[%s]", path)
		}
	}

	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}

	return &LevelDB{ldb: ldb}, nil
}

// Close closes the leveldb instance.
func (db *LevelDB) Close() error {
	return db.ldb.Close()
}

// IndexBlock records the block, its transactions and the out points it
// spends in one batch.
func (db *LevelDB) IndexBlock(loc database.BlockLocation, block database.Block) error {
	positions, spent, err := database.IndexEntries(block)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)

	hash := block.Hash()
	value := binary.LittleEndian.AppendUint64(nil, loc.Height)
	value = binary.LittleEndian.AppendUint64(value, loc.Offset)
	batch.Put(key(prefixBlock, hash[:]), value)

	for txID, pos := range positions {
		value := binary.LittleEndian.AppendUint64(nil, loc.Height)
		value = binary.LittleEndian.AppendUint32(value, pos)
		batch.Put(key(prefixTx, txID[:]), value)
	}

	for _, op := range spent {
		batch.Put(key(prefixSpent, op.Serialize()), nil)
	}

	batch.Put(keyCount, binary.LittleEndian.AppendUint64(nil, loc.Height+1))

	return errors.Wrap(db.ldb.Write(batch, nil), "writing batch")
}

// Block returns the location of the block with the specified hash.
func (db *LevelDB) Block(hash hashes.Hash) (database.BlockLocation, error) {
	value, err := db.get(key(prefixBlock, hash[:]), 16)
	if err != nil {
		return database.BlockLocation{}, err
	}

	loc := database.BlockLocation{
		Height: binary.LittleEndian.Uint64(value),
		Offset: binary.LittleEndian.Uint64(value[8:]),
	}

	return loc, nil
}

// Transaction returns the location of the transaction with the specified id.
func (db *LevelDB) Transaction(txID hashes.Hash) (database.TxLocation, error) {
	value, err := db.get(key(prefixTx, txID[:]), 12)
	if err != nil {
		return database.TxLocation{}, err
	}

	loc := database.TxLocation{
		Height:   binary.LittleEndian.Uint64(value),
		Position: binary.LittleEndian.Uint32(value[8:]),
	}

	return loc, nil
}

// IsSpent reports whether an indexed transaction spends the out point.
func (db *LevelDB) IsSpent(op database.OutPoint) (bool, error) {
	return db.ldb.Has(key(prefixSpent, op.Serialize()), nil)
}

// Count returns the number of blocks indexed.
func (db *LevelDB) Count() (uint64, error) {
	value, err := db.get(keyCount, 8)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(value), nil
}

// Reset removes every entry from the index.
func (db *LevelDB) Reset() error {
	batch := new(leveldb.Batch)

	iter := db.ldb.NewIterator(nil, nil)
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}
	iter.Release()

	if err := iter.Error(); err != nil {
		return errors.Wrap(err, "iterating keys")
	}

	return errors.Wrap(db.ldb.Write(batch, nil), "deleting keys")
}

// get reads a value that must be exactly size bytes.
func (db *LevelDB) get(k []byte, size int) ([]byte, error) {
	value, err := db.ldb.Get(k, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, database.ErrNotFound
		}
		return nil, errors.Wrap(err, "reading key")
	}

	if len(value) != size {
		return nil, errors.Wrapf(database.ErrCorrupted, "value for key %x is %d bytes, exp %d", k, len(value), size)
	}

	return value, nil
}

func key(prefix byte, id []byte) []byte {
	return append([]byte{prefix}, id...)
}

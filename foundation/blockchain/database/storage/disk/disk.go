// Package disk implements the ability to read and write blocks to disk. Blocks
// are appended to a single data file and the length of every block is
// appended to an index file, so any block can be read without scanning the
// ones before it.
package disk

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Names of the files kept in the storage directory.
const (
	DataFile  = "blocks.dat"
	IndexFile = "blocks.idx"
)

const lengthSize = 4

// Disk represents the storage implementation for reading and storing blocks
// on disk. This implements the database.Storage interface.
type Disk struct {
	mu      sync.RWMutex
	dbPath  string
	data    *os.File
	index   *os.File
	offsets []int64 // Offset of each block in the data file.
	lengths []int64 // Length of each block in the data file.
}

// New opens or creates the block files in the specified directory. The
// length index is loaded and checked against the size of the data file.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	data, err := os.OpenFile(filepath.Join(dbPath, DataFile), os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}

	index, err := os.OpenFile(filepath.Join(dbPath, IndexFile), os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		data.Close()
		return nil, err
	}

	d := Disk{
		dbPath: dbPath,
		data:   data,
		index:  index,
	}

	if err := d.load(); err != nil {
		d.Close()
		return nil, err
	}

	return &d, nil
}

// load reads the length index and computes the offset of every block.
func (d *Disk) load() error {
	raw, err := os.ReadFile(filepath.Join(d.dbPath, IndexFile))
	if err != nil {
		return err
	}

	if len(raw)%lengthSize != 0 {
		return fmt.Errorf("%w: index file size %d is not a multiple of %d", database.ErrCorrupted, len(raw), lengthSize)
	}

	var offset int64
	for i := 0; i < len(raw); i += lengthSize {
		length := int64(binary.LittleEndian.Uint32(raw[i:]))
		d.offsets = append(d.offsets, offset)
		d.lengths = append(d.lengths, length)
		offset += length
	}

	info, err := d.data.Stat()
	if err != nil {
		return err
	}

	if info.Size() != offset {
		return fmt.Errorf("%w: data file size %d, index accounts for %d", database.ErrCorrupted, info.Size(), offset)
	}

	return nil
}

// Close closes the block files.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dataErr := d.data.Close()
	indexErr := d.index.Close()

	if dataErr != nil {
		return dataErr
	}
	return indexErr
}

// Write appends the block to the data file and its length to the index.
func (d *Disk) Write(block database.Block) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var offset int64
	if l := len(d.offsets); l > 0 {
		offset = d.offsets[l-1] + d.lengths[l-1]
	}

	raw := block.Serialize()
	if _, err := d.data.WriteAt(raw, offset); err != nil {
		return err
	}

	length := binary.LittleEndian.AppendUint32(nil, uint32(len(raw)))
	if _, err := d.index.WriteAt(length, int64(len(d.offsets)*lengthSize)); err != nil {
		return err
	}

	if err := d.data.Sync(); err != nil {
		return err
	}
	if err := d.index.Sync(); err != nil {
		return err
	}

	d.offsets = append(d.offsets, offset)
	d.lengths = append(d.lengths, int64(len(raw)))

	return nil
}

// GetBlock reads the block at the specified height.
func (d *Disk) GetBlock(height uint64) (database.Block, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if height >= uint64(len(d.offsets)) {
		return database.Block{}, fmt.Errorf("block %d: %w", height, database.ErrNotFound)
	}

	raw := make([]byte, d.lengths[height])
	if _, err := d.data.ReadAt(raw, d.offsets[height]); err != nil {
		return database.Block{}, fmt.Errorf("%w: block %d: %s", database.ErrCorrupted, height, err)
	}

	block, err := database.DecodeBlock(raw)
	if err != nil {
		return database.Block{}, fmt.Errorf("%w: block %d: %s", database.ErrCorrupted, height, err)
	}

	return block, nil
}

// Latest returns the most recently written block.
func (d *Disk) Latest() (database.Block, error) {
	count := d.Count()
	if count == 0 {
		return database.Block{}, database.ErrNotFound
	}

	return d.GetBlock(count - 1)
}

// Count returns the number of blocks stored.
func (d *Disk) Count() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return uint64(len(d.offsets))
}

// ForEach returns an iterator to walk through all the blocks starting
// with the latest block.
func (d *Disk) ForEach() database.Iterator {
	return &diskIterator{disk: d, next: int64(d.Count()) - 1}
}

// Reset will clear out the blockchain on disk.
func (d *Disk) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.data.Truncate(0); err != nil {
		return err
	}
	if err := d.index.Truncate(0); err != nil {
		return err
	}

	d.offsets = nil
	d.lengths = nil

	return nil
}

// =============================================================================

// diskIterator represents the iteration implementation for walking
// backwards through the blocks on disk. This implements the database
// Iterator interface.
type diskIterator struct {
	disk *Disk // Access to the storage API.
	next int64 // Height of the next block to return.
	eoc  bool  // Represents the iterator is at the end of the chain.
}

// Next retrieves the next older block from disk.
func (di *diskIterator) Next() (database.Block, error) {
	if di.eoc || di.next < 0 {
		di.eoc = true
		return database.Block{}, database.ErrEndOfChain
	}

	block, err := di.disk.GetBlock(uint64(di.next))
	di.next--

	return block, err
}

// Done returns the end of chain value.
func (di *diskIterator) Done() bool {
	return di.eoc
}

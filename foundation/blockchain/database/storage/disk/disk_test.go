package disk_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func chain(n int) []database.Block {
	blocks := []database.Block{database.Genesis()}
	for i := 1; i < n; i++ {
		blocks = append(blocks, database.NewRawBlock(blocks[i-1].Hash(), [4]byte{32, 0, 0, 255}, []byte{byte(i), 'x'}))
	}
	return blocks
}

func Test_Disk(t *testing.T) {
	dir := t.TempDir()
	blocks := chain(4)

	t.Log("Given the need to store blocks on disk.")
	{
		d, err := disk.New(dir)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open the storage: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to open the storage.", success)

		for _, b := range blocks {
			if err := d.Write(b); err != nil {
				t.Fatalf("\t%s\tShould be able to write a block: %s", failed, err)
			}
		}
		t.Logf("\t%s\tShould be able to write blocks.", success)

		if err := d.Close(); err != nil {
			t.Fatalf("\t%s\tShould be able to close the storage: %s", failed, err)
		}

		d, err = disk.New(dir)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to reopen the storage: %s", failed, err)
		}
		defer d.Close()

		if d.Count() != uint64(len(blocks)) {
			t.Fatalf("\t%s\tShould have %d blocks after reopen: got %d", failed, len(blocks), d.Count())
		}
		t.Logf("\t%s\tShould have every block after reopen.", success)

		for i, b := range blocks {
			got, err := d.GetBlock(uint64(i))
			if err != nil || !got.Equal(b) {
				t.Fatalf("\t%s\tShould read back block %d: %v", failed, i, err)
			}
		}
		t.Logf("\t%s\tShould read back every block.", success)

		latest, err := d.Latest()
		if err != nil || latest.Hash() != blocks[len(blocks)-1].Hash() {
			t.Fatalf("\t%s\tShould return the latest block: %v", failed, err)
		}
		t.Logf("\t%s\tShould return the latest block.", success)

		var seen []hashes.Hash
		iter := d.ForEach()
		for b, err := iter.Next(); !iter.Done(); b, err = iter.Next() {
			if err != nil {
				t.Fatalf("\t%s\tShould be able to iterate: %s", failed, err)
			}
			seen = append(seen, b.Hash())
		}
		if len(seen) != len(blocks) || seen[0] != blocks[len(blocks)-1].Hash() || seen[len(seen)-1] != blocks[0].Hash() {
			t.Fatalf("\t%s\tShould iterate newest first.", failed)
		}
		t.Logf("\t%s\tShould iterate newest first.", success)

		if _, err := d.GetBlock(99); !errors.Is(err, database.ErrNotFound) {
			t.Fatalf("\t%s\tShould report missing blocks: %v", failed, err)
		}
		t.Logf("\t%s\tShould report missing blocks.", success)

		if err := d.Reset(); err != nil || d.Count() != 0 {
			t.Fatalf("\t%s\tShould be able to reset: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to reset.", success)
	}
}

func Test_DiskCorrupted(t *testing.T) {
	dir := t.TempDir()

	t.Log("Given the need to detect corrupted block files.")
	{
		d, err := disk.New(dir)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open the storage: %s", failed, err)
		}
		for _, b := range chain(2) {
			if err := d.Write(b); err != nil {
				t.Fatalf("\t%s\tShould be able to write a block: %s", failed, err)
			}
		}
		d.Close()

		path := filepath.Join(dir, disk.DataFile)
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to stat the data file: %s", failed, err)
		}
		if err := os.Truncate(path, info.Size()-1); err != nil {
			t.Fatalf("\t%s\tShould be able to truncate the data file: %s", failed, err)
		}

		if _, err := disk.New(dir); !errors.Is(err, database.ErrCorrupted) {
			t.Fatalf("\t%s\tShould refuse to open a truncated data file: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse to open a truncated data file.", success)
	}
}

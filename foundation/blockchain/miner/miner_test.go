package miner_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/miner"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func header(bits [4]byte) database.BlockHeader {
	return database.BlockHeader{
		Version:    database.BlockVersion,
		PrevHash:   hashes.Hash256([]byte("previous")),
		MerkleRoot: hashes.Hash256([]byte("data")),
		Bits:       bits,
		Nonce:      12345,
	}
}

// =============================================================================

func Test_Mine(t *testing.T) {
	type table struct {
		name    string
		bits    [4]byte
		workers int
	}

	tt := []table{
		{"easy-1", [4]byte{31, 0, 0, 255}, 1},
		{"easy-4", [4]byte{31, 0, 0, 255}, 4},
		{"harder-default", [4]byte{30, 0, 0, 255}, 0},
	}

	t.Log("Given the need to mine block headers.")
	{
		for testID, test := range tt {
			f := func(t *testing.T) {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				before := uint32(time.Now().UTC().Unix())

				h, found, err := miner.Mine(ctx, header(test.bits), miner.Options{Workers: test.workers})
				if err != nil || !found {
					t.Fatalf("\t%s\tTest %d:\tShould find a solution: found[%v]: %v", failed, testID, found, err)
				}
				t.Logf("\t%s\tTest %d:\tShould find a solution.", success, testID)

				tgt, err := h.Target()
				if err != nil || !tgt.IsValid(h.Hash()) {
					t.Fatalf("\t%s\tTest %d:\tShould return a header satisfying the target.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould return a header satisfying the target.", success, testID)

				if h.Timestamp < before || h.PrevHash != header(test.bits).PrevHash {
					t.Fatalf("\t%s\tTest %d:\tShould stamp a fresh timestamp and keep the rest of the header.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould stamp a fresh timestamp and keep the rest of the header.", success, testID)
			}

			t.Run(test.name, f)
		}
	}
}

func Test_MineBlock(t *testing.T) {
	t.Log("Given the need to mine complete blocks.")
	{
		b := database.NewRawBlock(database.Genesis().Hash(), [4]byte{31, 0, 0, 255}, []byte("block"))

		mined, found, err := miner.MineBlock(context.Background(), b, miner.Options{Workers: 2})
		if err != nil || !found {
			t.Fatalf("\t%s\tShould mine the block: %v", failed, err)
		}
		if !mined.IsValid(database.Genesis().Hash()) {
			t.Fatalf("\t%s\tShould produce a valid block: %v", failed, mined.Validate(database.Genesis().Hash()))
		}
		t.Logf("\t%s\tShould produce a valid block.", success)

		b.Header.Bits = [4]byte{1, 0, 0, 0}
		if _, _, err := miner.MineBlock(context.Background(), b, miner.Options{}); err == nil {
			t.Fatalf("\t%s\tShould reject malformed bits.", failed)
		}
		t.Logf("\t%s\tShould reject malformed bits.", success)
	}
}

func Test_Cancel(t *testing.T) {
	t.Log("Given the need to cancel mining.")
	{
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, found, err := miner.Mine(ctx, header([4]byte{3, 0, 0, 1}), miner.Options{Workers: 2})
		if err != nil || found {
			t.Fatalf("\t%s\tShould report no solution and no error: found[%v]: %v", failed, found, err)
		}
		t.Logf("\t%s\tShould report no solution and no error.", success)

		if time.Since(start) > 5*time.Second {
			t.Fatalf("\t%s\tShould stop promptly after cancellation: %s", failed, time.Since(start))
		}
		t.Logf("\t%s\tShould stop promptly after cancellation.", success)
	}
}

func Test_Restart(t *testing.T) {
	defer miner.SetNonceSpace(16)()

	var mu sync.Mutex
	var restarts int
	ev := func(v string, args ...any) {
		if strings.Contains(v, "restarting") {
			mu.Lock()
			restarts++
			mu.Unlock()
		}
	}

	t.Log("Given the need to restart mining when the nonce space is exhausted.")
	{
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		_, found, err := miner.Mine(ctx, header([4]byte{3, 0, 0, 1}), miner.Options{Workers: 2, EvHandler: ev})
		if err != nil || found {
			t.Fatalf("\t%s\tShould not find a solution: found[%v]: %v", failed, found, err)
		}

		mu.Lock()
		defer mu.Unlock()
		if restarts == 0 {
			t.Fatalf("\t%s\tShould restart with a new timestamp.", failed)
		}
		t.Logf("\t%s\tShould restart with a new timestamp: restarts[%d].", success, restarts)
	}
}

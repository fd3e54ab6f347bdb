package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Verify walks the chain checking every block against its predecessor.
func Verify(db *database.Database) error {
	if err := db.VerifyChainErr(); err != nil {
		return err
	}

	fmt.Printf("Chain OK: Height: %d  Latest: %s\n", db.Height(), db.LatestBlock().Hash())
	return nil
}

// Blocks prints the latest blocks, newest first. The default is all blocks.
func Blocks(args []string, db *database.Database) error {
	count := -1
	if len(args) == 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		count = n
	}

	height := db.Height()
	iter := db.ForEach()
	for i := 0; count < 0 || i < count; i++ {
		block, err := iter.Next()
		if iter.Done() {
			break
		}
		if err != nil {
			return err
		}

		printBlock(height, block)
		height--
	}

	return nil
}

// Block prints the block at the specified height including its transactions.
func Block(args []string, db *database.Database) error {
	if len(args) != 3 {
		return errors.New("usage: block <height>")
	}

	height, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("height: %w", err)
	}

	block, err := db.GetBlock(height)
	if err != nil {
		return err
	}

	printBlock(height, block)

	if block.Type != database.BlockTypeTransactions {
		fmt.Printf("  Data: %x\n", block.Data)
		return nil
	}

	txs, err := block.Transactions()
	if err != nil {
		return err
	}

	for _, tx := range txs {
		printTransaction(tx)
	}

	return nil
}

func printBlock(height uint64, block database.Block) {
	fmt.Printf("Height: %d  Hash: %s  Type: %s  Time: %d  Nonce: %d  Len: %d\n",
		height, block.Hash(), block.Type, block.Header.Timestamp, block.Header.Nonce, block.DataLength)
}

package commands

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/script"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Transaction prints a committed transaction and where it was included.
func Transaction(args []string, db *database.Database) error {
	if len(args) != 3 {
		return errors.New("usage: tx <id>")
	}

	txID, err := hashes.FromHex(args[2])
	if err != nil {
		return err
	}

	tx, height, err := db.LookupTransaction(txID)
	if err != nil {
		return err
	}

	fmt.Printf("Included At Height: %d\n", height)
	printTransaction(tx)

	for vout := range tx.Outputs {
		spent, err := db.IsSpent(database.OutPoint{TxID: txID, Vout: uint32(vout)})
		if err != nil {
			return err
		}
		fmt.Printf("  Output %d Spent: %t\n", vout, spent)
	}

	return nil
}

// Disasm prints the opcodes of a hex encoded script.
func Disasm(args []string) error {
	if len(args) != 3 {
		return errors.New("usage: disasm <hex>")
	}

	raw, err := hexutil.Decode(args[2])
	if err != nil {
		return err
	}

	asm, err := script.Disassemble(raw)
	if err != nil {
		return err
	}

	fmt.Println(asm)
	return nil
}

func printTransaction(tx database.Transaction) {
	fmt.Printf("  Tx: %s  Coinbase: %t  LockTime: %d\n", tx.ID(), tx.IsCoinbase(), tx.LockTime)

	for i, in := range tx.Inputs {
		asm, err := script.Disassemble(in.UnlockingScript)
		if err != nil {
			asm = err.Error()
		}
		fmt.Printf("    In  %d: %s  [%s]\n", i, in.OutPoint(), asm)
	}

	for i, out := range tx.Outputs {
		asm, err := script.Disassemble(out.LockingScript)
		if err != nil {
			asm = err.Error()
		}
		fmt.Printf("    Out %d: %d  [%s]\n", i, out.Amount, asm)
	}
}

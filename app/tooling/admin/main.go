// This program performs administrative tasks against a node's block files.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/ledger/app/tooling/admin/commands"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/index/leveldb"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/ledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

// dbPath is used when ADMIN_DB_PATH is not set.
const dbPath = "zblock/miner1/"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	if len(os.Args) < 2 {
		return errors.New("usage: admin verify | blocks [count] | block <height> | tx <id> | disasm <hex>")
	}

	// Disassembly does not need the block files.
	if os.Args[1] == "disasm" {
		return commands.Disasm(os.Args)
	}

	path := dbPath
	if v := os.Getenv("ADMIN_DB_PATH"); v != "" {
		path = v
	}

	log.Infow("startup", "status", "opening database", "path", path, "version", build)

	ev := func(v string, args ...any) {
		log.Debugw(fmt.Sprintf(v, args...))
	}

	strg, err := disk.New(path)
	if err != nil {
		return err
	}

	index, err := leveldb.New(filepath.Join(path, "index"), ev)
	if err != nil {
		strg.Close()
		return err
	}

	db, err := database.New(strg, index, ev)
	if err != nil {
		strg.Close()
		index.Close()
		return err
	}
	defer db.Close()

	return processCommands(os.Args, db)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, db *database.Database) error {
	switch args[1] {
	case "verify":
		if err := commands.Verify(db); err != nil {
			return fmt.Errorf("verifying chain: %w", err)
		}
	case "blocks":
		if err := commands.Blocks(args, db); err != nil {
			return fmt.Errorf("getting blocks: %w", err)
		}
	case "block":
		if err := commands.Block(args, db); err != nil {
			return fmt.Errorf("getting block: %w", err)
		}
	case "tx":
		if err := commands.Transaction(args, db); err != nil {
			return fmt.Errorf("getting transaction: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}

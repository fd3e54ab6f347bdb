package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := getPrivateKeyPath()
		if err != nil {
			log.Fatal(err)
		}

		if _, err := os.Stat(path); err == nil {
			log.Fatalf("key file %s already exists", path)
		}

		alg, err := signature.ParseAlgorithm(algorithm)
		if err != nil {
			log.Fatal(err)
		}

		privateKey, _, err := signature.GenerateKey(alg)
		if err != nil {
			log.Fatal(err)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			log.Fatal(err)
		}

		if err := signature.SaveKey(path, alg, privateKey); err != nil {
			log.Fatal(err)
		}

		fmt.Println(path)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

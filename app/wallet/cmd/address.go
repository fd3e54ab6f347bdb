package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/ledger/foundation/blockchain/script"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

// addressCmd represents the address command
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the public key hash and locking script for the specific wallet",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := getPrivateKeyPath()
		if err != nil {
			log.Fatal(err)
		}

		alg, privateKey, err := signature.LoadKey(path)
		if err != nil {
			log.Fatal(err)
		}

		publicKey, err := signature.PublicKey(alg, privateKey)
		if err != nil {
			log.Fatal(err)
		}

		pkh := script.PublicKeyHash(publicKey)
		lock, err := script.LockP2PKH(alg, pkh)
		if err != nil {
			log.Fatal(err)
		}

		asm, err := script.Disassemble(lock)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Printf("Algorithm:  %s\n", alg)
		fmt.Printf("Public Key: %s\n", hexutil.Encode(publicKey))
		fmt.Printf("Address:    %s\n", hexutil.Encode(pkh))
		fmt.Printf("Lock:       %s\n", hexutil.Encode(lock))
		fmt.Printf("Lock Asm:   %s\n", asm)
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
}

// Package cmd contains wallet app
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var (
	privateKeyName string
	walletPath     string
	algorithm      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Your simple wallet",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&privateKeyName, "wallet", "w", "private", "Name of the private key.")
	rootCmd.PersistentFlags().StringVarP(&walletPath, "wallet-path", "p", "zblock/wallets/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringVarP(&algorithm, "alg", "a", "ecdsa", "Signature algorithm: ecdsa, schnorr or ed25519.")
}

// getPrivateKeyPath returns the key file for the wallet. The extension
// selects the signature algorithm.
func getPrivateKeyPath() (string, error) {
	alg, err := signature.ParseAlgorithm(algorithm)
	if err != nil {
		return "", err
	}

	name := privateKeyName
	if !strings.HasSuffix(name, alg.KeyExtension()) {
		name += alg.KeyExtension()
	}

	return filepath.Join(walletPath, name), nil
}

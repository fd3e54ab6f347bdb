// This program manages signing keys and builds transactions for a node.
package main

import "github.com/ardanlabs/ledger/app/wallet/cmd"

func main() {
	cmd.Execute()
}

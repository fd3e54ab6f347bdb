package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/ardanlabs/ledger/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/script"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var (
	url      string
	prevTx   string
	vout     uint32
	to       string
	toAlg    string
	value    uint64
	change   uint64
	lockTime uint32
	dryRun   bool
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Spend a pay to public key hash output owned by the wallet",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := getPrivateKeyPath()
		if err != nil {
			log.Fatal(err)
		}

		alg, privateKey, err := signature.LoadKey(path)
		if err != nil {
			log.Fatal(err)
		}

		tx, err := buildSpend(alg, privateKey)
		if err != nil {
			log.Fatal(err)
		}

		raw := tx.Serialize()
		fmt.Printf("Tx ID: %s\n", tx.ID())

		if dryRun {
			fmt.Println(hexutil.Encode(raw))
			return
		}

		if err := submit(raw); err != nil {
			log.Fatal(err)
		}
	},
}

// buildSpend constructs and signs a transaction spending a single output.
// Any change is locked back to the wallet.
func buildSpend(alg signature.Algorithm, privateKey []byte) (database.Transaction, error) {
	prevTxID, err := hashes.FromHex(prevTx)
	if err != nil {
		return database.Transaction{}, fmt.Errorf("prev tx: %w", err)
	}

	publicKey, err := signature.PublicKey(alg, privateKey)
	if err != nil {
		return database.Transaction{}, err
	}

	toPKH, err := hexutil.Decode(to)
	if err != nil {
		return database.Transaction{}, fmt.Errorf("to: %w", err)
	}

	recipientAlg, err := signature.ParseAlgorithm(toAlg)
	if err != nil {
		return database.Transaction{}, err
	}

	toLock, err := script.LockP2PKH(recipientAlg, toPKH)
	if err != nil {
		return database.Transaction{}, err
	}

	tx := database.Transaction{
		Version: database.TxVersion,
		Inputs: []database.TxInput{
			{PrevTxID: prevTxID, Vout: vout},
		},
		Outputs: []database.TxOutput{
			{Amount: value, LockingScript: toLock},
		},
		LockTime: lockTime,
	}

	if change > 0 {
		changeLock, err := script.LockP2PKH(alg, script.PublicKeyHash(publicKey))
		if err != nil {
			return database.Transaction{}, err
		}
		tx.Outputs = append(tx.Outputs, database.TxOutput{Amount: change, LockingScript: changeLock})
	}

	sigHash := tx.SignatureHash()
	sig, err := signature.Sign(alg, privateKey, sigHash[:])
	if err != nil {
		return database.Transaction{}, err
	}

	unlock, err := script.UnlockP2PKH(sig, publicKey)
	if err != nil {
		return database.Transaction{}, err
	}
	tx.Inputs[0].UnlockingScript = unlock

	return tx, nil
}

func submit(raw []byte) error {
	data, err := json.Marshal(public.SubmitTx{Tx: raw})
	if err != nil {
		return err
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("submit: status %d: %s", resp.StatusCode, body)
	}

	fmt.Println(string(body))
	return nil
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().StringVarP(&prevTx, "prev", "i", "", "Id of the transaction holding the output to spend.")
	sendCmd.MarkFlagRequired("prev")
	sendCmd.Flags().Uint32VarP(&vout, "vout", "o", 0, "Index of the output to spend.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Public key hash of the recipient.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.Flags().StringVar(&toAlg, "to-alg", "ecdsa", "Signature algorithm of the recipient.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.Flags().Uint64VarP(&change, "change", "c", 0, "Value to return to the wallet.")
	sendCmd.Flags().Uint32VarP(&lockTime, "lock-time", "l", 0, "Lock time of the transaction.")
	sendCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the signed transaction without submitting it.")
}

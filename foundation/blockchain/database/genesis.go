package database

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// genesisHex is the serialized first block of every chain. It is a RAW block
// with a zero previous hash, version 1, timestamp 2024-01-01T00:00:00Z, bits
// 0x200000ff and nonce 0.
const genesisHex = "0x" +
	"00" + "37000000" +
	"01000000" +
	"0000000000000000000000000000000000000000000000000000000000000000" +
	"fc0c2675e4c810fd674f75e4aeb642ec4cc12b4e7752dbd83ca3cb28d679b236" +
	"80009265" +
	"200000ff" +
	"00000000" +
	"6c65646765722067656e6573697320323032342d30312d30313a2074686520666972737420626c6f636b206f662074686520636861696e"

// GenesisBytes is the serialized genesis block.
var GenesisBytes = hexutil.MustDecode(genesisHex)

var genesisBlock = func() Block {
	b, err := DecodeBlock(GenesisBytes)
	if err != nil {
		panic(err)
	}
	return b
}()

// Genesis returns the fixed first block of the chain.
func Genesis() Block {
	b := genesisBlock
	b.Data = append([]byte{}, genesisBlock.Data...)
	return b
}

// IsGenesis reports whether the block is the genesis block.
func IsGenesis(b Block) bool {
	return bytes.Equal(b.Serialize(), GenesisBytes)
}

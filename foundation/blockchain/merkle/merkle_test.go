// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.

package merkle_test

import (
	"crypto/sha256"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"pgregory.net/rapid"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Data uses the double sha256 hashing algorithm for the merkle tree.
type Data struct {
	x string
}

// Hash hashes the values using double sha256.
func (d Data) Hash() hashes.Hash {
	return hashes.Hash256([]byte(d.x))
}

// =============================================================================

func Test_NewTree(t *testing.T) {
	for i := 0; i < len(table); i++ {
		tree, err := merkle.NewTreeFromValues(table[i].data)
		if err != nil {
			t.Fatalf("[case:%d] error: unexpected error: %v", table[i].testCaseId, err)
		}
		if tree.RootHex() != table[i].expectedHash {
			t.Errorf("[case:%d] error: expected hash equal to %v got %v", table[i].testCaseId, table[i].expectedHash, tree.RootHex())
		}
		if tree.LeafCount() != len(table[i].data) {
			t.Errorf("[case:%d] error: expected %d leaves got %d", table[i].testCaseId, len(table[i].data), tree.LeafCount())
		}
	}
}

func Test_DegenerateTrees(t *testing.T) {
	t.Log("Given the need to handle empty and single leaf trees.")
	{
		tree, err := merkle.NewTree(nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build an empty tree: %v", failed, err)
		}
		if tree.MerkleRoot != hashes.ZeroHash {
			t.Fatalf("\t%s\tShould have a zero root for an empty tree.", failed)
		}
		t.Logf("\t%s\tShould have a zero root for an empty tree.", success)

		leaf := hashes.Hash256([]byte("only"))
		tree, err = merkle.NewTree([]hashes.Hash{leaf})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build a single leaf tree: %v", failed, err)
		}
		if tree.MerkleRoot != leaf {
			t.Fatalf("\t%s\tShould use the leaf as the root.", failed)
		}
		t.Logf("\t%s\tShould use the leaf as the root.", success)

		proof, err := tree.Proof(0)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to get a proof: %v", failed, err)
		}
		if len(proof) != 0 || !tree.Validate(leaf, proof) {
			t.Fatalf("\t%s\tShould validate the empty proof.", failed)
		}
		t.Logf("\t%s\tShould validate the empty proof.", success)
	}
}

func Test_HashStrategy(t *testing.T) {
	single := func(b []byte) hashes.Hash { return sha256.Sum256(b) }

	a := hashes.Hash256([]byte("a"))
	b := hashes.Hash256([]byte("b"))

	tree, err := merkle.NewTree([]hashes.Hash{a, b}, merkle.WithHashStrategy(single))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exp := single(append(a[:], b[:]...))
	if tree.MerkleRoot != exp {
		t.Fatalf("expected hash equal to %v got %v", exp, tree.MerkleRoot)
	}
}

func Test_Verify(t *testing.T) {
	for i := 0; i < len(table); i++ {
		tree, err := merkle.NewTreeFromValues(table[i].data)
		if err != nil {
			t.Fatalf("[case:%d] error: unexpected error: %v", table[i].testCaseId, err)
		}
		if err := tree.Verify(); err != nil {
			t.Errorf("[case:%d] error: expected tree to be valid: %v", table[i].testCaseId, err)
		}

		tree.MerkleRoot[0] ^= 0xff
		if err := tree.Verify(); err == nil {
			t.Errorf("[case:%d] error: expected tree to be invalid", table[i].testCaseId)
		}

		if err := tree.Rebuild(); err != nil {
			t.Fatalf("[case:%d] error: unexpected error: %v", table[i].testCaseId, err)
		}
		if tree.RootHex() != table[i].expectedHash {
			t.Errorf("[case:%d] error: expected rebuilt hash equal to %v got %v", table[i].testCaseId, table[i].expectedHash, tree.RootHex())
		}
	}
}

func Test_ProofRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 70).Draw(rt, "count")

		leaves := make([]hashes.Hash, count)
		for i := range leaves {
			leaves[i] = hashes.Hash256([]byte{byte(i), byte(i >> 8), 0x4c})
		}

		tree, err := merkle.NewTree(leaves)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}

		index := rapid.IntRange(0, count-1).Draw(rt, "index")
		proof, err := tree.Proof(index)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}

		if !tree.Validate(leaves[index], proof) {
			rt.Fatalf("expected proof for leaf %d of %d to validate", index, count)
		}

		bad := leaves[index]
		bad[rapid.IntRange(0, hashes.Size-1).Draw(rt, "leafByte")] ^= 0x01
		if tree.Validate(bad, proof) {
			rt.Fatalf("expected corrupted leaf %d of %d to fail", index, count)
		}

		if len(proof) > 0 {
			step := rapid.IntRange(0, len(proof)-1).Draw(rt, "step")
			corrupt := make(merkle.Proof, len(proof))
			copy(corrupt, proof)
			corrupt[step].Hash[rapid.IntRange(0, hashes.Size-1).Draw(rt, "proofByte")] ^= 0x01
			if tree.Validate(leaves[index], corrupt) {
				rt.Fatalf("expected corrupted proof step %d to fail", step)
			}
		}
	})
}

func Test_ProofLength(t *testing.T) {
	t.Log("Given the need to produce proofs of ceil(log2(n)) steps.")
	{
		exp := []int{0, 1, 2, 2, 3, 3, 3, 3, 4}
		for n := 1; n <= len(exp); n++ {
			leaves := make([]hashes.Hash, n)
			for i := range leaves {
				leaves[i] = hashes.Hash256([]byte{byte(i)})
			}

			tree, err := merkle.NewTree(leaves)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build the tree: %v", failed, n, err)
			}

			for i := 0; i < n; i++ {
				proof, err := tree.Proof(i)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to get proof %d: %v", failed, n, i, err)
				}
				if len(proof) != exp[n-1] {
					t.Fatalf("\t%s\tTest %d:\tShould have %d steps, got %d.", failed, n, exp[n-1], len(proof))
				}
			}
			t.Logf("\t%s\tTest %d:\tShould have %d steps.", success, n, exp[n-1])

			if _, err := tree.Proof(n); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject an out of range index.", failed, n)
			}
		}
	}
}

func Test_String(t *testing.T) {
	for i := 0; i < len(table); i++ {
		tree, err := merkle.NewTreeFromValues(table[i].data)
		if err != nil {
			t.Fatalf("[case:%d] error: unexpected error: %v", table[i].testCaseId, err)
		}
		if tree.String() == "" {
			t.Errorf("[case:%d] error: expected not empty string", table[i].testCaseId)
		}
	}
}

// =============================================================================

var table = []struct {
	testCaseId   int
	data         []Data
	expectedHash string
}{
	{
		testCaseId:   1,
		data:         []Data{{x: "Hello"}, {x: "Hi"}},
		expectedHash: "0xa9c2ba16acc0943de7469fd2a616f2ca98711920711c980bb7509ccf8b1f6ead",
	},
	{
		testCaseId:   2,
		data:         []Data{{x: "Hello"}, {x: "Hi"}, {x: "Hey"}},
		expectedHash: "0x8db0234aa06bee17136512a3ba3649865ff049483f9a701050ba7997489f5409",
	},
	{
		testCaseId:   3,
		data:         []Data{{x: "Hello"}, {x: "Hi"}, {x: "Hey"}, {x: "Hola"}},
		expectedHash: "0x8b69e34b174ab50276be1dd371ebf50731ab38acce5c96a63d7c9d76109e2557",
	},
	{
		testCaseId:   4,
		data:         []Data{{x: "Hello"}, {x: "Hi"}, {x: "Hey"}, {x: "Hola"}, {x: "Greetings"}},
		expectedHash: "0xf9c9124724c3a77c6de54a5bbde4f53bea79a7e7209d9462e060b10dd60e3a81",
	},
}

// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and reworked to commit to leaf
// hashes and produce index based inclusion proofs.

// Package merkle provides an implementation of a merkle tree for committing
// to the transactions of a block and proving their inclusion.
package merkle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashes"
)

// Hashable represents the behavior concrete data must exhibit to be used as
// a leaf in the merkle tree.
type Hashable interface {
	Hash() hashes.Hash
}

// HashStrategy combines the concatenation of two child hashes into the
// parent hash.
type HashStrategy func(data []byte) hashes.Hash

// Side indicates where the sibling hash is concatenated before hashing.
type Side uint8

// Set of sides a proof step can take.
const (
	Left  Side = 0 // Sibling comes first.
	Right Side = 1 // Sibling comes second.
)

// ProofStep is a single sibling on the path from a leaf to the root.
type ProofStep struct {
	Hash hashes.Hash `json:"hash"`
	Side Side        `json:"side"`
}

// Proof is the ordered set of siblings from leaf to root.
type Proof []ProofStep

// =============================================================================

// Tree represents a merkle tree over a set of leaf hashes.
type Tree struct {
	Root         *Node
	Leafs        []*Node
	MerkleRoot   hashes.Hash
	leafCount    int
	hashStrategy HashStrategy
}

// WithHashStrategy is used to change the default hash strategy of using
// double sha256 when constructing a new tree.
func WithHashStrategy(hashStrategy HashStrategy) func(t *Tree) {
	return func(t *Tree) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree over the specified leaf hashes.
func NewTree(leaves []hashes.Hash, options ...func(t *Tree)) (*Tree, error) {
	t := Tree{
		hashStrategy: hashes.Hash256,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(leaves); err != nil {
		return nil, err
	}

	return &t, nil
}

// NewTreeFromValues constructs a new merkle tree using the hash of each
// value as a leaf.
func NewTreeFromValues[T Hashable](values []T, options ...func(t *Tree)) (*Tree, error) {
	leaves := make([]hashes.Hash, len(values))
	for i, value := range values {
		leaves[i] = value.Hash()
	}

	return NewTree(leaves, options...)
}

// Generate constructs the leafs and nodes of the tree from the specified
// leaf hashes. If the tree has been generated previously, the tree is
// re-generated from scratch. An empty set of leaves produces a tree whose
// root is the zero hash and a single leaf is its own root.
func (t *Tree) Generate(leaves []hashes.Hash) error {
	t.Root = nil
	t.Leafs = nil
	t.MerkleRoot = hashes.ZeroHash
	t.leafCount = len(leaves)

	if len(leaves) == 0 {
		return nil
	}

	var leafs []*Node
	for _, leaf := range leaves {
		leafs = append(leafs, &Node{
			Hash: leaf,
			leaf: true,
			Tree: t,
		})
	}

	if len(leafs) == 1 {
		t.Root = leafs[0]
		t.Leafs = leafs
		t.MerkleRoot = leafs[0].Hash
		return nil
	}

	if len(leafs)%2 == 1 {
		duplicate := &Node{
			Hash: leafs[len(leafs)-1].Hash,
			leaf: true,
			dup:  true,
			Tree: t,
		}
		leafs = append(leafs, duplicate)
	}

	t.Root = buildIntermediate(leafs, t)
	t.Leafs = leafs
	t.MerkleRoot = t.Root.Hash

	return nil
}

// Rebuild is a helper function that will rebuild the tree reusing only the
// leaf hashes that it currently holds.
func (t *Tree) Rebuild() error {
	return t.Generate(t.Leaves())
}

// LeafCount returns the number of leaves the tree was built from, not
// counting the duplicate used to pad an odd level.
func (t *Tree) LeafCount() int {
	return t.leafCount
}

// Leaves returns the leaf hashes the tree was built from.
func (t *Tree) Leaves() []hashes.Hash {
	leaves := make([]hashes.Hash, t.leafCount)
	for i := range leaves {
		leaves[i] = t.Leafs[i].Hash
	}

	return leaves
}

// Proof returns the set of sibling hashes and the side each one is
// concatenated on for proving the leaf at the specified index is in the tree.
// This is how you can use the information returned by this function.
//
// Start with the leaf hash and walk the proof in order.
//
//	Side Left says the sibling comes first:   acc = hash(sibling + acc)
//	Side Right says the sibling comes second: acc = hash(acc + sibling)
//
// The final accumulator should match the merkle root.
func (t *Tree) Proof(index int) (Proof, error) {
	if index < 0 || index >= t.leafCount {
		return nil, fmt.Errorf("leaf index %d out of range [0, %d)", index, t.leafCount)
	}

	var proof Proof
	node := t.Leafs[index]

	for parent := node.Parent; parent != nil; parent = parent.Parent {
		if parent.Left == node {
			proof = append(proof, ProofStep{Hash: parent.Right.Hash, Side: Right})
		} else {
			proof = append(proof, ProofStep{Hash: parent.Left.Hash, Side: Left})
		}
		node = parent
	}

	return proof, nil
}

// Validate reports whether the leaf hash together with the proof produces
// the root of this tree.
func (t *Tree) Validate(leaf hashes.Hash, proof Proof) bool {
	if t.leafCount == 0 {
		return false
	}

	return VerifyProof(t.MerkleRoot, leaf, proof, t.hashStrategy)
}

// Verify validates the hashes at each level of the tree and returns an error
// if the resulting hash at the root of the tree doesn't match the root hash.
func (t *Tree) Verify() error {
	if t.Root == nil {
		if t.MerkleRoot != hashes.ZeroHash {
			return errors.New("root hash invalid")
		}
		return nil
	}

	if t.Root.verify() != t.MerkleRoot {
		return errors.New("root hash invalid")
	}

	return nil
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree) RootHex() string {
	return t.MerkleRoot.String()
}

// String returns a string representation of the tree. Only leaf nodes are
// included in the output.
func (t *Tree) String() string {
	var b strings.Builder
	for _, l := range t.Leafs {
		b.WriteString(l.String())
		b.WriteString("\n")
	}

	return b.String()
}

// =============================================================================

// VerifyProof reports whether the leaf hash together with the proof produces
// the specified root. A nil hash strategy uses double sha256.
func VerifyProof(root hashes.Hash, leaf hashes.Hash, proof Proof, hashStrategy HashStrategy) bool {
	if hashStrategy == nil {
		hashStrategy = hashes.Hash256
	}

	acc := leaf
	buf := make([]byte, 2*hashes.Size)
	for _, step := range proof {
		switch step.Side {
		case Left:
			copy(buf, step.Hash[:])
			copy(buf[hashes.Size:], acc[:])
		case Right:
			copy(buf, acc[:])
			copy(buf[hashes.Size:], step.Hash[:])
		default:
			return false
		}
		acc = hashStrategy(buf)
	}

	return acc == root
}

// =============================================================================

// Node represents a node, root, or leaf in the tree. It stores pointers to its
// immediate relationships, a hash, and other metadata.
type Node struct {
	Tree   *Tree
	Parent *Node
	Left   *Node
	Right  *Node
	Hash   hashes.Hash
	leaf   bool
	dup    bool
}

// verify walks down the tree until hitting a leaf, calculating the hash at
// each level and returning the resulting hash of the node.
func (n *Node) verify() hashes.Hash {
	if n.leaf {
		return n.Hash
	}

	left := n.Left.verify()
	right := n.Right.verify()

	return n.Tree.hashStrategy(append(left[:], right[:]...))
}

// String returns a string representation of the node.
func (n *Node) String() string {
	return fmt.Sprintf("%t %t %s", n.leaf, n.dup, n.Hash)
}

// =============================================================================

// buildIntermediate is a helper function that for a given list of nodes,
// constructs the intermediate and root levels of the tree. An odd node at the
// end of a level is paired with itself. Returns the resulting root node of
// the tree.
func buildIntermediate(nl []*Node, t *Tree) *Node {
	var nodes []*Node

	for i := 0; i < len(nl); i += 2 {
		left, right := i, i+1
		if i+1 == len(nl) {
			right = i
		}

		chash := append(nl[left].Hash[:], nl[right].Hash[:]...)

		n := Node{
			Left:  nl[left],
			Right: nl[right],
			Hash:  t.hashStrategy(chash),
			Tree:  t,
		}

		nodes = append(nodes, &n)
		nl[left].Parent = &n
		nl[right].Parent = &n

		if len(nl) == 2 {
			return &n
		}
	}

	return buildIntermediate(nodes, t)
}

package mpt

import (
	"github.com/veritas-L2/evm-state-tools/rlp"
)

// Trie is an in-memory Merkle Patricia Trie. It is built once from a
// snapshot: keys and values go in through Put, the canonical root comes out
// through RootHash. There is no deletion and no persistence; the trie's only
// job is to name a key/value set by its hash.
//
// The zero ordering guarantee: the root hash is a pure function of the
// key/value set, independent of insertion order.
type Trie struct {
	root      node
	hasher    Hasher
	emptyRoot []byte
}

// NewTrie returns an empty trie hashing with Keccak-256.
func NewTrie() *Trie {
	return NewTrieWithHasher(Keccak256Hasher)
}

// NewTrieWithHasher returns an empty trie using the given digest. The
// empty-trie root is derived from the hasher here rather than pinned to the
// Keccak constant, so alternate digests stay pluggable.
func NewTrieWithHasher(h Hasher) *Trie {
	return &Trie{
		hasher:    h,
		emptyRoot: h.Hash(rlp.Encode(rlp.String{})),
	}
}

// RootHash returns the digest of the root node's canonical encoding. For the
// empty trie this is the hash of the RLP empty string.
func (t *Trie) RootHash() []byte {
	if t.root == nil {
		return append([]byte(nil), t.emptyRoot...)
	}
	return hashNode(t.root, t.hasher)
}

// Get returns the value stored under key, if any.
func (t *Trie) Get(key []byte) ([]byte, bool) {
	n := t.root
	nibbles := newNibbles(key)
	for {
		switch current := n.(type) {
		case nil:
			return nil, false

		case *LeafNode:
			matched := prefixMatchedLen(current.path, nibbles)
			if matched == len(current.path) && matched == len(nibbles) {
				return current.value, true
			}
			return nil, false

		case *BranchNode:
			if len(nibbles) == 0 {
				if current.hasValue() {
					return current.value, true
				}
				return nil, false
			}
			n, nibbles = current.branches[nibbles[0]], nibbles[1:]

		case *ExtensionNode:
			matched := prefixMatchedLen(current.path, nibbles)
			if matched < len(current.path) {
				return nil, false
			}
			n, nibbles = current.next, nibbles[matched:]
		}
	}
}

// Put inserts or overwrites the value at key. A zero-length key is accepted
// and lands in the root's value position.
func (t *Trie) Put(key []byte, value []byte) {
	// walk with a pointer to the current slot so the parent link can be
	// rewritten in place without tracking the parent node
	n := &t.root
	nibbles := newNibbles(key)
	for {
		if *n == nil {
			*n = newLeafNode(nibbles, value)
			return
		}

		if leaf, ok := (*n).(*LeafNode); ok {
			matched := prefixMatchedLen(leaf.path, nibbles)

			// full match replaces the value
			if matched == len(nibbles) && matched == len(leaf.path) {
				*n = newLeafNode(leaf.path, value)
				return
			}

			// otherwise the two paths split at a branch; whichever path is
			// exhausted at the split parks its value in the branch itself
			branch := newBranchNode()
			if matched == len(leaf.path) {
				branch.setValue(leaf.value)
			}
			if matched == len(nibbles) {
				branch.setValue(value)
			}

			// a non-empty shared prefix is kept in an extension above the
			// branch
			if matched > 0 {
				*n = newExtensionNode(leaf.path[:matched], branch)
			} else {
				*n = branch
			}

			if matched < len(leaf.path) {
				// L 01020304 hello
				// + 010203   world
				branchNibble, leafNibbles := leaf.path[matched], leaf.path[matched+1:]
				branch.setBranch(branchNibble, newLeafNode(leafNibbles, leaf.value))
			}

			if matched < len(nibbles) {
				// L 01020304 hello
				// + 010203040506 world
				branchNibble, leafNibbles := nibbles[matched], nibbles[matched+1:]
				branch.setBranch(branchNibble, newLeafNode(leafNibbles, value))
			}

			return
		}

		if branch, ok := (*n).(*BranchNode); ok {
			if len(nibbles) == 0 {
				branch.setValue(value)
				return
			}

			b, remaining := nibbles[0], nibbles[1:]
			nibbles = remaining
			n = &branch.branches[b]
			continue
		}

		if ext, ok := (*n).(*ExtensionNode); ok {
			matched := prefixMatchedLen(ext.path, nibbles)
			if matched < len(ext.path) {
				// E 01020304
				// + 010203 good
				extNibbles, branchNibble, extRemaining := ext.path[:matched], ext.path[matched], ext.path[matched+1:]
				branch := newBranchNode()
				if len(extRemaining) == 0 {
					// the extension's tail was a single nibble, its child
					// moves directly into the branch
					branch.setBranch(branchNibble, ext.next)
				} else {
					branch.setBranch(branchNibble, newExtensionNode(extRemaining, ext.next))
				}

				if matched == len(nibbles) {
					branch.setValue(value)
				} else {
					keyBranchNibble, keyLeafNibbles := nibbles[matched], nibbles[matched+1:]
					branch.setBranch(keyBranchNibble, newLeafNode(keyLeafNibbles, value))
				}

				// with no shared prefix left the extension disappears
				if len(extNibbles) == 0 {
					*n = branch
				} else {
					*n = newExtensionNode(extNibbles, branch)
				}
				return
			}

			nibbles = nibbles[matched:]
			n = &ext.next
			continue
		}
	}
}

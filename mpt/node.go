package mpt

import (
	"github.com/veritas-L2/evm-state-tools/rlp"
)

// hashedRefSize is the threshold between inline and hashed child references.
// A node whose encoding is at least this many bytes is referenced by its
// digest; a shorter one is embedded directly in its parent. It must equal the
// digest length so that the two forms can be told apart when decoded.
const hashedRefSize = 32

// node is one of the three non-empty trie node shapes. The empty node is the
// nil interface value; its canonical encoding is the RLP empty string.
type node interface {
	// raw returns the node's canonical RLP structure. Child references are
	// resolved through the given hasher.
	raw(h Hasher) rlp.Item
}

// serialize returns the canonical RLP encoding of a node.
func serialize(n node, h Hasher) []byte {
	if n == nil {
		return rlp.Encode(rlp.String{})
	}
	return rlp.Encode(n.raw(h))
}

// hashNode returns the digest of a node's canonical encoding.
func hashNode(n node, h Hasher) []byte {
	return h.Hash(serialize(n, h))
}

// ref returns the RLP item a parent embeds for child n: the node's own
// encoding when it is shorter than hashedRefSize, its digest otherwise. The
// empty node is referenced by the empty string.
func ref(n node, h Hasher) rlp.Item {
	if n == nil {
		return rlp.String{}
	}
	enc := serialize(n, h)
	if len(enc) < hashedRefSize {
		return rlp.Encoded{Data: enc}
	}
	return rlp.String{Str: h.Hash(enc)}
}

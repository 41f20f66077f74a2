package mpt

import (
	"github.com/veritas-L2/evm-state-tools/rlp"
)

// LeafNode holds the unmatched suffix of a key and the value stored under it.
type LeafNode struct {
	path  []Nibble
	value []byte
}

func newLeafNode(path []Nibble, value []byte) *LeafNode {
	return &LeafNode{
		path:  path,
		value: value,
	}
}

func newLeafNodeFromKey(key, value []byte) *LeafNode {
	return newLeafNode(newNibbles(key), value)
}

func (l *LeafNode) raw(h Hasher) rlp.Item {
	return rlp.List{Items: []rlp.Item{
		rlp.String{Str: toPrefixed(l.path, true)},
		rlp.String{Str: l.value},
	}}
}

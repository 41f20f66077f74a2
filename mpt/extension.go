package mpt

import (
	"github.com/veritas-L2/evm-state-tools/rlp"
)

// ExtensionNode compresses a run of nibbles that has exactly one
// continuation.
type ExtensionNode struct {
	path []Nibble
	next node
}

func newExtensionNode(path []Nibble, next node) *ExtensionNode {
	return &ExtensionNode{
		path: path,
		next: next,
	}
}

func (e *ExtensionNode) raw(h Hasher) rlp.Item {
	return rlp.List{Items: []rlp.Item{
		rlp.String{Str: toPrefixed(e.path, false)},
		ref(e.next, h),
	}}
}

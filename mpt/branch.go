package mpt

import (
	"github.com/veritas-L2/evm-state-tools/rlp"
)

// BranchNode fans out one nibble of the key into up to 16 children. Its own
// value slot holds a value whose key terminates exactly here.
type BranchNode struct {
	branches [16]node
	value    []byte
}

func newBranchNode() *BranchNode {
	return &BranchNode{}
}

func (b *BranchNode) setBranch(nibble Nibble, n node) {
	b.branches[int(nibble)] = n
}

func (b *BranchNode) setValue(value []byte) {
	b.value = value
}

func (b *BranchNode) hasValue() bool {
	return b.value != nil
}

func (b *BranchNode) raw(h Hasher) rlp.Item {
	items := make([]rlp.Item, 17)
	for i := 0; i < 16; i++ {
		items[i] = ref(b.branches[i], h)
	}
	// the empty string stands in for an absent value
	items[16] = rlp.String{Str: b.value}
	return rlp.List{Items: items}
}

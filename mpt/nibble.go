package mpt

import (
	"errors"
	"fmt"
)

// ErrMalformedPath is reported when decoding a hex-prefix encoded path whose
// flag nibble is not one of the four defined forms.
var ErrMalformedPath = errors.New("mpt: malformed hex-prefix path")

// Nibble is a 4-bit value, the trie's traversal alphabet. Keys are walked two
// nibbles per byte, most significant nibble first, giving 16-way branching.
type Nibble byte

func nibblesFromByte(b byte) []Nibble {
	return []Nibble{
		Nibble(b >> 4),
		Nibble(b % 16),
	}
}

// newNibbles splits a key into its nibble sequence.
func newNibbles(key []byte) []Nibble {
	ns := make([]Nibble, 0, len(key)*2)
	for _, b := range key {
		ns = append(ns, nibblesFromByte(b)...)
	}
	return ns
}

// nibblesToBytes packs a nibble sequence of even length back into bytes.
func nibblesToBytes(ns []Nibble) []byte {
	buf := make([]byte, 0, len(ns)/2)
	for i := 0; i < len(ns); i += 2 {
		b := byte(ns[i])<<4 + byte(ns[i+1])
		buf = append(buf, b)
	}
	return buf
}

// toPrefixed hex-prefix encodes a path for storage inside a leaf or extension
// node. The flag nibble carries the node kind and the path parity:
//
//	hex char    bits    |    node type partial     path length
//	----------------------------------------------------------
//	   0        0000    |       extension              even
//	   1        0001    |       extension              odd
//	   2        0010    |   terminating (leaf)         even
//	   3        0011    |   terminating (leaf)         odd
func toPrefixed(ns []Nibble, isLeafNode bool) []byte {
	var prefixed []Nibble
	if len(ns)%2 > 0 {
		// odd number of nibbles, the flag nibble restores even length
		prefixed = make([]Nibble, 0, 1+len(ns))
		prefixed = append(prefixed, 1)
	} else {
		// even number of nibbles, a zero padding nibble follows the flag
		prefixed = make([]Nibble, 0, 2+len(ns))
		prefixed = append(prefixed, 0, 0)
	}
	prefixed = append(prefixed, ns...)

	if isLeafNode {
		prefixed[0] += 2
	}

	return nibblesToBytes(prefixed)
}

// fromPrefixed is the exact inverse of toPrefixed: it recovers the nibble
// path and the leaf flag, failing with ErrMalformedPath on an invalid flag
// nibble or a non-zero padding nibble.
func fromPrefixed(b []byte) ([]Nibble, bool, error) {
	if len(b) == 0 {
		return nil, false, fmt.Errorf("%w: empty encoding", ErrMalformedPath)
	}

	ns := newNibbles(b)
	switch ns[0] {
	case 0, 2:
		if ns[1] != 0 {
			return nil, false, fmt.Errorf("%w: non-zero padding nibble %d", ErrMalformedPath, ns[1])
		}
		return ns[2:], ns[0] == 2, nil
	case 1, 3:
		return ns[1:], ns[0] == 3, nil
	default:
		return nil, false, fmt.Errorf("%w: invalid flag nibble %d", ErrMalformedPath, ns[0])
	}
}

// prefixMatchedLen returns the length of the longest common prefix.
//
//	[0,1,2,3], [0,1,2]     => 3
//	[0,1,2,3], [0,1,2,3]   => 4
//	[0,1,2,3], [0,1,2,3,4] => 4
func prefixMatchedLen(a []Nibble, b []Nibble) int {
	matched := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			break
		}
		matched++
	}
	return matched
}

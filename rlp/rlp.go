// Package rlp implements the canonical Recursive Length Prefix encoding.
//
// RLP is defined over a recursive item structure: an item is either a string
// of bytes or a list of items. Encoding is deterministic; decoding is strict
// and rejects any input that is not the unique canonical encoding of an item.
//
// See Appendix B of https://ethereum.github.io/yellowpaper/paper.pdf
package rlp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// ErrMalformedEncoding is reported when decoding input that is truncated,
// carries a non-minimal length prefix, or has bytes left over after the
// top-level item. Canonical RLP is bijective, so such input is an error,
// never a best-effort parse.
var ErrMalformedEncoding = errors.New("rlp: malformed encoding")

// Item is anything that can be RLP encoded by this package.
type Item interface {
	// write appends the RLP encoding of this item to the given writer.
	write(w writer) writer

	// encodedLength computes the encoded length of this item in bytes.
	encodedLength() int
}

// Encode serializes an item structure.
func Encode(item Item) []byte {
	return EncodeInto(make([]byte, 0, item.encodedLength()), item)
}

// EncodeInto appends the serialized form of the item to dst.
func EncodeInto(dst []byte, item Item) []byte {
	return item.write(writer(dst))
}

// Decode parses exactly one item from the input. The whole input must be
// consumed; trailing bytes fail with ErrMalformedEncoding.
func Decode(data []byte) (Item, error) {
	item, consumed, err := decode(data)
	if err != nil {
		return nil, err
	}
	if consumed != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedEncoding, len(data)-consumed)
	}
	return item, nil
}

// decode parses one item from the head of data and reports how many bytes it
// consumed. It recurses for nested lists.
func decode(data []byte) (Item, int, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("%w: empty input", ErrMalformedEncoding)
	}

	prefix := data[0]
	switch {
	case prefix < 0x80: // single byte, encodes itself
		return String{Str: data[0:1]}, 1, nil

	case prefix < 0xb8: // short string, length in the prefix
		length := int(prefix - 0x80)
		if len(data) < 1+length {
			return nil, 0, fmt.Errorf("%w: string truncated, need %d bytes", ErrMalformedEncoding, 1+length)
		}
		if length == 1 && data[1] < 0x80 {
			return nil, 0, fmt.Errorf("%w: single byte %#02x must encode itself", ErrMalformedEncoding, data[1])
		}
		return String{Str: data[1 : 1+length]}, 1 + length, nil

	case prefix < 0xc0: // long string, length of the length in the prefix
		lenOfLen := int(prefix - 0xb7)
		length, err := readLength(data[1:], lenOfLen)
		if err != nil {
			return nil, 0, err
		}
		offset := 1 + lenOfLen
		if len(data) < offset+length {
			return nil, 0, fmt.Errorf("%w: string truncated, need %d bytes", ErrMalformedEncoding, offset+length)
		}
		return String{Str: data[offset : offset+length]}, offset + length, nil

	case prefix < 0xf8: // short list
		length := int(prefix - 0xc0)
		if len(data) < 1+length {
			return nil, 0, fmt.Errorf("%w: list truncated, need %d bytes", ErrMalformedEncoding, 1+length)
		}
		items, err := decodeListPayload(data[1 : 1+length])
		if err != nil {
			return nil, 0, err
		}
		return List{Items: items}, 1 + length, nil

	default: // long list
		lenOfLen := int(prefix - 0xf7)
		length, err := readLength(data[1:], lenOfLen)
		if err != nil {
			return nil, 0, err
		}
		offset := 1 + lenOfLen
		if len(data) < offset+length {
			return nil, 0, fmt.Errorf("%w: list truncated, need %d bytes", ErrMalformedEncoding, offset+length)
		}
		items, err := decodeListPayload(data[offset : offset+length])
		if err != nil {
			return nil, 0, err
		}
		return List{Items: items}, offset + length, nil
	}
}

// decodeListPayload decodes the concatenated items of a list whose length
// prefix has already been cut off.
func decodeListPayload(data []byte) ([]Item, error) {
	items := make([]Item, 0, 17)
	for len(data) > 0 {
		item, consumed, err := decode(data)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		data = data[consumed:]
	}
	return items, nil
}

// readLength reads a big-endian length field of lenOfLen bytes and enforces
// canonical form: no leading zero byte, and a value that actually requires
// the long encoding.
func readLength(data []byte, lenOfLen int) (int, error) {
	if len(data) < lenOfLen {
		return 0, fmt.Errorf("%w: length field truncated", ErrMalformedEncoding)
	}
	if data[0] == 0 {
		return 0, fmt.Errorf("%w: length field has leading zero", ErrMalformedEncoding)
	}
	var length uint64
	for i := 0; i < lenOfLen; i++ {
		length = length<<8 | uint64(data[i])
	}
	if length < 56 {
		return 0, fmt.Errorf("%w: length %d does not need a long prefix", ErrMalformedEncoding, length)
	}
	const maxInt = int(^uint(0) >> 1)
	if length > uint64(maxInt) {
		return 0, fmt.Errorf("%w: length %d out of range", ErrMalformedEncoding, length)
	}
	return int(length), nil
}

// writer appends encoded RLP content to a pre-allocated buffer.
type writer []byte

func (w writer) write(data []byte) writer {
	return append(w, data...)
}

func (w writer) put(c byte) writer {
	return append(w, c)
}

// String is the atomic ground type of an RLP structure: a possibly empty
// string of bytes.
type String struct {
	Str []byte
}

func (s String) write(w writer) writer {
	// A single byte below 0x80 encodes itself.
	if len(s.Str) == 1 && s.Str[0] < 0x80 {
		return w.write(s.Str)
	}
	w = writeLength(w, len(s.Str), 0x80)
	return w.write(s.Str)
}

func (s String) encodedLength() int {
	if len(s.Str) == 1 && s.Str[0] < 0x80 {
		return 1
	}
	return len(s.Str) + lengthOfLength(len(s.Str))
}

// List composes items into a new item.
type List struct {
	Items []Item
}

func (l List) write(w writer) writer {
	length := 0
	for _, item := range l.Items {
		length += item.encodedLength()
	}
	w = writeLength(w, length, 0xc0)
	for _, item := range l.Items {
		w = item.write(w)
	}
	return w
}

func (l List) encodedLength() int {
	sum := 0
	for _, item := range l.Items {
		sum += item.encodedLength()
	}
	return sum + lengthOfLength(sum)
}

// Encoded embeds an already RLP encoded fragment into a new encoding.
type Encoded struct {
	Data []byte
}

func (e Encoded) write(w writer) writer {
	return w.write(e.Data)
}

func (e Encoded) encodedLength() int {
	return len(e.Data)
}

// Uint64 encodes an unsigned integer as a string of bytes: the minimal
// big-endian representation with no leading zero bytes, where zero is the
// empty string.
type Uint64 struct {
	Value uint64
}

func (u Uint64) write(w writer) writer {
	return String{Str: AppendUint64(nil, u.Value)}.write(w)
}

func (u Uint64) encodedLength() int {
	if u.Value < 0x80 {
		return 1
	}
	return 1 + int(numBytes(u.Value))
}

// BigInt encodes a non-negative big integer as a string of bytes: the
// minimal big-endian representation, where zero is the empty string.
type BigInt struct {
	Value *big.Int
}

func (b BigInt) write(w writer) writer {
	return String{Str: b.bytes()}.write(w)
}

func (b BigInt) encodedLength() int {
	return String{Str: b.bytes()}.encodedLength()
}

func (b BigInt) bytes() []byte {
	if b.Value == nil || b.Value.Sign() == 0 {
		return nil
	}
	return b.Value.Bytes()
}

// AppendUint64 appends the canonical minimal big-endian encoding of v to dst.
// Zero contributes nothing: its canonical form is the empty byte string.
func AppendUint64(dst []byte, v uint64) []byte {
	if v == 0 {
		return dst
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(dst, buf[8-numBytes(v):]...)
}

// writeLength emits the length prefix for a string (offset 0x80) or list
// (offset 0xc0) payload of the given length.
func writeLength(w writer, length int, offset byte) writer {
	if length < 56 {
		return w.put(offset + byte(length))
	}
	n := numBytes(uint64(length))
	w = w.put(offset + 55 + n)
	for i := byte(0); i < n; i++ {
		w = w.put(byte(length >> (8 * (n - i - 1))))
	}
	return w
}

// numBytes computes the minimum number of bytes required to represent the
// value in big-endian encoding.
func numBytes(value uint64) byte {
	if value == 0 {
		return 0
	}
	for res := byte(1); ; res++ {
		if value >>= 8; value == 0 {
			return res
		}
	}
}

func lengthOfLength(length int) int {
	if length < 56 {
		return 1
	}
	return int(numBytes(uint64(length))) + 1
}

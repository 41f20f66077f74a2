package rlp

import (
	"bytes"
	"fmt"
	"math/big"
	"testing"

	gethrlp "github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"
)

func hexEqual(t *testing.T, hex string, b []byte) {
	t.Helper()
	require.Equal(t, hex, fmt.Sprintf("%x", b))
}

func TestEncodeStrings(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		hexEqual(t, "80", Encode(String{}))
	})

	t.Run("single byte below 0x80 encodes itself", func(t *testing.T) {
		hexEqual(t, "61", Encode(String{Str: []byte("a")}))
		hexEqual(t, "7f", Encode(String{Str: []byte{0x7f}}))
	})

	t.Run("single byte 0x80 needs a length prefix", func(t *testing.T) {
		hexEqual(t, "8180", Encode(String{Str: []byte{0x80}}))
	})

	t.Run("short string", func(t *testing.T) {
		hexEqual(t, "83646f67", Encode(String{Str: []byte("dog")}))
	})

	t.Run("length boundary at 55 bytes", func(t *testing.T) {
		str55 := bytes.Repeat([]byte{0x61}, 55)
		enc := Encode(String{Str: str55})
		require.Equal(t, byte(0xb7), enc[0])
		require.Len(t, enc, 56)

		str56 := bytes.Repeat([]byte{0x61}, 56)
		enc = Encode(String{Str: str56})
		require.Equal(t, []byte{0xb8, 56}, enc[:2])
		require.Len(t, enc, 58)
	})
}

func TestEncodeLists(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		hexEqual(t, "c0", Encode(List{}))
	})

	t.Run("cat dog", func(t *testing.T) {
		l := List{Items: []Item{String{Str: []byte("cat")}, String{Str: []byte("dog")}}}
		hexEqual(t, "c88363617483646f67", Encode(l))
	})

	t.Run("set theoretical representation of three", func(t *testing.T) {
		// [ [], [[]], [ [], [[]] ] ]
		l := List{Items: []Item{
			List{},
			List{Items: []Item{List{}}},
			List{Items: []Item{List{}, List{Items: []Item{List{}}}}},
		}}
		hexEqual(t, "c7c0c1c0c3c0c1c0", Encode(l))
	})
}

func TestEncodeUint64(t *testing.T) {
	hexEqual(t, "80", Encode(Uint64{Value: 0}))
	hexEqual(t, "0f", Encode(Uint64{Value: 15}))
	hexEqual(t, "820400", Encode(Uint64{Value: 1024}))
	hexEqual(t, "88ffffffffffffffff", Encode(Uint64{Value: ^uint64(0)}))
}

func TestEncodeBigInt(t *testing.T) {
	hexEqual(t, "80", Encode(BigInt{}))
	hexEqual(t, "80", Encode(BigInt{Value: big.NewInt(0)}))
	hexEqual(t, "0f", Encode(BigInt{Value: big.NewInt(15)}))
	hexEqual(t, "820400", Encode(BigInt{Value: big.NewInt(1024)}))

	// wider than 64 bits
	wide := new(big.Int).Lsh(big.NewInt(1), 96)
	expected, err := gethrlp.EncodeToBytes(wide)
	require.NoError(t, err)
	require.Equal(t, expected, Encode(BigInt{Value: wide}))
}

func TestAppendUint64(t *testing.T) {
	require.Empty(t, AppendUint64(nil, 0))
	require.Equal(t, []byte{0x01}, AppendUint64(nil, 1))
	require.Equal(t, []byte{0x04, 0x00}, AppendUint64(nil, 1024))
	// no leading zero bytes for any non-zero value
	for _, v := range []uint64{1, 0x80, 0xff, 0x100, 0xffff, 1 << 40, ^uint64(0)} {
		b := AppendUint64(nil, v)
		require.NotZero(t, b[0], "value %d", v)
	}
}

func TestEncodeMatchesReferenceCodec(t *testing.T) {
	t.Run("strings", func(t *testing.T) {
		for _, length := range []int{0, 1, 2, 54, 55, 56, 57, 300, 1 << 16} {
			str := bytes.Repeat([]byte{0xab}, length)
			expected, err := gethrlp.EncodeToBytes(str)
			require.NoError(t, err)
			require.Equal(t, expected, Encode(String{Str: str}), "length %d", length)
		}
	})

	t.Run("nested lists", func(t *testing.T) {
		expected, err := gethrlp.EncodeToBytes([]interface{}{
			[]byte("cat"),
			[]interface{}{[]byte("dog"), []byte{}},
			bytes.Repeat([]byte{0x01}, 60),
		})
		require.NoError(t, err)

		actual := Encode(List{Items: []Item{
			String{Str: []byte("cat")},
			List{Items: []Item{String{Str: []byte("dog")}, String{}}},
			String{Str: bytes.Repeat([]byte{0x01}, 60)},
		}})
		require.Equal(t, expected, actual)
	})

	t.Run("integers", func(t *testing.T) {
		for _, v := range []uint64{0, 1, 127, 128, 256, 1024, 1 << 33, ^uint64(0)} {
			expected, err := gethrlp.EncodeToBytes(v)
			require.NoError(t, err)
			require.Equal(t, expected, Encode(Uint64{Value: v}), "value %d", v)
		}
	})
}

func TestDecodeRoundTrip(t *testing.T) {
	items := []Item{
		String{},
		String{Str: []byte{0x00}},
		String{Str: []byte("a")},
		String{Str: []byte{0x80}},
		String{Str: []byte("dog")},
		String{Str: bytes.Repeat([]byte{0x61}, 55)},
		String{Str: bytes.Repeat([]byte{0x61}, 56)},
		String{Str: bytes.Repeat([]byte{0x61}, 1024)},
		List{},
		List{Items: []Item{String{Str: []byte("cat")}, String{Str: []byte("dog")}}},
		List{Items: []Item{List{}, List{Items: []Item{List{}}}}},
		List{Items: []Item{String{Str: bytes.Repeat([]byte{0x02}, 100)}}},
	}
	for i, item := range items {
		enc := Encode(item)
		decoded, err := Decode(enc)
		require.NoError(t, err, "item %d", i)
		// re-encoding the decoded item must reproduce the input bytes
		require.Equal(t, enc, Encode(decoded), "item %d", i)
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	cases := map[string][]byte{
		"empty input":                  {},
		"non-minimal single byte":      {0x81, 0x61},
		"truncated short string":       {0x83, 0x64, 0x6f},
		"truncated long string length": {0xb8},
		"long prefix for short string": {0xb8, 0x01, 0x61},
		"length with leading zero":     {0xb9, 0x00, 0x38},
		"truncated list":               {0xc8, 0x83, 0x63},
		"malformed item inside list":   {0xc2, 0x81, 0x61},
		"trailing bytes":               {0x80, 0x00},
		"trailing bytes after list":    {0xc0, 0xc0},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(input)
			require.ErrorIs(t, err, ErrMalformedEncoding)
		})
	}
}

func TestDecodedStringsAliasInput(t *testing.T) {
	// the decoder is zero-copy; decoded strings alias the input buffer
	enc := Encode(String{Str: []byte("dog")})
	item, err := Decode(enc)
	require.NoError(t, err)
	str, ok := item.(String)
	require.True(t, ok)
	require.Equal(t, []byte("dog"), str.Str)

	enc[1] = 'c'
	require.Equal(t, []byte("cog"), str.Str)
}

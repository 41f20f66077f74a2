package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGasLimit(t *testing.T) {
	t.Run("decimal", func(t *testing.T) {
		v, err := parseGasLimit("100")
		require.NoError(t, err)
		require.Equal(t, uint64(100), v)
	})

	t.Run("hex needs the 0x prefix", func(t *testing.T) {
		v, err := parseGasLimit("0x100")
		require.NoError(t, err)
		require.Equal(t, uint64(0x100), v)

		v, err = parseGasLimit("0xFFFFFFFFFFFF")
		require.NoError(t, err)
		require.Equal(t, uint64(0xFFFFFFFFFFFF), v)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := parseGasLimit("")
		require.Error(t, err)
		_, err = parseGasLimit("limitless")
		require.Error(t, err)
	})
}

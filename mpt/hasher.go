package mpt

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// Hasher is the digest capability the trie is parameterized over. Production
// tries hash with Keccak-256; structural tests may inject a stub.
type Hasher interface {
	// Hash returns the fixed-size digest of data.
	Hash(data []byte) []byte
}

// Keccak256Hasher hashes with Keccak-256, the digest of the Ethereum state
// trie.
var Keccak256Hasher Hasher = keccak256Hasher{}

type keccak256Hasher struct{}

func (keccak256Hasher) Hash(data []byte) []byte {
	return crypto.Keccak256(data)
}

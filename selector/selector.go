// Package selector computes 4-byte Ethereum function selectors.
package selector

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Compute returns the selector for a canonical function signature such as
// "transfer(address,uint256)": the first 4 bytes of its Keccak-256 hash,
// rendered as 8 hex characters.
func Compute(signature string) string {
	d := sha3.NewLegacyKeccak256()
	d.Write([]byte(signature))
	return hex.EncodeToString(d.Sum(nil)[:4])
}

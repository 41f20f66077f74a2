// Package stateroot rebuilds the canonical Ethereum state root from a raw
// world-state snapshot. It exists to check a virtual machine's post-execution
// state against a reference: the snapshot goes in, the root hash and the
// per-account intermediate values come out, and any mismatch can be pinned to
// the first diverging field.
package stateroot

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

var (
	// ErrInvalidHexInput is reported when a snapshot field is not valid hex.
	ErrInvalidHexInput = errors.New("stateroot: invalid hex input")

	// ErrMissingField is reported when a required structure is absent and no
	// default is defined, e.g. a null account object.
	ErrMissingField = errors.New("stateroot: missing required field")
)

// Account is one account entry of a world-state snapshot. Nonce and balance
// are hex-encoded unsigned integers, case-insensitive, optionally
// 0x-prefixed; code and storage are optional.
type Account struct {
	Nonce   string            `json:"nonce"`
	Balance string            `json:"balance"`
	Code    string            `json:"code"`
	Storage map[string]string `json:"storage"`
}

// Snapshot maps hex-encoded 20-byte addresses to accounts.
type Snapshot map[string]*Account

// ParseSnapshot decodes a snapshot document.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return snap, nil
}

// parseHexBytes decodes an optionally 0x-prefixed, case-insensitive hex
// string. Empty input ("" or "0x") decodes to no bytes.
func parseHexBytes(s string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(s), "0x")
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed)%2 == 1 {
		trimmed = "0" + trimmed
	}
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHexInput, s)
	}
	return b, nil
}

// parseQuantity parses a hex-encoded unsigned integer of up to 256 bits.
// Empty forms ("", "0x", "0x0", any run of zero digits) all canonicalize to
// zero, so the caller can test emptiness with IsZero instead of matching
// textual spellings.
func parseQuantity(s string) (*uint256.Int, error) {
	b, err := parseHexBytes(s)
	if err != nil {
		return nil, err
	}
	if len(b) > 32 {
		return nil, fmt.Errorf("%w: quantity %q exceeds 256 bits", ErrInvalidHexInput, s)
	}
	return new(uint256.Int).SetBytes(b), nil
}

// parseAddress decodes a 20-byte address.
func parseAddress(s string) ([]byte, error) {
	b, err := parseHexBytes(s)
	if err != nil {
		return nil, err
	}
	if len(b) != addressSize {
		return nil, fmt.Errorf("%w: address %q is not %d bytes", ErrInvalidHexInput, s, addressSize)
	}
	return b, nil
}

// parseStorageSlot decodes a storage key and canonicalizes it to its 32-byte
// form, left-padding short spellings.
func parseStorageSlot(s string) ([]byte, error) {
	b, err := parseHexBytes(s)
	if err != nil {
		return nil, err
	}
	if len(b) > slotSize {
		return nil, fmt.Errorf("%w: storage key %q is longer than %d bytes", ErrInvalidHexInput, s, slotSize)
	}
	slot := make([]byte, slotSize)
	copy(slot[slotSize-len(b):], b)
	return slot, nil
}

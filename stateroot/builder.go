package stateroot

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/veritas-L2/evm-state-tools/mpt"
	"github.com/veritas-L2/evm-state-tools/rlp"
)

const (
	// addressSize is the width of an account address in bytes.
	addressSize = 20

	// slotSize is the canonical width of a storage key in bytes.
	slotSize = 32
)

// AccountReport carries the intermediate values of one account's processing,
// for diagnostic comparison against a reference implementation. All fields
// are 0x-prefixed hex.
type AccountReport struct {
	Address     string `json:"address"`
	AddressHash string `json:"addressHash"`
	Nonce       string `json:"nonce"`
	Balance     string `json:"balance"`
	StorageRoot string `json:"storageRoot"`
	CodeHash    string `json:"codeHash"`
	AccountRLP  string `json:"accountRLP"`
}

// Report is the result document: the state root plus one diagnostic record
// per account, in sorted address order.
type Report struct {
	StateRoot string          `json:"stateRoot"`
	Accounts  []AccountReport `json:"accounts"`
}

// Builder computes state roots from snapshots. Storage tries of independent
// accounts are built concurrently; the accounts trie itself is only ever
// written by the coordinating goroutine.
type Builder struct {
	hasher  mpt.Hasher
	workers int
}

// NewBuilder returns a builder hashing with Keccak-256.
func NewBuilder() *Builder {
	return NewBuilderWithHasher(mpt.Keccak256Hasher)
}

// NewBuilderWithHasher returns a builder using the given digest for every
// trie and hash in the pipeline.
func NewBuilderWithHasher(h mpt.Hasher) *Builder {
	return &Builder{
		hasher:  h,
		workers: runtime.NumCPU(),
	}
}

// accountEntry is the per-account output of a worker, ready for the
// accounts-trie insert.
type accountEntry struct {
	addrHash   []byte
	accountRLP []byte
	report     AccountReport
}

// Build computes the state root of the snapshot and the per-account
// diagnostics. The first per-account failure aborts the build with the
// offending address attached; a root computed over a partially processed
// snapshot would be meaningless.
func (b *Builder) Build(snap Snapshot) (*Report, error) {
	addresses := make([]string, 0, len(snap))
	for addr := range snap {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	entries := make([]accountEntry, len(addresses))
	var g errgroup.Group
	g.SetLimit(b.workers)
	for i, addr := range addresses {
		i, addr := i, addr
		g.Go(func() error {
			entry, err := b.buildAccount(addr, snap[addr])
			if err != nil {
				return fmt.Errorf("account %s: %w", addr, err)
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	accounts := mpt.NewTrieWithHasher(b.hasher)
	report := &Report{Accounts: make([]AccountReport, 0, len(entries))}
	for _, entry := range entries {
		accounts.Put(entry.addrHash, entry.accountRLP)
		report.Accounts = append(report.Accounts, entry.report)
	}
	report.StateRoot = hexify(accounts.RootHash())
	return report, nil
}

func (b *Builder) buildAccount(addr string, acc *Account) (accountEntry, error) {
	if acc == nil {
		return accountEntry{}, fmt.Errorf("%w: account object", ErrMissingField)
	}

	addrBytes, err := parseAddress(addr)
	if err != nil {
		return accountEntry{}, err
	}
	addrHash := b.hasher.Hash(addrBytes)

	nonce, err := parseQuantity(acc.Nonce)
	if err != nil {
		return accountEntry{}, fmt.Errorf("nonce: %w", err)
	}
	balance, err := parseQuantity(acc.Balance)
	if err != nil {
		return accountEntry{}, fmt.Errorf("balance: %w", err)
	}

	code, err := parseHexBytes(acc.Code)
	if err != nil {
		return accountEntry{}, fmt.Errorf("code: %w", err)
	}
	codeHash := b.hasher.Hash(code)

	storageRoot, err := b.storageRoot(acc.Storage)
	if err != nil {
		return accountEntry{}, fmt.Errorf("storage: %w", err)
	}

	nonceBytes := nonce.Bytes()
	balanceBytes := balance.Bytes()
	accountRLP := rlp.Encode(rlp.List{Items: []rlp.Item{
		rlp.String{Str: nonceBytes},
		rlp.String{Str: balanceBytes},
		rlp.String{Str: storageRoot},
		rlp.String{Str: codeHash},
	}})

	return accountEntry{
		addrHash:   addrHash,
		accountRLP: accountRLP,
		report: AccountReport{
			Address:     "0x" + hex.EncodeToString(addrBytes),
			AddressHash: hexify(addrHash),
			Nonce:       hexify(nonceBytes),
			Balance:     hexify(balanceBytes),
			StorageRoot: hexify(storageRoot),
			CodeHash:    hexify(codeHash),
			AccountRLP:  hexify(accountRLP),
		},
	}, nil
}

// storageRoot builds the account's storage trie. Keys are hashed canonical
// 32-byte slots; values are the RLP of the minimal integer encoding. Slots
// whose value canonicalizes to zero are omitted entirely: a zero-valued slot
// is indistinguishable from an absent one.
func (b *Builder) storageRoot(storage map[string]string) ([]byte, error) {
	trie := mpt.NewTrieWithHasher(b.hasher)
	for slotHex, valueHex := range storage {
		value, err := parseQuantity(valueHex)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", slotHex, err)
		}
		if value.IsZero() {
			continue
		}

		slot, err := parseStorageSlot(slotHex)
		if err != nil {
			return nil, err
		}

		trie.Put(b.hasher.Hash(slot), rlp.Encode(rlp.String{Str: value.Bytes()}))
	}
	return trie.RootHash(), nil
}

func hexify(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

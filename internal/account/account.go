// Package account implements the bottom-most layer of the state database:
// an in-memory, non-locking account store. Concurrency control lives one
// layer up, in package state, which wraps Store behind a single
// sync.RWMutex; Store itself assumes single-threaded access.
package account

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Info is the static metadata of an account: balance, nonce, and — when
// the account is a contract — its code and code hash.
type Info struct {
	Balance  *uint256.Int
	Nonce    uint64
	CodeHash common.Hash
	Code     []byte // nil for externally-owned accounts
}

// Record holds one account's full state: its Info, a permanent storage
// map that survives across simulations, a temporary overlay that does not,
// and the mocked flag that forbids lazy RPC back-fill.
type Record struct {
	Info      Info
	permanent map[common.Hash]common.Hash
	temporary map[common.Hash]common.Hash
	Mocked    bool
}

func newRecord(info Info, permanent map[common.Hash]common.Hash, mocked bool) *Record {
	if permanent == nil {
		permanent = make(map[common.Hash]common.Hash)
	}
	return &Record{
		Info:      info,
		permanent: permanent,
		temporary: make(map[common.Hash]common.Hash),
		Mocked:    mocked,
	}
}

// Store is the account/storage map. It is not safe for concurrent use;
// package state is responsible for serializing access.
type Store struct {
	accounts map[common.Address]*Record
}

// New creates an empty Store.
func New() *Store {
	return &Store{accounts: make(map[common.Address]*Record)}
}

// InitAccount inserts or replaces the account at addr. Overwriting an
// existing account never carries over its prior temporary storage — only
// the permanent map supplied here (or an empty one) survives.
func (s *Store) InitAccount(addr common.Address, info Info, permanent map[common.Hash]common.Hash, mocked bool) {
	s.accounts[addr] = newRecord(info, permanent, mocked)
}

// UpdateAccount applies a storage delta and/or a balance change to an
// account's permanent storage. If the account is absent this is a silent
// no-op: streaming updates may race ahead of the first read that would
// otherwise have created the account.
func (s *Store) UpdateAccount(addr common.Address, storage map[common.Hash]common.Hash, balance *uint256.Int) {
	rec, ok := s.accounts[addr]
	if !ok {
		return
	}
	for slot, val := range storage {
		rec.permanent[slot] = val
	}
	if balance != nil {
		rec.Info.Balance = balance
	}
}

// SetTempStorage populates the per-account temporary overlay.
func (s *Store) SetTempStorage(addr common.Address, slot, value common.Hash) {
	rec, ok := s.accounts[addr]
	if !ok {
		return
	}
	rec.temporary[slot] = value
}

// GetAccountInfo returns the account's Info, or false if the account is
// not present.
func (s *Store) GetAccountInfo(addr common.Address) (Info, bool) {
	rec, ok := s.accounts[addr]
	if !ok {
		return Info{}, false
	}
	return rec.Info, true
}

// GetStorage returns the value at (addr, slot): temporary overlay first,
// then permanent storage. The second return is false when the slot is
// simply untracked on a present account — distinct from a tracked zero
// value — so the caller (package state) can decide how to resolve a miss.
func (s *Store) GetStorage(addr common.Address, slot common.Hash) (common.Hash, bool) {
	rec, ok := s.accounts[addr]
	if !ok {
		return common.Hash{}, false
	}
	if v, ok := rec.temporary[slot]; ok {
		return v, true
	}
	if v, ok := rec.permanent[slot]; ok {
		return v, true
	}
	return common.Hash{}, false
}

// AccountPresent reports whether addr has been initialized.
func (s *Store) AccountPresent(addr common.Address) bool {
	_, ok := s.accounts[addr]
	return ok
}

// ClearTempStorage wipes every account's temporary overlay. Permanent
// storage is untouched.
func (s *Store) ClearTempStorage() {
	for _, rec := range s.accounts {
		rec.temporary = make(map[common.Hash]common.Hash)
	}
}

// IsMocked reports whether addr is marked mocked. Returns false for an
// absent account — callers that need to distinguish "absent" from
// "present and not mocked" should check AccountPresent first.
func (s *Store) IsMocked(addr common.Address) bool {
	rec, ok := s.accounts[addr]
	return ok && rec.Mocked
}

// SetCode updates an account's bytecode and code hash. A silent no-op on
// an absent account, for the same reason as UpdateAccount.
func (s *Store) SetCode(addr common.Address, code []byte, codeHash common.Hash) {
	rec, ok := s.accounts[addr]
	if !ok {
		return
	}
	rec.Info.Code = code
	rec.Info.CodeHash = codeHash
}

// Purge removes an account entirely, including its permanent storage.
func (s *Store) Purge(addr common.Address) {
	delete(s.accounts, addr)
}

// PermanentStorage returns a copy of addr's permanent storage map, used by
// State Update revert-map bookkeeping. Returns nil for an absent account.
func (s *Store) PermanentStorage(addr common.Address) map[common.Hash]common.Hash {
	rec, ok := s.accounts[addr]
	if !ok {
		return nil
	}
	out := make(map[common.Hash]common.Hash, len(rec.permanent))
	for k, v := range rec.permanent {
		out[k] = v
	}
	return out
}

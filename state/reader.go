// Package state implements the State Database: a layered, thread-safe,
// versioned account/storage store backing EVM execution. Two flavours
// share the same Reader capability set — LazyRPC, which fetches missing
// cells from a node's JSON-RPC endpoint and caches them per block, and
// PreCached, fed out-of-band by the streaming client in package feed.
package state

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/lamina-labs/evmsim/internal/account"
)

// Reader is the interpreter-facing read capability set. The simulation
// engine is polymorphic over Reader; it never depends on a concrete SDB
// variant. Every method may suspend the caller — acquiring SDB's lock, or,
// for LazyRPC, issuing a network fetch.
type Reader interface {
	// BasicRef returns an account's Info, or a MissingAccount /
	// StorageError on failure.
	BasicRef(addr common.Address) (*account.Info, error)
	// CodeByHash resolves bytecode purely by its keccak256 digest.
	CodeByHash(hash common.Hash) ([]byte, error)
	// StorageRef returns the value of one storage cell.
	StorageRef(addr common.Address, slot common.Hash) (common.Hash, error)
	// BlockHashRef returns the hash of the given block number, or the zero
	// hash if it does not match the SDB's currently attached header.
	BlockHashRef(number uint64) (common.Hash, error)
}

// Header is the minimal block-version stamp an SDB currently represents.
type Header struct {
	Number    uint64
	Hash      common.Hash
	Timestamp uint64
}

// DeletionPolicy controls how streaming Deletion events are handled, per
// the open question in spec.md §9: the correct semantics were not settled
// upstream, so the choice is an explicit, documented configuration knob.
type DeletionPolicy int

const (
	// IgnoreDeletion logs and otherwise ignores Deletion events. Default.
	IgnoreDeletion DeletionPolicy = iota
	// PurgeDeletion removes the account entirely from the store.
	PurgeDeletion
)

package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ChangeType classifies a streaming Account Update.
type ChangeType int

const (
	ChangeUpdate ChangeType = iota
	ChangeCreation
	ChangeDeletion
)

// AccountUpdate is one account's delta as carried by a streaming frame
// (package feed decodes the wire envelope into these). Creation updates
// mark the resulting account Mocked, per spec.md §3.
type AccountUpdate struct {
	Address common.Address
	Chain   string
	Slots   map[common.Hash]common.Hash
	Balance *uint256.Int
	Code    []byte
	Change  ChangeType
}

// Update is a "State Update": each present field replaces the
// corresponding cell on an account's permanent storage; absent (nil)
// fields are no-ops. Used by SDB.UpdateState, not by the streaming path.
type Update struct {
	Storage map[common.Hash]common.Hash
	Balance *uint256.Int
}

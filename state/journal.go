package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// viewJournalEntry is a revertible change applied to a View. Adapted from
// this corpus's core/state/journal.go revert-by-entry design.
type viewJournalEntry interface {
	revert(v *View)
}

type createAccountEntry struct {
	addr       common.Address
	wasCreated bool
}

func (e createAccountEntry) revert(v *View) { v.created[e.addr] = e.wasCreated }

type balanceEntry struct {
	addr common.Address
	prev *uint256.Int
}

func (e balanceEntry) revert(v *View) { v.balances[e.addr] = e.prev }

type nonceEntry struct {
	addr common.Address
	prev uint64
	had  bool
}

func (e nonceEntry) revert(v *View) { v.nonces[e.addr] = e.prev }

type codeEntry struct {
	addr     common.Address
	prevCode []byte
	prevHash common.Hash
}

func (e codeEntry) revert(v *View) {
	v.codes[e.addr] = e.prevCode
	v.codeHashes[e.addr] = e.prevHash
}

type storageEntry struct {
	addr common.Address
	slot common.Hash
	prev common.Hash
	had  bool
}

func (e storageEntry) revert(v *View) {
	if !e.had {
		delete(v.storage[e.addr], e.slot)
		return
	}
	v.storage[e.addr][e.slot] = e.prev
}

type transientEntry struct {
	addr common.Address
	slot common.Hash
	prev common.Hash
}

func (e transientEntry) revert(v *View) {
	m, ok := v.transient[e.addr]
	if !ok {
		return
	}
	m[e.slot] = e.prev
}

type selfDestructEntry struct {
	addr        common.Address
	prev        bool
	prevBalance *uint256.Int
}

func (e selfDestructEntry) revert(v *View) {
	v.destructed[e.addr] = e.prev
	v.balances[e.addr] = e.prevBalance
}

type refundEntry struct {
	prev uint64
}

func (e refundEntry) revert(v *View) { v.refund = e.prev }

type accessListAddrEntry struct {
	addr common.Address
}

func (e accessListAddrEntry) revert(v *View) { delete(v.accessAddrs, e.addr) }

type accessListSlotEntry struct {
	addr common.Address
	slot common.Hash
}

func (e accessListSlotEntry) revert(v *View) {
	if m, ok := v.accessSlots[e.addr]; ok {
		delete(m, e.slot)
	}
}

type logEntry struct{}

func (e logEntry) revert(v *View) {
	v.logs = v.logs[:len(v.logs)-1]
}

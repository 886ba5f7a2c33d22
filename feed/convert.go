package feed

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/lamina-labs/evmsim/state"
)

// ToStateUpdates flattens every transaction's account update in one frame
// into the Account Update slice state.SDB.Update expects, preserving
// block order (the order callers should apply them in).
func (bsc BlockStateChanges) ToStateUpdates() []state.AccountUpdate {
	out := make([]state.AccountUpdate, 0, len(bsc.TxUpdates))
	for _, txUpdate := range bsc.TxUpdates {
		out = append(out, txUpdate.Update.toState())
	}
	return out
}

// ToHeader converts the frame's block into the state package's Header.
func (bsc BlockStateChanges) ToHeader() state.Header {
	return state.Header{
		Number:    bsc.Block.Number,
		Hash:      bsc.Block.Hash,
		Timestamp: uint64(bsc.Block.Timestamp.Unix()),
	}
}

func (u AccountUpdate) toState() state.AccountUpdate {
	var slots map[common.Hash]common.Hash
	if len(u.Slots) > 0 {
		slots = make(map[common.Hash]common.Hash, len(u.Slots))
		for slot, value := range u.Slots {
			if value == nil {
				slots[slot] = common.Hash{}
				continue
			}
			slots[slot] = common.Hash(value.Bytes32())
		}
	}
	return state.AccountUpdate{
		Address: u.Address,
		Chain:   u.Chain,
		Slots:   slots,
		Balance: u.Balance,
		Code:    u.Code,
		Change:  state.ChangeType(u.Change),
	}
}

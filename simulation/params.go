// Package simulation implements the Simulation Engine: it marshals
// Simulation Parameters into go-ethereum's core/vm call shape, drives
// execution, and normalizes the result. Grounded on this corpus's own
// geth/transition.go ApplyMessage helper, which wires a custom StateDB
// into go-ethereum's real EVM the same way this package does.
package simulation

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lamina-labs/evmsim/state"
)

// Params is the Simulation Parameters tuple of spec.md §3.
type Params struct {
	Caller      common.Address
	To          *common.Address // nil ⇒ contract creation
	Calldata    []byte
	Value       *uint256.Int
	GasLimit    *uint64 // nil ⇒ the engine's unbounded-for-simulation cap
	Overrides   map[common.Address]map[common.Hash]common.Hash
	BlockNumber uint64
	Timestamp   uint64
}

// Result is the Simulation Result tuple of spec.md §3: return bytes, gas
// used net of refund, and the state diff the interpreter produced.
type Result struct {
	ReturnData   []byte
	GasUsed      uint64
	StateUpdates map[common.Address]state.Update
}

package simulation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/lamina-labs/evmsim/simerrors"
	"github.com/lamina-labs/evmsim/state"
)

// unboundedGasCap is the gas limit used when Params.GasLimit is nil — high
// enough that no adapter contract call in practice exhausts it, so the
// simulation reports the call's true gas usage rather than an artificial
// out-of-gas.
const unboundedGasCap uint64 = 50_000_000_000

// Engine composes EVM parameters, invokes go-ethereum's interpreter against
// an SDB-backed View, and extracts a normalized Result. It never commits
// state back to the SDB; callers that want to persist a simulation's
// effects call SDB.UpdateState themselves with the returned diff.
type Engine struct {
	reader state.Reader
	config *params.ChainConfig
}

// NewEngine builds a Simulation Engine reading through r. A nil config
// defaults to params.MainnetChainConfig, matching spec.md §1's assumption
// of a single configured EVM chain.
func NewEngine(r state.Reader, config *params.ChainConfig) *Engine {
	if config == nil {
		config = params.MainnetChainConfig
	}
	return &Engine{reader: r, config: config}
}

// Simulate executes params against the engine's state view and returns a
// normalized Result, or a simerrors.TransactionError on revert or internal
// failure. Running out of gas is also reported as a TransactionError; the
// engine never returns OutOfGas itself (the adapter layer's
// MaybeCoerceError reclassifies).
func (e *Engine) Simulate(p Params) (*Result, error) {
	view := state.NewView(e.reader)
	for addr, slots := range p.Overrides {
		for slot, value := range slots {
			view.SetOverride(addr, slot, value)
		}
	}

	gasLimit := unboundedGasCap
	if p.GasLimit != nil {
		gasLimit = *p.GasLimit
	}

	blockCtx := vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash: func(n uint64) common.Hash {
			h, _ := e.reader.BlockHashRef(n)
			return h
		},
		Coinbase:    common.Address{},
		GasLimit:    gasLimit,
		BlockNumber: new(big.Int).SetUint64(p.BlockNumber),
		Time:        p.Timestamp,
		Difficulty:  new(big.Int),
		BaseFee:     new(big.Int),
	}

	msg := &core.Message{
		From:              p.Caller,
		To:                p.To,
		Nonce:             view.GetNonce(p.Caller),
		Value:             valueAsBig(p.Value),
		GasLimit:          gasLimit,
		GasPrice:          new(big.Int),
		GasFeeCap:         new(big.Int),
		GasTipCap:         new(big.Int),
		Data:              p.Calldata,
		SkipAccountChecks: true,
	}

	evm := vm.NewEVM(blockCtx, view, e.config, vm.Config{})
	gp := new(core.GasPool).AddGas(gasLimit)

	result, err := core.ApplyMessage(evm, msg, gp)
	if err != nil {
		// Internal interpreter failure (e.g. intrinsic gas too low) rather
		// than an on-chain revert: no state was touched.
		return nil, &simerrors.TransactionError{Message: err.Error()}
	}

	used := result.UsedGas
	if result.Failed() {
		return nil, &simerrors.TransactionError{
			Data:    result.ReturnData,
			GasUsed: used,
			Message: "execution reverted",
		}
	}

	return &Result{
		ReturnData:   result.ReturnData,
		GasUsed:      used,
		StateUpdates: view.Diff(),
	}, nil
}

func valueAsBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

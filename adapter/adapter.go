// Package adapter implements the Adapter Contract Layer: a uniform driver
// for the family of on-chain "swap adapter" contracts, encoding/decoding
// calls against a single ISwapAdapter ABI and classifying revert payloads.
// Grounded on this repository's own protocol-simulation ancestor
// (adapter_contract.rs / protosim_contract.rs): one Contract wraps one
// Simulation Engine and one adapter address, same method surface
// (Price/Swap/GetLimits/GetCapabilities/MinGasUsage), same
// encode-selector-then-pack approach — except encoding and decoding here
// are delegated to github.com/ethereum/go-ethereum/accounts/abi rather than
// hand-rolled, since go-ethereum is already this repository's EVM
// dependency and its ABI package is the canonical Go implementation of the
// same encoding rules.
package adapter

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/lamina-labs/evmsim/simerrors"
	"github.com/lamina-labs/evmsim/simulation"
)

// Engine is the subset of simulation.Engine the adapter layer depends on,
// narrowed to keep this package testable without constructing a full
// go-ethereum EVM.
type Engine interface {
	Simulate(p simulation.Params) (*simulation.Result, error)
}

// Contract drives one adapter contract address against one Engine, using
// the parsed ISwapAdapter ABI for encode/decode.
type Contract struct {
	engine  Engine
	address common.Address
	abi     abi.ABI
}

// New builds a Contract targeting address, calling through engine, using
// the already-parsed ABI contractABI (typically loaded once via
// assets.ABILoader and shared across every adapter instance).
func New(engine Engine, address common.Address, contractABI abi.ABI) *Contract {
	return &Contract{engine: engine, address: address, abi: contractABI}
}

// ComputeSelector returns the 4-byte function selector for signature
// (e.g. "getCapabilities(bytes32,address,address)"): the first four bytes
// of keccak256(signature). This is exactly what abi.Method.ID computes
// internally; the wrapper exists so callers can verify the round-trip law
// of spec.md §8 without constructing a full abi.ABI.
func ComputeSelector(signature string) [4]byte {
	hash := crypto.Keccak256([]byte(signature))
	var out [4]byte
	copy(out[:], hash[:4])
	return out
}

// CallResult is a call's decoded outputs plus the full underlying
// simulation result, so callers can inspect gas usage and the state diff
// even when ABI decoding of the return value failed.
type CallResult struct {
	Values []interface{}
	Sim    *simulation.Result
}

// Fraction is a (numerator, denominator) price pair as the adapter ABI
// returns it. Denominator is never zero in a value returned by
// decodeFraction or decodeFractionArray — DecodingError is returned instead.
type Fraction struct {
	Numerator   *big.Int
	Denominator *big.Int
}

// Float64 converts the fraction to a float64. Any precision loss beyond
// what float64 itself imposes is the caller's concern, per spec.md §4.5.
func (f Fraction) Float64() float64 {
	n := new(big.Float).SetInt(f.Numerator)
	d := new(big.Float).SetInt(f.Denominator)
	out, _ := new(big.Float).Quo(n, d).Float64()
	return out
}

func (c *Contract) call(fname string, args []interface{}, p simulation.Params) (*CallResult, error) {
	method, ok := c.abi.Methods[fname]
	if !ok {
		return nil, &simerrors.EncodingError{Reason: "unknown adapter method " + fname}
	}
	packed, err := c.abi.Pack(fname, args...)
	if err != nil {
		return nil, &simerrors.EncodingError{Reason: err.Error()}
	}

	p.To = &c.address
	p.Calldata = packed

	res, err := c.engine.Simulate(p)
	if err != nil {
		var gasLimit uint64
		if p.GasLimit != nil {
			gasLimit = *p.GasLimit
		}
		return nil, MaybeCoerceError(err, gasLimit)
	}

	values, decErr := method.Outputs.Unpack(res.ReturnData)
	if decErr != nil {
		// Still a well-formed response: callers can inspect gas and state
		// diff even though the return value itself didn't decode.
		return &CallResult{Values: nil, Sim: res}, nil
	}
	return &CallResult{Values: values, Sim: res}, nil
}

func baseParams(blockNumber uint64, overrides map[common.Address]map[common.Hash]common.Hash) simulation.Params {
	return simulation.Params{
		Value:       uint256.NewInt(0),
		Overrides:   overrides,
		BlockNumber: blockNumber,
		Timestamp:   0,
	}
}

// Price calls the adapter's price(bytes32,address,address,uint256[])
// function and returns the decoded (numerator, denominator) pairs as
// finite rationals. poolID is the pair's raw 32-byte identifier.
func (c *Contract) Price(poolID [32]byte, sellToken, buyToken common.Address, amounts []*big.Int, blockNumber uint64, overrides map[common.Address]map[common.Hash]common.Hash) ([]Fraction, error) {
	amountTokens := make([]*big.Int, len(amounts))
	copy(amountTokens, amounts)

	res, err := c.call("price", []interface{}{poolID, sellToken, buyToken, amountTokens}, baseParams(blockNumber, overrides))
	if err != nil {
		return nil, err
	}
	if len(res.Values) == 0 {
		return nil, &simerrors.DecodingError{Reason: "price: empty return value"}
	}
	return decodeFractionArray(res.Values[0])
}

// Swap calls the adapter's swap function and returns the received amount,
// gas used, the effective price, and the full simulation result (callers
// decide whether to persist the resulting state diff via SDB.UpdateState).
type SwapTrade struct {
	ReceivedAmount *big.Int
	GasUsed        *big.Int
	Price          Fraction
}

func (c *Contract) Swap(poolID [32]byte, sellToken, buyToken common.Address, isBuy bool, amount *big.Int, blockNumber uint64, overrides map[common.Address]map[common.Hash]common.Hash) (*SwapTrade, *simulation.Result, error) {
	res, err := c.call("swap", []interface{}{poolID, sellToken, buyToken, isBuy, amount}, baseParams(blockNumber, overrides))
	if err != nil {
		return nil, nil, err
	}
	if len(res.Values) < 3 {
		return nil, res.Sim, &simerrors.DecodingError{Reason: "swap: incomplete return value"}
	}
	received, ok := res.Values[0].(*big.Int)
	if !ok {
		return nil, res.Sim, &simerrors.DecodingError{Reason: "swap: unexpected receivedAmount type"}
	}
	gasUsed, ok := res.Values[1].(*big.Int)
	if !ok {
		return nil, res.Sim, &simerrors.DecodingError{Reason: "swap: unexpected gasUsed type"}
	}
	price, err := decodeFraction(res.Values[2])
	if err != nil {
		return nil, res.Sim, err
	}
	return &SwapTrade{ReceivedAmount: received, GasUsed: gasUsed, Price: price}, res.Sim, nil
}

// GetLimits calls the adapter's getLimits function and returns (sellLimit,
// buyLimit).
func (c *Contract) GetLimits(poolID [32]byte, sellToken, buyToken common.Address, blockNumber uint64, overrides map[common.Address]map[common.Hash]common.Hash) (sellLimit, buyLimit *big.Int, err error) {
	res, err := c.call("getLimits", []interface{}{poolID, sellToken, buyToken}, baseParams(blockNumber, overrides))
	if err != nil {
		return nil, nil, err
	}
	if len(res.Values) < 2 {
		return nil, nil, &simerrors.DecodingError{Reason: "getLimits: incomplete return value"}
	}
	sellLimit, ok := res.Values[0].(*big.Int)
	if !ok {
		return nil, nil, &simerrors.DecodingError{Reason: "getLimits: unexpected sellLimit type"}
	}
	buyLimit, ok = res.Values[1].(*big.Int)
	if !ok {
		return nil, nil, &simerrors.DecodingError{Reason: "getLimits: unexpected buyLimit type"}
	}
	return sellLimit, buyLimit, nil
}

// GetCapabilities calls the adapter's getCapabilities function and decodes
// each returned value through CapabilityFromUint.
func (c *Contract) GetCapabilities(poolID [32]byte, sellToken, buyToken common.Address) (map[Capability]struct{}, error) {
	res, err := c.call("getCapabilities", []interface{}{poolID, sellToken, buyToken}, baseParams(1, nil))
	if err != nil {
		return nil, err
	}
	if len(res.Values) == 0 {
		return nil, &simerrors.DecodingError{Reason: "getCapabilities: empty return value"}
	}
	raw, ok := res.Values[0].([]*big.Int)
	if !ok {
		return nil, &simerrors.DecodingError{Reason: "getCapabilities: unexpected return type"}
	}
	out := make(map[Capability]struct{}, len(raw))
	for _, v := range raw {
		cap, err := CapabilityFromUint(v)
		if err != nil {
			return nil, err
		}
		out[cap] = struct{}{}
	}
	return out, nil
}

// MinGasUsage calls the adapter's minGasUsage function.
func (c *Contract) MinGasUsage() (*big.Int, error) {
	res, err := c.call("minGasUsage", nil, baseParams(1, nil))
	if err != nil {
		return nil, err
	}
	if len(res.Values) == 0 {
		return nil, &simerrors.DecodingError{Reason: "minGasUsage: empty return value"}
	}
	gas, ok := res.Values[0].(*big.Int)
	if !ok {
		return nil, &simerrors.DecodingError{Reason: "minGasUsage: unexpected return type"}
	}
	return gas, nil
}

func decodeFraction(v interface{}) (Fraction, error) {
	tuple, ok := v.(struct {
		Numerator   *big.Int
		Denominator *big.Int
	})
	if ok {
		if tuple.Denominator.Sign() == 0 {
			return Fraction{}, &simerrors.DecodingError{Reason: "price fraction has zero denominator"}
		}
		return Fraction{Numerator: tuple.Numerator, Denominator: tuple.Denominator}, nil
	}
	// abi.Unpack returns anonymous structs whose fields carry json tags, so
	// the untagged struct above does not match them; fall back to reflective
	// field access by the exact field names "Numerator"/"Denominator".
	return decodeFractionReflect(v)
}

func decodeFractionArray(v interface{}) ([]Fraction, error) {
	raw, ok := v.([]struct {
		Numerator   *big.Int
		Denominator *big.Int
	})
	if !ok {
		return decodeFractionArrayReflect(v)
	}
	out := make([]Fraction, 0, len(raw))
	for _, f := range raw {
		if f.Denominator.Sign() == 0 {
			return nil, &simerrors.DecodingError{Reason: "price fraction has zero denominator"}
		}
		out = append(out, Fraction{Numerator: f.Numerator, Denominator: f.Denominator})
	}
	return out, nil
}

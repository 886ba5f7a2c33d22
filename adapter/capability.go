package adapter

import (
	"math/big"

	"github.com/lamina-labs/evmsim/simerrors"
)

// Capability enumerates the behavioral flags an adapter contract may
// advertise through getCapabilities, per spec.md §4.5.
type Capability int

const (
	SellSide Capability = iota + 1
	BuySide
	PriceFunction
	FeeOnTransfer
	ConstantPrice
	TokenBalanceIndependent
	ScaledPrice
	HardLimits
	MarginalPrice
)

func (c Capability) String() string {
	switch c {
	case SellSide:
		return "SellSide"
	case BuySide:
		return "BuySide"
	case PriceFunction:
		return "PriceFunction"
	case FeeOnTransfer:
		return "FeeOnTransfer"
	case ConstantPrice:
		return "ConstantPrice"
	case TokenBalanceIndependent:
		return "TokenBalanceIndependent"
	case ScaledPrice:
		return "ScaledPrice"
	case HardLimits:
		return "HardLimits"
	case MarginalPrice:
		return "MarginalPrice"
	default:
		return "Unknown"
	}
}

// CapabilityFromUint decodes one raw on-chain capability value. Values
// outside 1..9 are a DecodingError: the adapter contract's ABI contract is
// violated, not an unknown-but-ignorable extension.
func CapabilityFromUint(v *big.Int) (Capability, error) {
	if !v.IsInt64() {
		return 0, &simerrors.DecodingError{Reason: "capability value out of range"}
	}
	n := v.Int64()
	if n < int64(SellSide) || n > int64(MarginalPrice) {
		return 0, &simerrors.DecodingError{Reason: "unknown capability value"}
	}
	return Capability(n), nil
}

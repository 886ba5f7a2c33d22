package adapter

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/lamina-labs/evmsim/simerrors"
)

// errorSelector and panicSelector are the selectors Solidity emits for its
// two built-in revert encodings: Error(string) for require()/revert("...")
// and Panic(uint256) for assert()/arithmetic/array-bounds failures.
var (
	errorSelector = [4]byte{0x08, 0xc3, 0x79, 0xa0}
	panicSelector = [4]byte{0x4e, 0x48, 0x7b, 0x71}
)

// outOfGasThreshold is the fraction of gasLimit consumption above which a
// plain revert is reclassified as OutOfGas, per spec.md §4.5.
const outOfGasThreshold = 0.97

// panicCodes maps the Panic(uint256) argument to Solidity's documented
// panic reasons. Values follow spec.md §4.5's table; 0x31 is EmptyArray, not
// the decimal-51 mapping the upstream simulator's own table used, since
// 0x31 (decimal 49) is what the Solidity compiler itself emits for
// pop() on an empty array.
var panicCodes = map[int64]string{
	0x00: "Generic",
	0x01: "AssertionError",
	0x11: "ArithmeticOverflow",
	0x12: "DivideByZero",
	0x21: "InvalidEnumValue",
	0x22: "InvalidStorageByteArray",
	0x31: "EmptyArray",
	0x32: "ArrayOutOfBounds",
	0x41: "OutOfMemory",
	0x51: "UninitializedFunctionPointer",
}

var stringArgs = abi.Arguments{{Type: mustType("string")}}
var uint256Args = abi.Arguments{{Type: mustType("uint256")}}

func mustType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

// MaybeCoerceError inspects the error returned by the engine's Simulate
// call and, if it carries a TransactionError, reclassifies it as OutOfGas
// when gas usage crossed outOfGasThreshold of gasLimit or the revert
// payload carries the literal "OutOfGas" marker. A TransactionError that is
// not reclassified comes back as a new TransactionError whose Message is the
// decoded revert reason (or the original Message when none decodes); every
// non-TransactionError passes through unchanged.
func MaybeCoerceError(err error, gasLimit uint64) error {
	txErr, ok := err.(*simerrors.TransactionError)
	if !ok {
		return err
	}

	message := ParseRevert(txErr.Data)
	if message == "" {
		message = txErr.Message
	}

	if strings.Contains(message, "OutOfGas") {
		return &simerrors.OutOfGas{Message: message}
	}
	if gasLimit > 0 && float64(txErr.GasUsed)/float64(gasLimit) >= outOfGasThreshold {
		return &simerrors.OutOfGas{Message: message}
	}

	return &simerrors.TransactionError{Data: txErr.Data, GasUsed: txErr.GasUsed, Message: message}
}

// ParseRevert decodes a revert payload produced by require()/revert("...")
// (Error(string)) or assert()/panic (Panic(uint256)) into a human-readable
// message. Selectors outside those two built-ins fall through to a plain
// string decode of the whole payload, then of the payload from offset 4
// (the custom-error heuristic, for contracts that revert with a
// non-standard 4-byte-prefixed string encoding); a payload that decodes
// under none of these yields an empty string rather than an error, since an
// opaque revert is still a valid one.
func ParseRevert(data []byte) string {
	if len(data) >= 4 {
		var selector [4]byte
		copy(selector[:], data[:4])

		switch selector {
		case errorSelector:
			values, err := stringArgs.Unpack(data[4:])
			if err == nil && len(values) > 0 {
				if msg, ok := values[0].(string); ok {
					return msg
				}
			}
			return ""
		case panicSelector:
			values, err := uint256Args.Unpack(data[4:])
			if err == nil && len(values) > 0 {
				if code, ok := values[0].(*big.Int); ok {
					if name, known := panicCodes[code.Int64()]; known {
						return name
					}
					return fmt.Sprintf("Panic(%s)", code.String())
				}
			}
			return ""
		}
	}

	if values, err := stringArgs.Unpack(data); err == nil && len(values) > 0 {
		if msg, ok := values[0].(string); ok {
			return msg
		}
	}
	if len(data) >= 4 {
		if values, err := stringArgs.Unpack(data[4:]); err == nil && len(values) > 0 {
			if msg, ok := values[0].(string); ok {
				return msg
			}
		}
	}
	return ""
}

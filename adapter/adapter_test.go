package adapter

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/lamina-labs/evmsim/simerrors"
	"github.com/lamina-labs/evmsim/simulation"
)

func TestComputeSelectorGetCapabilities(t *testing.T) {
	got := ComputeSelector("getCapabilities(bytes32,address,address)")
	want := "48bd7dfd"
	if hex.EncodeToString(got[:]) != want {
		t.Fatalf("selector = %x, want %s", got, want)
	}
}

func TestParseRevertErrorString(t *testing.T) {
	args := abi.Arguments{{Type: mustType("string")}}
	packed, err := args.Pack("Amount too low")
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	data := append(append([]byte{}, errorSelector[:]...), packed...)

	got := ParseRevert(data)
	if got != "Amount too low" {
		t.Fatalf("ParseRevert = %q, want %q", got, "Amount too low")
	}
}

func TestParseRevertPanicAssertion(t *testing.T) {
	args := abi.Arguments{{Type: mustType("uint256")}}
	packed, err := args.Pack(big.NewInt(0x01))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	data := append(append([]byte{}, panicSelector[:]...), packed...)

	got := ParseRevert(data)
	if got != "AssertionError" {
		t.Fatalf("ParseRevert = %q, want AssertionError", got)
	}
}

func TestParseRevertEmptyArrayPanicCode(t *testing.T) {
	args := abi.Arguments{{Type: mustType("uint256")}}
	packed, err := args.Pack(big.NewInt(0x31))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	data := append(append([]byte{}, panicSelector[:]...), packed...)

	got := ParseRevert(data)
	if got != "EmptyArray" {
		t.Fatalf("ParseRevert = %q, want EmptyArray", got)
	}
}

func TestParseRevertUnknownPanicCodeFormats(t *testing.T) {
	args := abi.Arguments{{Type: mustType("uint256")}}
	packed, err := args.Pack(big.NewInt(0x42))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	data := append(append([]byte{}, panicSelector[:]...), packed...)

	got := ParseRevert(data)
	if got != "Panic(66)" {
		t.Fatalf("ParseRevert = %q, want Panic(66)", got)
	}
}

func TestParseRevertCustomErrorOffsetFallback(t *testing.T) {
	args := abi.Arguments{{Type: mustType("string")}}
	packed, err := args.Pack("custom failure")
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	// Prefix with a selector that is neither Error(string) nor
	// Panic(uint256); ParseRevert must fall back to decoding the payload
	// from offset 4 as a plain string.
	data := append([]byte{0xde, 0xad, 0xbe, 0xef}, packed...)

	got := ParseRevert(data)
	if got != "custom failure" {
		t.Fatalf("ParseRevert = %q, want %q", got, "custom failure")
	}
}

func TestMaybeCoerceErrorOutOfGasThreshold(t *testing.T) {
	below := &simerrors.TransactionError{GasUsed: 96, Message: "reverted"}
	if _, ok := MaybeCoerceError(below, 100).(*simerrors.OutOfGas); ok {
		t.Fatalf("96%% usage must not reclassify as OutOfGas")
	}

	above := &simerrors.TransactionError{GasUsed: 97, Message: "reverted"}
	if _, ok := MaybeCoerceError(above, 100).(*simerrors.OutOfGas); !ok {
		t.Fatalf("97%% usage must reclassify as OutOfGas")
	}
}

func TestMaybeCoerceErrorLiteralMarker(t *testing.T) {
	txErr := &simerrors.TransactionError{GasUsed: 1, Message: "execution failed: OutOfGas"}
	out, ok := MaybeCoerceError(txErr, 1000).(*simerrors.OutOfGas)
	if !ok {
		t.Fatalf("literal OutOfGas marker must reclassify regardless of usage ratio")
	}
	if !strings.Contains(out.Message, "OutOfGas") {
		t.Fatalf("expected message to carry through, got %q", out.Message)
	}
}

func TestMaybeCoerceErrorPassthrough(t *testing.T) {
	plain := &simerrors.StorageError{Reason: "corrupt"}
	if MaybeCoerceError(plain, 100) != plain {
		t.Fatalf("non-TransactionError must pass through unchanged")
	}
}

func TestCapabilityFromUintUnknownValue(t *testing.T) {
	if _, err := CapabilityFromUint(big.NewInt(99)); err == nil {
		t.Fatalf("expected a decoding error for an out-of-range capability value")
	}
	cap, err := CapabilityFromUint(big.NewInt(int64(MarginalPrice)))
	if err != nil || cap != MarginalPrice {
		t.Fatalf("MarginalPrice round-trip failed: %v %v", cap, err)
	}
}

// fakeEngine lets the adapter tests exercise Contract.call without a real
// EVM; it returns ABI-encoded outputs built from the handler for the
// requested calldata's selector.
type fakeEngine struct {
	abi     abi.ABI
	handler func(method string, args []interface{}) ([]interface{}, error)
}

func (e *fakeEngine) Simulate(p simulation.Params) (*simulation.Result, error) {
	for name, method := range e.abi.Methods {
		if len(p.Calldata) < 4 {
			continue
		}
		var sel [4]byte
		copy(sel[:], method.ID)
		if string(sel[:]) != string(p.Calldata[:4]) {
			continue
		}
		args, err := method.Inputs.Unpack(p.Calldata[4:])
		if err != nil {
			return nil, err
		}
		outs, err := e.handler(name, args)
		if err != nil {
			return nil, err
		}
		packed, err := method.Outputs.Pack(outs...)
		if err != nil {
			return nil, err
		}
		return &simulation.Result{ReturnData: packed, GasUsed: 21000}, nil
	}
	return nil, &simerrors.EncodingError{Reason: "fakeEngine: no matching method"}
}

func testABI(t *testing.T) abi.ABI {
	t.Helper()
	const raw = `[
		{"type":"function","name":"getLimits","inputs":[{"name":"poolId","type":"bytes32"},{"name":"sellToken","type":"address"},{"name":"buyToken","type":"address"}],"outputs":[{"name":"sellLimit","type":"uint256"},{"name":"buyLimit","type":"uint256"}],"stateMutability":"view"},
		{"type":"function","name":"getCapabilities","inputs":[{"name":"poolId","type":"bytes32"},{"name":"sellToken","type":"address"},{"name":"buyToken","type":"address"}],"outputs":[{"name":"capabilities","type":"uint256[]"}],"stateMutability":"view"},
		{"type":"function","name":"minGasUsage","inputs":[],"outputs":[{"name":"gas","type":"uint256"}],"stateMutability":"view"},
		{"type":"function","name":"price","inputs":[{"name":"poolId","type":"bytes32"},{"name":"sellToken","type":"address"},{"name":"buyToken","type":"address"},{"name":"amounts","type":"uint256[]"}],"outputs":[{"name":"prices","type":"tuple[]","components":[{"name":"numerator","type":"uint256"},{"name":"denominator","type":"uint256"}]}],"stateMutability":"view"}
	]`
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parse test ABI: %v", err)
	}
	return parsed
}

func TestContractGetLimits(t *testing.T) {
	a := testABI(t)
	engine := &fakeEngine{abi: a, handler: func(method string, args []interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(1000), big.NewInt(2000)}, nil
	}}
	c := New(engine, common.HexToAddress("0x1"), a)

	sell, buy, err := c.GetLimits([32]byte{}, common.HexToAddress("0x2"), common.HexToAddress("0x3"), 1, nil)
	if err != nil {
		t.Fatalf("GetLimits: %v", err)
	}
	if sell.Cmp(big.NewInt(1000)) != 0 || buy.Cmp(big.NewInt(2000)) != 0 {
		t.Fatalf("unexpected limits: %v %v", sell, buy)
	}
}

func TestContractGetCapabilitiesDecoding(t *testing.T) {
	a := testABI(t)
	engine := &fakeEngine{abi: a, handler: func(method string, args []interface{}) ([]interface{}, error) {
		return []interface{}{[]*big.Int{big.NewInt(int64(SellSide)), big.NewInt(int64(BuySide))}}, nil
	}}
	c := New(engine, common.HexToAddress("0x1"), a)

	caps, err := c.GetCapabilities([32]byte{}, common.HexToAddress("0x2"), common.HexToAddress("0x3"))
	if err != nil {
		t.Fatalf("GetCapabilities: %v", err)
	}
	if _, ok := caps[SellSide]; !ok {
		t.Fatalf("expected SellSide capability")
	}
	if _, ok := caps[BuySide]; !ok {
		t.Fatalf("expected BuySide capability")
	}
}

func TestContractPriceRoundTrip(t *testing.T) {
	a := testABI(t)
	engine := &fakeEngine{abi: a, handler: func(method string, args []interface{}) ([]interface{}, error) {
		return []interface{}{[]struct {
			Numerator   *big.Int
			Denominator *big.Int
		}{{Numerator: big.NewInt(3), Denominator: big.NewInt(2)}}}, nil
	}}
	c := New(engine, common.HexToAddress("0x1"), a)

	prices, err := c.Price([32]byte{}, common.HexToAddress("0x2"), common.HexToAddress("0x3"), []*big.Int{big.NewInt(100)}, 1, nil)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if len(prices) != 1 || prices[0].Float64() != 1.5 {
		t.Fatalf("unexpected prices: %+v", prices)
	}
}

func TestContractMinGasUsage(t *testing.T) {
	a := testABI(t)
	engine := &fakeEngine{abi: a, handler: func(method string, args []interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(50000)}, nil
	}}
	c := New(engine, common.HexToAddress("0x1"), a)

	gas, err := c.MinGasUsage()
	if err != nil {
		t.Fatalf("MinGasUsage: %v", err)
	}
	if gas.Cmp(big.NewInt(50000)) != 0 {
		t.Fatalf("unexpected gas: %v", gas)
	}
}

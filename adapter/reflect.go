package adapter

import (
	"math/big"
	"reflect"

	"github.com/lamina-labs/evmsim/simerrors"
)

// decodeFractionReflect and decodeFractionArrayReflect handle the case
// where go-ethereum's abi package generates a tuple struct that is not
// identical to the untagged "Numerator"/"Denominator" anonymous struct used
// as the fast path (the generated fields carry json tags). Both look the
// fields up by the exact names "Numerator" and "Denominator"; a tuple whose
// components are named otherwise is reported as a DecodingError.
func decodeFractionReflect(v interface{}) (Fraction, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Struct {
		return Fraction{}, &simerrors.DecodingError{Reason: "price fraction: unexpected tuple shape"}
	}
	num, ok1 := fieldBigInt(rv, "Numerator")
	den, ok2 := fieldBigInt(rv, "Denominator")
	if !ok1 || !ok2 {
		return Fraction{}, &simerrors.DecodingError{Reason: "price fraction: missing numerator/denominator field"}
	}
	if den.Sign() == 0 {
		return Fraction{}, &simerrors.DecodingError{Reason: "price fraction has zero denominator"}
	}
	return Fraction{Numerator: num, Denominator: den}, nil
}

func decodeFractionArrayReflect(v interface{}) ([]Fraction, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, &simerrors.DecodingError{Reason: "price: unexpected array tuple shape"}
	}
	out := make([]Fraction, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		f, err := decodeFractionReflect(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func fieldBigInt(rv reflect.Value, name string) (*big.Int, bool) {
	field := rv.FieldByName(name)
	if !field.IsValid() {
		return nil, false
	}
	n, ok := field.Interface().(*big.Int)
	return n, ok
}

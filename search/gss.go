// Package search implements the Numeric Search component: a fixed-point
// golden-section search over a monotone-ish integer-valued objective, plus
// the bracket-expansion routine that seeds it when the caller does not want
// to honour an initial bound. Grounded on this repository's own
// protocol-simulation ancestor (gss.rs): same fixed-point constants, same
// two-phase contraction loop, ported to math/big.Int because the bracket
// expansion routinely produces negative intermediate values that
// github.com/holiman/uint256.Int (unsigned-only) cannot represent.
package search

import "math/big"

// Fixed-point golden-ratio constants, denominator 2^32. Do not substitute
// floating point — the rounding behaviour of integer mul_div is part of the
// documented (if surprising) contract, see gssRoundingNote in gss_test.go.
const (
	invPhi      = 2654435769 // (sqrt(5)-1)/2 * 2^32
	invPhi2     = 1640531526 // (3-sqrt(5))/2 * 2^32
	goldenRatio = 6949403065 // (1+sqrt(5))/2 * 2^32
	fixedDenom  = 4294967296 // 2^32

	growLimit      = 110
	maxBracketIter = 1000
)

// Func is the objective golden-section search minimizes.
type Func func(x *big.Int) *big.Int

var (
	maxInt256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	minInt256 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// MulDiv computes (a*b)/d truncating toward zero, as a signed-256-bit
// operation. Overflow — the product or quotient escaping the signed 256-bit
// range — is a fatal invariant break, not a recoverable error, per the
// re-architecture guidance around this routine: panics rather than
// returning an error.
func MulDiv(a, b, d *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	if product.Cmp(maxInt256) > 0 || product.Cmp(minInt256) < 0 {
		panic("search: mul_div overflow")
	}
	result := new(big.Int).Quo(product, d)
	if result.Cmp(maxInt256) > 0 || result.Cmp(minInt256) < 0 {
		panic("search: mul_div overflow")
	}
	return result
}

func clampNonNegative(x *big.Int) *big.Int {
	if x.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Set(x)
}

// ToUint256 reinterprets a GSS output bound for unsigned 256-bit callers
// (swap amounts, limits): negative values clamp to zero, matching the
// I256_to_U256 conversion the original search routine performs at its exit
// points rather than mid-computation.
func ToUint256(x *big.Int) *big.Int {
	return clampNonNegative(x)
}

// GSS finds the minimizer of f on [lo, hi] via golden-section search.
//
//   - If lo > hi, the bounds are swapped first.
//   - If honourBounds is true, the search starts from the supplied interval
//     directly; otherwise it first calls Bracket to expand outward from
//     [lo, hi] until a true bracket is found, and searches that instead.
//   - Up to maxIter contraction steps run; each step keeps the two interior
//     probes xc < xd, moves toward whichever has the smaller image, and
//     recomputes the opposite interior probe.
//   - If hi-lo <= tol before the loop starts, the bounds are returned
//     immediately without ever evaluating an interior probe.
//
// Returned bounds are clamped to zero (never negative), since callers treat
// them as swap-amount-shaped unsigned quantities.
func GSS(f Func, lo, hi, tol *big.Int, maxIter int, honourBounds bool) (*big.Int, *big.Int) {
	if lo.Cmp(hi) > 0 {
		lo, hi = hi, lo
	}
	lo = new(big.Int).Set(lo)
	hi = new(big.Int).Set(hi)

	invPhiB := big.NewInt(invPhi)
	invPhi2B := big.NewInt(invPhi2)
	denomB := big.NewInt(fixedDenom)

	h := new(big.Int).Sub(hi, lo)
	if h.Cmp(tol) <= 0 {
		return clampNonNegative(lo), clampNonNegative(hi)
	}

	var xc, yc *big.Int
	if honourBounds {
		xc = new(big.Int).Add(lo, MulDiv(invPhi2B, h, denomB))
		yc = f(xc)
	} else {
		lo, hi, xc, yc = Bracket(f, lo, hi)
		h = new(big.Int).Sub(hi, lo)
	}

	xd := new(big.Int).Add(lo, MulDiv(invPhiB, h, denomB))
	yd := f(xd)

	for i := 0; i < maxIter; i++ {
		if yc.Cmp(yd) < 0 {
			hi = xd
			xd = xc
			yd = yc
			h = MulDiv(invPhiB, h, denomB)
			xc = new(big.Int).Add(lo, MulDiv(invPhi2B, h, denomB))
			yc = f(xc)
		} else {
			lo = xc
			xc = xd
			yc = yd
			h = MulDiv(invPhiB, h, denomB)
			xd = new(big.Int).Add(lo, MulDiv(invPhiB, h, denomB))
			yd = f(xd)
		}
	}

	if yc.Cmp(yd) < 0 {
		return clampNonNegative(lo), clampNonNegative(xd)
	}
	return clampNonNegative(xc), clampNonNegative(hi)
}

// Bracket expands outward from [lo, hi] using the golden ratio and a
// parabolic-fit step (Numerical Recipes' downhill bracket algorithm),
// capping growth at growLimit per expansion. Panics if no bracket is found
// within maxBracketIter iterations — bracket expansion that never
// terminates indicates the objective is not unimodal in any reachable
// direction, which is a configuration error, not a recoverable one.
//
// Returns (lo, hi, xc, yc) suitable as GSS's starting state with
// honourBounds=false. Note lo/hi may come back swapped relative to the
// input order: if f(lo) < f(hi) the two bounds are exchanged up front, and
// every early-exit branch below reports whichever ordering the probe
// actually settled on.
func Bracket(f Func, lo, hi *big.Int) (rlo, rhi, rxc, ryc *big.Int) {
	minB := new(big.Int).Set(lo)
	maxB := new(big.Int).Set(hi)

	goldenRatioB := big.NewInt(goldenRatio)
	denomB := big.NewInt(fixedDenom)
	verySmall := big.NewInt(100)
	verySmallDenom, _ := new(big.Int).SetString("100000000000000000000000", 10)

	ya := f(minB)
	yb := f(maxB)
	if ya.Cmp(yb) < 0 {
		minB, maxB = maxB, minB
		ya, yb = yb, ya
	}

	xc := new(big.Int).Add(maxB, MulDiv(goldenRatioB, new(big.Int).Sub(maxB, minB), denomB))
	yc := f(xc)
	yw := big.NewInt(0)
	iter := 0

	for yc.Cmp(yb) < 0 {
		tmp1 := new(big.Int).Mul(new(big.Int).Sub(maxB, minB), new(big.Int).Sub(yb, yc))
		tmp2 := new(big.Int).Mul(new(big.Int).Sub(maxB, xc), new(big.Int).Sub(yb, ya))
		val := new(big.Int).Sub(tmp2, tmp1)

		var stepDenom *big.Int
		if val.Cmp(verySmall) < 0 {
			stepDenom = new(big.Int).Quo(new(big.Int).Mul(big.NewInt(2), verySmall), verySmallDenom)
		} else {
			stepDenom = new(big.Int).Mul(big.NewInt(2), val)
		}

		numer := new(big.Int).Sub(
			new(big.Int).Mul(new(big.Int).Sub(maxB, xc), tmp2),
			new(big.Int).Mul(new(big.Int).Sub(maxB, minB), tmp1),
		)
		w := new(big.Int).Sub(maxB, new(big.Int).Quo(numer, stepDenom))
		wlim := new(big.Int).Add(maxB, new(big.Int).Mul(big.NewInt(growLimit), new(big.Int).Sub(xc, maxB)))

		iter++
		if iter > maxBracketIter {
			panic("search: bracket exceeded iteration limit")
		}

		cond1 := new(big.Int).Mul(new(big.Int).Sub(w, xc), new(big.Int).Sub(maxB, w))
		branched := false
		if cond1.Sign() > 0 {
			yw = f(w)
			if yw.Cmp(yc) < 0 {
				return w, new(big.Int).Set(maxB), xc, yc
			} else if yw.Cmp(yb) > 0 {
				return minB, maxB, w, yw
			}
			w = new(big.Int).Add(xc, MulDiv(goldenRatioB, new(big.Int).Sub(xc, maxB), denomB))
			yw = f(w)
			branched = true
		}
		if !branched {
			cond2 := new(big.Int).Mul(new(big.Int).Sub(w, wlim), new(big.Int).Sub(wlim, xc))
			if cond2.Sign() >= 0 {
				w = wlim
				yw = f(w)
			} else {
				cond3 := new(big.Int).Mul(new(big.Int).Sub(w, wlim), new(big.Int).Sub(xc, w))
				if cond3.Sign() > 0 {
					yw = f(w)
					if yw.Cmp(yc) < 0 {
						maxB = xc
						xc = w
						w = new(big.Int).Add(xc, MulDiv(goldenRatioB, new(big.Int).Sub(xc, maxB), denomB))
						yb = yc
						yc = yw
						yw = f(w)
					}
				} else {
					w = new(big.Int).Add(xc, MulDiv(goldenRatioB, new(big.Int).Sub(xc, maxB), denomB))
					yw = f(w)
				}
			}
		}

		minB = maxB
		maxB = xc
		xc = w
		ya = yb
		yb = yc
		yc = yw
	}

	return minB, maxB, xc, yc
}

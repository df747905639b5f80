// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// checkPublicAmount computes the expected public-amount field element P
// for spec.md §4.4 step 4. Go has no native checked-arithmetic
// primitive and the teacher doesn't model checked arithmetic either
// (Solidity/EVM wrap instead), so the i64::MIN guard and the strict
// fee-less-than-amount check are explicit bound checks rather than a
// library call.
func checkPublicAmount(extAmount int64, fee uint64) (fr.Element, error) {
	if extAmount == math.MinInt64 {
		return fr.Element{}, ErrInvalidExtAmount
	}

	var p fr.Element
	if extAmount >= 0 {
		amount := uint64(extAmount)
		if !(fee < amount) {
			return fr.Element{}, ErrInvalidPublicAmountData
		}
		var amountFr, feeFr fr.Element
		amountFr.SetUint64(amount)
		feeFr.SetUint64(fee)
		p.Sub(&amountFr, &feeFr)
		return p, nil
	}

	// extAmount < 0; i64::MIN already excluded above so -extAmount fits.
	magnitude := uint64(-extAmount)
	var magnitudeFr, feeFr, sum fr.Element
	magnitudeFr.SetUint64(magnitude)
	feeFr.SetUint64(fee)
	sum.Add(&magnitudeFr, &feeFr)
	p.Neg(&sum)
	return p, nil
}

// validateFee implements spec.md §4.4 step 5: floor-division fee-rate
// and margin checks with overflow detection via math/bits, since Go
// integers otherwise wrap silently.
func validateFee(extAmount int64, providedFee uint64, depositRate, withdrawalRate, feeErrorMargin uint16) error {
	if extAmount == math.MinInt64 {
		return ErrArithmeticOverflow
	}
	if extAmount == 0 {
		return nil
	}

	var rate uint16
	var magnitude uint64
	if extAmount > 0 {
		rate = depositRate
		magnitude = uint64(extAmount)
	} else {
		rate = withdrawalRate
		magnitude = uint64(-extAmount)
	}

	expected, ok := mulDivFloor(magnitude, uint64(rate), 10_000)
	if !ok {
		return ErrArithmeticOverflow
	}
	minimum, ok := mulDivFloor(expected, uint64(10_000-feeErrorMargin), 10_000)
	if !ok {
		return ErrArithmeticOverflow
	}
	if providedFee < minimum {
		return ErrInvalidFeeAmount
	}
	return nil
}

// mulDivFloor computes floor(a*b/d) using the full 128-bit product, so
// the multiplication never silently wraps the way plain uint64
// arithmetic would. ok is false if the quotient would not fit uint64.
func mulDivFloor(a, b, d uint64) (uint64, bool) {
	if d == 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, false
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, true
}

// checkedAdd adds a and b, reporting overflow instead of wrapping.
func checkedAdd(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}

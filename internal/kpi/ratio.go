package kpi

import (
	"math"
	"math/big"
)

var hundred = big.NewInt(100)

// percent returns num / den * 100 as a float, or false when undefined
func percent(num, den *big.Int) (float64, bool) {
	if num == nil || den == nil || den.Sign() == 0 {
		return 0, false
	}
	r := new(big.Rat).SetFrac(new(big.Int).Mul(num, hundred), den)
	f, _ := r.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// quotient returns num / den as a float, or false when undefined
func quotient(num, den *big.Int) (float64, bool) {
	if num == nil || den == nil || den.Sign() == 0 {
		return 0, false
	}
	f, _ := new(big.Rat).SetFrac(num, den).Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// growth returns (cur - prev) / prev * 100
func growth(cur, prev *big.Int) (float64, bool) {
	if cur == nil || prev == nil {
		return 0, false
	}
	return percent(new(big.Int).Sub(cur, prev), prev)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func rounded(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	r := round(v, 2)
	return &r
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

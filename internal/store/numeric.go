package store

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// NUMERIC columns travel as text so big integers never pass through float64.

func amountParam(n *big.Int) *string {
	if n == nil {
		return nil
	}
	s := n.String()
	return &s
}

func parseAmountText(s *string) *big.Int {
	if s == nil {
		return nil
	}
	if n, ok := new(big.Int).SetString(*s, 10); ok {
		return n
	}
	// NUMERIC may render a scale ("123.00"); integers survive the round trip
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil
	}
	return d.BigInt()
}

func decimalParam(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func parseDecimalText(s *string) decimal.NullDecimal {
	if s == nil {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

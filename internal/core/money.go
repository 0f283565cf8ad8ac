// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input.
// Amounts are kept as decimals so monthly sums stay exact.
package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a non-negative amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Signs, exponents, thousands separators and any other characters are rejected,
// so a malformed amount never reaches a store.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("0")     -> 0, nil
//	ParseAmount("-1")    -> ErrInvalidAmount
//	ParseAmount("abc")   -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	if len(parts) == 2 && parts[1] == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if parts[0] == "" {
		if len(parts) == 1 {
			return decimal.Zero, ErrInvalidAmount
		}
		s = "0" + s
	}
	for _, p := range parts {
		for _, r := range p {
			if r < '0' || r > '9' {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// amountFromValue coerces a decoded JSON value into an amount.
func amountFromValue(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		if x.IsNegative() {
			return decimal.Zero, ErrInvalidAmount
		}
		return x, nil
	case float64:
		if x < 0 {
			return decimal.Zero, ErrInvalidAmount
		}
		return decimal.NewFromFloat(x), nil
	case int:
		if x < 0 {
			return decimal.Zero, ErrInvalidAmount
		}
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		if x < 0 {
			return decimal.Zero, ErrInvalidAmount
		}
		return decimal.NewFromInt(x), nil
	case json.Number:
		return ParseAmount(x.String())
	case string:
		return ParseAmount(x)
	default:
		return decimal.Zero, ErrInvalidAmount
	}
}

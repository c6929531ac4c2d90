package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultDecimals is the fractional scale of PollRush ledgers.
const DefaultDecimals uint8 = 8

// maxDecimals keeps 10^Decimals inside uint64 range.
const maxDecimals uint8 = 19

// Amount is a token quantity in the ledger's smallest unit. The decimal form
// only exists at the display and parse boundary.
type Amount struct {
	Units    uint64
	Decimals uint8
}

func NewAmount(units uint64, decimals uint8) Amount {
	return Amount{Units: units, Decimals: decimals}
}

func (a Amount) decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(a.Units), -int32(a.Decimals))
}

// String returns the shortest decimal form, e.g. 150000000 at 8 decimals is "1.5".
func (a Amount) String() string {
	return a.decimal().String()
}

// Fixed returns the decimal form with every fractional digit.
func (a Amount) Fixed() string {
	return a.decimal().StringFixed(int32(a.Decimals))
}

func (a Amount) IsZero() bool {
	return a.Units == 0
}

// ParseAmount converts a decimal string back to units at the given scale.
func ParseAmount(raw string, decimals uint8) (Amount, error) {
	if decimals > maxDecimals {
		return Amount{}, fmt.Errorf("parse amount: scale %d exceeds %d", decimals, maxDecimals)
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return Amount{}, fmt.Errorf("parse amount: value is empty")
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("parse amount %q: negative", raw)
	}

	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return Amount{}, fmt.Errorf("parse amount %q: more than %d fractional digits", raw, decimals)
	}

	units := shifted.BigInt()
	if !units.IsUint64() {
		return Amount{}, fmt.Errorf("parse amount %q: overflows", raw)
	}

	return Amount{Units: units.Uint64(), Decimals: decimals}, nil
}

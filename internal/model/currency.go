package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Currency selects one of the two prices of a tier.  The numeric values match
// the index into the flat [stable, native] price pair of a tier.
type Currency uint8

const (
	CurrencyStable Currency = 0
	CurrencyNative Currency = 1
)

// Currencies lists every supported currency in price-pair order.
var Currencies = [...]Currency{CurrencyStable, CurrencyNative}

func (c Currency) Valid() bool { return c == CurrencyStable || c == CurrencyNative }

func (c Currency) String() string {
	switch c {
	case CurrencyStable:
		return "stable"
	case CurrencyNative:
		return "native"
	}
	return fmt.Sprintf("currency(%d)", uint8(c))
}

// ParseCurrency accepts "stable"/"native" or the numeric codes "0"/"1".
func ParseCurrency(s string) (Currency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stable", "0":
		return CurrencyStable, nil
	case "native", "1":
		return CurrencyNative, nil
	}
	return 0, ErrUnknownCurrency
}

// Transfer is one leg of a funds movement between two accounts.
type Transfer struct {
	Currency Currency
	From     common.Address
	To       common.Address
	Amount   *uint256.Int
}

// ParseAmount parses a base-10 amount string.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidAmount
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

// ParseAddress parses a hex address and rejects malformed input.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

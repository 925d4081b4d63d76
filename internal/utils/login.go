package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const loginPrefix = "ticket-market login "

// ErrMalformedLogin is returned when a login message does not have the
// "ticket-market login <address> <unix>" shape.
var ErrMalformedLogin = errors.New("malformed login message")

// LoginMessage is the text a wallet signs to obtain an access token.
func LoginMessage(addr common.Address, at time.Time) string {
	return fmt.Sprintf("%s%s %d", loginPrefix, addr.Hex(), at.Unix())
}

// ParseLoginMessage extracts the address and timestamp of a login message.
func ParseLoginMessage(msg string) (common.Address, time.Time, error) {
	rest, ok := strings.CutPrefix(msg, loginPrefix)
	if !ok {
		return common.Address{}, time.Time{}, ErrMalformedLogin
	}
	parts := strings.Fields(rest)
	if len(parts) != 2 || !common.IsHexAddress(parts[0]) {
		return common.Address{}, time.Time{}, ErrMalformedLogin
	}
	sec, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return common.Address{}, time.Time{}, ErrMalformedLogin
	}
	return common.HexToAddress(parts[0]), time.Unix(sec, 0).UTC(), nil
}

package utils // package utils provides helpers for access tokens and wallet login messages

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the "role" claim.  ADMIN is issued to the platform owner
// at login time; the platform still re-checks ownership on every admin call.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Claims are the claims of an access token.  The subject is the checksummed
// wallet address that signed the login message.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a wallet address.
func NewAccessToken(secret string, subject common.Address, role string, ttl time.Duration, now time.Time) (AccessToken, error) {
	now = now.UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.Hex(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ErrInvalidToken is returned for tokens that fail parsing, signature or
// claim validation.
var ErrInvalidToken = errors.New("invalid token")

// ParseAccessToken verifies raw with secret and returns its claims and the
// subject address.  Expiry is checked against now, the same clock that
// issued the token.
func ParseAccessToken(secret, raw string, now time.Time) (Claims, common.Address, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil || !tok.Valid {
		return Claims{}, common.Address{}, ErrInvalidToken
	}
	if !common.IsHexAddress(claims.Subject) {
		return Claims{}, common.Address{}, ErrInvalidToken
	}
	return claims, common.HexToAddress(claims.Subject), nil
}

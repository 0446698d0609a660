package authservice

import (
	"errors"
	"time"

	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionTokenTTL = 24 * time.Hour
	ResetTokenTTL   = time.Hour
)

// Claims carried by session and password-reset tokens.
type Claims struct {
	MembershipNumber string `json:"membership_number"`
	Email            string `json:"email"`
	jwt.RegisteredClaims
}

// TokenMaker signs and verifies HS256 tokens.
type TokenMaker struct {
	secret []byte
}

func NewTokenMaker(secret string) *TokenMaker {
	return &TokenMaker{secret: []byte(secret)}
}

// Issue signs a token for the member, valid for ttl.
func (t *TokenMaker) Issue(membershipNumber, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		MembershipNumber: membershipNumber,
		Email:            email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses and validates a token, returning its claims.
func (t *TokenMaker) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, xerrors.ErrExpiredToken
		}
		return nil, xerrors.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, xerrors.ErrInvalidToken
	}
	return claims, nil
}

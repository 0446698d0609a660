package authservice

import (
	"testing"
	"time"

	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenMaker_RoundTrip(t *testing.T) {
	maker := NewTokenMaker("secret")

	token, err := maker.Issue("2501001", "alice@x.com", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := maker.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "2501001", claims.MembershipNumber)
	assert.Equal(t, "alice@x.com", claims.Email)
}

func TestTokenMaker_Expired(t *testing.T) {
	maker := NewTokenMaker("secret")

	token, err := maker.Issue("2501001", "alice@x.com", -time.Minute)
	require.NoError(t, err)

	_, err = maker.Verify(token)
	assert.ErrorIs(t, err, xerrors.ErrExpiredToken)
}

func TestTokenMaker_WrongSecret(t *testing.T) {
	token, err := NewTokenMaker("secret-a").Issue("2501001", "alice@x.com", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenMaker("secret-b").Verify(token)
	assert.ErrorIs(t, err, xerrors.ErrInvalidToken)
}

func TestTokenMaker_Garbage(t *testing.T) {
	_, err := NewTokenMaker("secret").Verify("not.a.token")
	assert.ErrorIs(t, err, xerrors.ErrInvalidToken)
}

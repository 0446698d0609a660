package syncservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	headers := []string{"Full Name", "Email", "Phone", "Unmapped Column"}

	t.Run("maps cells by header position", func(t *testing.T) {
		m, err := Extract([]string{"Bob", "bob@x.com", "+90222", "ignored"}, headers, testMapping)
		require.NoError(t, err)
		assert.Equal(t, "Bob", m.LatinName)
		assert.Equal(t, "bob@x.com", m.Email)
		assert.Equal(t, "+90222", m.Phone)
	})

	t.Run("short rows are tolerated", func(t *testing.T) {
		m, err := Extract([]string{"Bob", "bob@x.com"}, headers, testMapping)
		require.NoError(t, err)
		assert.Equal(t, "Bob", m.LatinName)
		assert.Empty(t, m.Phone)
	})

	t.Run("extra cells beyond headers are ignored", func(t *testing.T) {
		m, err := Extract([]string{"Bob", "bob@x.com", "+90222", "x", "y", "z"}, headers, testMapping)
		require.NoError(t, err)
		assert.Equal(t, "+90222", m.Phone)
	})

	t.Run("missing email rejects", func(t *testing.T) {
		_, err := Extract([]string{"Bob", "", "+90222"}, headers, testMapping)
		assert.ErrorIs(t, err, ErrMissingEmail)
	})

	t.Run("missing name rejects", func(t *testing.T) {
		_, err := Extract([]string{"", "bob@x.com", "+90222"}, headers, testMapping)
		assert.ErrorIs(t, err, ErrMissingName)
	})

	t.Run("email checked before name", func(t *testing.T) {
		_, err := Extract([]string{"", "", ""}, headers, testMapping)
		assert.ErrorIs(t, err, ErrMissingEmail)
	})

	t.Run("empty row rejects", func(t *testing.T) {
		_, err := Extract(nil, headers, testMapping)
		assert.ErrorIs(t, err, ErrMissingEmail)
	})
}

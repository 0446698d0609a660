package id

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var passwordPattern = regexp.MustCompile(`^[A-Z][a-z]+[A-Z][a-z]+[1-9][0-9][!@#$%&*+=?]$`)

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		pw, err := GeneratePassword()
		require.NoError(t, err)
		assert.Regexp(t, passwordPattern, pw, "unexpected password shape: %s", pw)
		seen[pw] = struct{}{}
	}
	// Not a strict uniqueness guarantee, but 100 draws from this space
	// should not all collide.
	assert.Greater(t, len(seen), 50)
}

func TestGenerateRef(t *testing.T) {
	ref := GenerateRef("run")
	require.True(t, strings.HasPrefix(ref, "run_"))
	assert.Len(t, ref, len("run_")+26)

	assert.NotEqual(t, ref, GenerateRef("run"))
}

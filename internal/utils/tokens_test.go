package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomPassword(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-z]{8}$`)
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		pw, err := RandomPassword(8)
		require.NoError(t, err)
		assert.Regexp(t, re, pw)
		seen[pw] = struct{}{}
	}
	assert.Greater(t, len(seen), 45)

	_, err := RandomPassword(0)
	assert.Error(t, err)
}

package auth

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTempPassword_Complexity(t *testing.T) {
	for i := 0; i < 50; i++ {
		pwd, err := GenerateTempPassword(12)
		require.NoError(t, err)
		require.Len(t, pwd, 12)

		var hasUpper, hasLower, hasDigit bool
		for _, r := range pwd {
			switch {
			case unicode.IsUpper(r):
				hasUpper = true
			case unicode.IsLower(r):
				hasLower = true
			case unicode.IsDigit(r):
				hasDigit = true
			}
		}
		assert.True(t, hasUpper, "password %q must contain an upper-case letter", pwd)
		assert.True(t, hasLower, "password %q must contain a lower-case letter", pwd)
		assert.True(t, hasDigit, "password %q must contain a digit", pwd)
	}
}

func TestGenerateTempPassword_MinimumLength(t *testing.T) {
	pwd, err := GenerateTempPassword(3)
	require.NoError(t, err)
	assert.Len(t, pwd, 8)
}

func TestGenerateTempPassword_ExcludesAmbiguousGlyphs(t *testing.T) {
	for i := 0; i < 20; i++ {
		pwd, err := GenerateTempPassword(16)
		require.NoError(t, err)
		assert.False(t, strings.ContainsAny(pwd, "0O1lIo"), "password %q contains ambiguous glyphs", pwd)
	}
}

func TestGenerateTempPassword_NotConstant(t *testing.T) {
	a, err := GenerateTempPassword(12)
	require.NoError(t, err)
	b, err := GenerateTempPassword(12)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cretPass")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("s3cretPass", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

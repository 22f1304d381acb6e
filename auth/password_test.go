package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword_ProducesEncodedArgon2id(t *testing.T) {
	req := require.New(t)

	// When hashing a password
	hash, err := HashPassword("correct horse battery")

	// Then the encoded form carries the algorithm and parameters
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))
	req.Len(strings.Split(hash, "$"), 6)
}

func TestHashPassword_UniqueSaltPerCall(t *testing.T) {
	req := require.New(t)

	first, err := HashPassword("same password")
	req.NoError(err)
	second, err := HashPassword("same password")
	req.NoError(err)

	// Two hashes of the same input must differ by salt
	req.NotEqual(first, second)
}

func TestComparePassword_Match(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("sekret123")
	req.NoError(err)

	ok, err := ComparePassword("sekret123", hash)

	req.NoError(err)
	req.True(ok)
}

func TestComparePassword_Mismatch(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("sekret123")
	req.NoError(err)

	ok, err := ComparePassword("wrong", hash)

	req.NoError(err)
	req.False(ok)
}

func TestComparePassword_MalformedHash(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("anything", "not-an-encoded-hash")

	req.Error(err)
}

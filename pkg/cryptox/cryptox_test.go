package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cryptox-test")
	if err != nil {
		panic(err)
	}
	SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	require.NoError(t, VerifyPassword("correct horse battery staple", hash))
	require.Error(t, VerifyPassword("wrong password", hash))
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	a, err := HashPassword("same input")
	require.NoError(t, err)
	b, err := HashPassword("same input")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken(TokenSize128)
	require.NoError(t, err)
	require.Len(t, tok, 22)

	other, err := GenerateToken(TokenSize128)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)

	_, err = GenerateToken(0)
	require.Error(t, err)
}

func TestFingerprintTokenDeterministic(t *testing.T) {
	require.Equal(t, FingerprintToken("abc"), FingerprintToken("abc"))
	require.NotEqual(t, FingerprintToken("abc"), FingerprintToken("abd"))
	require.Len(t, FingerprintToken("abc"), 43)
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for i := 0; i < len(code); i++ {
		require.GreaterOrEqual(t, code[i], byte('0'))
		require.LessOrEqual(t, code[i], byte('9'))
	}

	_, err = GenerateNumericCode(0)
	require.Error(t, err)
}

func TestValidNumericCode(t *testing.T) {
	require.True(t, ValidNumericCode("000000", 6))
	require.True(t, ValidNumericCode("482913", 6))

	require.False(t, ValidNumericCode("48291", 6))
	require.False(t, ValidNumericCode("4829133", 6))
	require.False(t, ValidNumericCode("48291a", 6))
	require.False(t, ValidNumericCode("", 6))
	require.False(t, ValidNumericCode("48 913", 6))
}

package paste

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("test_password_123")
	require.NoError(t, err)
	assert.True(t, VerifyPassword("test_password_123", hash))
	assert.False(t, VerifyPassword("wrong", hash))
	assert.False(t, VerifyPassword("test_password_123", "not a hash"))
}

func TestPasswordFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("tmp", "test_file.txt.password"),
		PasswordFilePath(filepath.Join("tmp", "test_file.txt")))
}

func TestStoreAndVerifyPassword(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "roundtrip.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("test content"), 0o600))

	require.NoError(t, StorePasswordHash(testFile, "my_test_password"))
	assert.True(t, HasPassword(testFile))

	ok, err := VerifyFilePassword(testFile, "my_test_password")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyFilePassword(testFile, "wrong_password")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, DeletePasswordFile(testFile))
	assert.False(t, HasPassword(testFile))
	// deleting again is a NOP
	require.NoError(t, DeletePasswordFile(testFile))
}

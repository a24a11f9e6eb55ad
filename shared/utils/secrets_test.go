package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSecretFrom(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session_secret"), []byte("  s3cr3t\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), []byte("   "), 0o600))

	secret, err := ReadSecretFrom(dir, "session_secret")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", secret)

	_, err = ReadSecretFrom(dir, "empty")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSecretNotFound)

	_, err = ReadSecretFrom(dir, "missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestReadSecretOrEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONSOLE_TEST_SECRET", "from-env")

	secret, err := ReadSecretOrEnv(dir, "missing", "CONSOLE_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", secret)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "present"), []byte("from-file"), 0o600))
	secret, err = ReadSecretOrEnv(dir, "present", "CONSOLE_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-file", secret, "file takes priority over env")

	_, err = ReadSecretOrEnv(dir, "missing", "CONSOLE_TEST_SECRET_UNSET")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

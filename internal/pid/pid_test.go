package pid_test

import (
	"os"
	"strconv"
	"testing"

	"codeberg.org/halvard/sysmond/internal/errors"
	"codeberg.org/halvard/sysmond/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	require.NoError(t, pid.Write())

	data, err := os.ReadFile(pid.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	require.NoError(t, pid.Remove())
	_, err = os.Stat(pid.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFailsWhileProcessAlive(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	require.NoError(t, pid.Write())
	defer pid.Remove()

	err := pid.Write()
	require.Error(t, err)
	assert.Equal(t, errors.ErrAlreadyRunning, errors.CodeOf(err))
}

func TestWriteReplacesStaleFile(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	// A pid that cannot be a live process.
	require.NoError(t, os.WriteFile(pid.Path(), []byte("2147483646"), 0o600))

	require.NoError(t, pid.Write())
	defer pid.Remove()

	data, err := os.ReadFile(pid.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestRemoveMissingFileIsFine(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	assert.NoError(t, pid.Remove())
}

package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-based runner tests require a POSIX shell")
	}
}

func TestRunCapturesOutput(t *testing.T) {
	requireShell(t)
	e := NewExec()

	result, err := e.Run(context.Background(), Command{
		Path: "sh",
		Args: []string{"-c", "echo out; echo err >&2"},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
}

func TestRunNonZeroExit(t *testing.T) {
	requireShell(t)
	e := NewExec()

	result, err := e.Run(context.Background(), Command{
		Path: "sh",
		Args: []string{"-c", "echo broken >&2; exit 3"},
	})

	require.Error(t, err)
	assert.Equal(t, 3, result.ExitCode)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Stderr, "broken")
}

func TestRunMissingBinary(t *testing.T) {
	e := NewExec()

	result, err := e.Run(context.Background(), Command{Path: "definitely-not-a-binary"})

	require.Error(t, err)
	assert.Equal(t, -1, result.ExitCode)

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr), "a start failure is not a process exit")
}

func TestRunContextCancellation(t *testing.T) {
	requireShell(t)
	e := NewExec()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := e.Run(ctx, Command{Path: "sh", Args: []string{"-c", "sleep 10"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunWorkingDirectory(t *testing.T) {
	requireShell(t)
	e := NewExec()
	dir := t.TempDir()

	result, err := e.Run(context.Background(), Command{
		Path: "sh",
		Args: []string{"-c", "pwd"},
		Dir:  dir,
	})

	require.NoError(t, err)
	assert.Contains(t, result.Stdout, filepath.Base(dir))
}

func TestRunChainStopsAtFirstFailure(t *testing.T) {
	requireShell(t)
	e := NewExec()
	marker := filepath.Join(t.TempDir(), "marker")

	results, err := e.RunChain(context.Background(), []Command{
		{Path: "sh", Args: []string{"-c", "echo one"}},
		{Path: "sh", Args: []string{"-c", "exit 2"}},
		{Path: "sh", Args: []string{"-c", "touch " + marker}},
	})

	require.Error(t, err)
	require.Len(t, results, 2, "the chain stops at the first failure")
	assert.Equal(t, "one\n", results[0].Stdout)
	assert.Equal(t, 2, results[1].ExitCode)

	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr), "later stages must not run")
}

func TestRunChainPassesArtifactsBetweenStages(t *testing.T) {
	requireShell(t)
	e := NewExec()
	dir := t.TempDir()
	intermediate := filepath.Join(dir, "intermediate")
	output := filepath.Join(dir, "output")

	results, err := e.RunChain(context.Background(), []Command{
		{Path: "sh", Args: []string{"-c", "echo stage-one > " + intermediate}},
		{Path: "sh", Args: []string{"-c", "cat " + intermediate + " > " + output}},
	})

	require.NoError(t, err)
	require.Len(t, results, 2)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "stage-one\n", string(data))
}

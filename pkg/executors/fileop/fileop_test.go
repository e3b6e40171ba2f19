package fileop

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func execute(t *testing.T, operation string, params map[string]any) (map[string]any, error) {
	t.Helper()

	executor, err := NewFactory().Create(map[string]any{"operation": operation})
	require.NoError(t, err)

	return executor.Execute(context.Background(), params, testLogger())
}

func TestFileOp_WriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "note.txt")

	output, err := execute(t, "write", map[string]any{"path": path, "content": "hello"})
	require.NoError(t, err)
	assert.Equal(t, 5, output["bytes_written"])

	output, err = execute(t, "read", map[string]any{"path": path})
	require.NoError(t, err)
	assert.Equal(t, "hello", output["value"])
}

func TestFileOp_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")

	_, err := execute(t, "write", map[string]any{"path": path, "content": "one\n"})
	require.NoError(t, err)

	_, err = execute(t, "append", map[string]any{"path": path, "content": "two\n"})
	require.NoError(t, err)

	output, err := execute(t, "read", map[string]any{"path": path})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", output["value"])
}

func TestFileOp_CopyAndMove(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(source, []byte("payload"), 0o644))

	copied := filepath.Join(dir, "b.txt")
	output, err := execute(t, "copy", map[string]any{"path": source, "destination": copied})
	require.NoError(t, err)
	assert.Equal(t, int64(7), output["bytes_copied"])

	moved := filepath.Join(dir, "c.txt")
	_, err = execute(t, "move", map[string]any{"path": copied, "destination": moved})
	require.NoError(t, err)

	_, err = os.Stat(copied)
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestFileOp_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := execute(t, "delete", map[string]any{"path": path})
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileOp_Errors(t *testing.T) {
	_, err := NewFactory().Create(map[string]any{})
	assert.Error(t, err)

	_, err = execute(t, "read", map[string]any{})
	assert.Error(t, err)

	_, err = execute(t, "read", map[string]any{"path": filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)

	_, err = execute(t, "teleport", map[string]any{"path": "/tmp/x"})
	assert.Error(t, err)
}

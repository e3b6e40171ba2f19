package filewatch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFilewatchTrigger_Validate(t *testing.T) {
	_, err := NewTrigger(map[string]any{}, testLogger())
	assert.Error(t, err)

	_, err = NewTrigger(map[string]any{"path": "/tmp/x", "interval": "soon"}, testLogger())
	assert.Error(t, err)

	trigger, err := NewTrigger(map[string]any{"path": "/tmp/x", "interval": "50ms"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, trigger.Interval)
}

func TestFilewatchTrigger_FiresOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watched.txt")

	trigger, err := NewTrigger(map[string]any{"path": path, "interval": "10ms"}, testLogger())
	require.NoError(t, err)

	fired := make(chan map[string]any, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, trigger.Start(ctx, func(_ context.Context, data map[string]any) error {
		fired <- data

		return nil
	}))

	defer func() { _ = trigger.Stop(context.Background()) }()

	// Creating the file is a change from "absent" to "present".
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	select {
	case data := <-fired:
		assert.Equal(t, path, data["path"])
		assert.Equal(t, true, data["exists"])
	case <-time.After(5 * time.Second):
		t.Fatal("trigger never fired on file creation")
	}
}

package schedule

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestScheduleTrigger_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{name: "valid five-field expression", config: map[string]any{"id": "t1", "cron": "0 2 * * *"}},
		{name: "every fifteen minutes", config: map[string]any{"id": "t2", "cron": "*/15 * * * *"}},
		{name: "missing expression", config: map[string]any{"id": "t3"}, wantErr: true},
		{name: "malformed expression", config: map[string]any{"id": "t4", "cron": "not a cron"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTrigger(tt.config, testLogger())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScheduleFactory(t *testing.T) {
	factory := NewFactory()

	trigger, err := factory.Create(map[string]any{"id": "t1", "cron": "0 9 * * 1-5"}, testLogger())
	require.NoError(t, err)
	assert.NotNil(t, trigger)

	_, err = factory.Create(nil, testLogger())
	assert.ErrorIs(t, err, ErrConfigNil)
}

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONSlog(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestSlogAdapterLogsExchange(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(newJSONSlog(&buf))

	ok := false
	d := 15 * time.Millisecond
	adapter.Log(Event{
		Timestamp: time.Now(),
		RequestID: "req-123",
		Direction: DirectionIn,
		Layer:     LayerTransport,
		Category:  CategoryMessage,
		Exchange: &ExchangeEvent{
			Method:     "POST",
			Path:       "/api/v8/login/session",
			StatusCode: 403,
			Success:    &ok,
			ErrorCode:  "invalid_token",
			Duration:   &d,
		},
	})

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "protocol", entry["msg"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "IN", entry["direction"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, float64(403), entry["status"])
	assert.Equal(t, false, entry["success"])
	assert.Equal(t, "invalid_token", entry["error_code"])
}

func TestSlogAdapterLogsStateChange(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(newJSONSlog(&buf))

	adapter.Log(Event{
		Layer:    LayerAuth,
		Category: CategoryState,
		AppID:    "dev.test.cli",
		StateChange: &StateChangeEvent{
			Entity:   StateEntityApplication,
			OldState: "pending",
			NewState: "granted",
			Reason:   "authorized on device",
		},
	})

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "APPLICATION", entry["entity"])
	assert.Equal(t, "pending", entry["old_state"])
	assert.Equal(t, "granted", entry["new_state"])
	assert.Equal(t, "dev.test.cli", entry["app_id"])
}

func TestSlogAdapterLogsError(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(newJSONSlog(&buf))

	adapter.Log(Event{
		Layer:    LayerAuth,
		Category: CategoryError,
		Error: &ErrorEventData{
			Layer:   LayerAuth,
			Message: "authentication failed",
			Code:    "invalid_token",
			Context: "start session",
		},
	})

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "AUTH", entry["error_layer"])
	assert.Equal(t, "authentication failed", entry["error_msg"])
	assert.Equal(t, "start session", entry["error_context"])
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	slogger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	NewSlogAdapter(slogger).Log(Event{Category: CategoryMessage})

	assert.Empty(t, buf.String(), "debug-level protocol events should be filtered at info")
}

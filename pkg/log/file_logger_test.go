package log

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exchangeEvent(id string, dir Direction, ts time.Time) Event {
	return Event{
		Timestamp: ts,
		RequestID: id,
		Direction: dir,
		Layer:     LayerTransport,
		Category:  CategoryMessage,
		Exchange:  &ExchangeEvent{Method: "GET", Path: "/api/v8/login"},
	}
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var events []Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestFileLoggerCreatesPrivateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trace.flog")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.flog")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	now := time.Now()
	d := 3 * time.Millisecond
	ev := exchangeEvent("req-1", DirectionIn, now)
	ev.Exchange.StatusCode = 200
	ev.Exchange.Duration = &d
	logger.Log(ev)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, "req-1", decoded.RequestID)
	require.NotNil(t, decoded.Exchange)
	assert.Equal(t, 200, decoded.Exchange.StatusCode)
	require.NotNil(t, decoded.Exchange.Duration)
	assert.Equal(t, d, *decoded.Exchange.Duration)
	assert.True(t, decoded.Timestamp.Equal(now), "timestamp should keep nanosecond precision")
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.flog")

	for _, id := range []string{"a", "b"} {
		logger, err := NewFileLogger(path)
		require.NoError(t, err)
		logger.Log(exchangeEvent(id, DirectionOut, time.Now()))
		require.NoError(t, logger.Close())
	}

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	events := readAll(t, r)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].RequestID)
	assert.Equal(t, "b", events[1].RequestID)
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "trace.flog"))
	require.NoError(t, err)

	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
	logger.Log(Event{}) // ignored after close
}

func TestFileLoggerConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.flog")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Log(exchangeEvent("c", DirectionOut, time.Now()))
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Len(t, readAll(t, r), 20)
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.flog")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	base := time.Now()
	logger.Log(exchangeEvent("r1", DirectionOut, base))
	logger.Log(exchangeEvent("r1", DirectionIn, base.Add(time.Millisecond)))
	logger.Log(exchangeEvent("r2", DirectionOut, base.Add(2*time.Millisecond)))
	logger.Log(Event{
		Timestamp:   base.Add(3 * time.Millisecond),
		Layer:       LayerAuth,
		Category:    CategoryState,
		AppID:       "dev.test.cli",
		StateChange: &StateChangeEvent{Entity: StateEntitySession, NewState: "renewed"},
	})
	require.NoError(t, logger.Close())

	t.Run("ByRequestID", func(t *testing.T) {
		r, err := NewFilteredReader(path, Filter{RequestID: "r1"})
		require.NoError(t, err)
		defer r.Close()
		assert.Len(t, readAll(t, r), 2)
	})

	t.Run("ByDirection", func(t *testing.T) {
		in := DirectionIn
		r, err := NewFilteredReader(path, Filter{Direction: &in, Layer: ptrLayer(LayerTransport)})
		require.NoError(t, err)
		defer r.Close()
		events := readAll(t, r)
		require.Len(t, events, 1)
		assert.Equal(t, "r1", events[0].RequestID)
	})

	t.Run("ByCategoryAndApp", func(t *testing.T) {
		cat := CategoryState
		r, err := NewFilteredReader(path, Filter{Category: &cat, AppID: "dev.test.cli"})
		require.NoError(t, err)
		defer r.Close()
		events := readAll(t, r)
		require.Len(t, events, 1)
		require.NotNil(t, events[0].StateChange)
		assert.Equal(t, "renewed", events[0].StateChange.NewState)
	})

	t.Run("ByTimeWindow", func(t *testing.T) {
		start := base.Add(time.Millisecond)
		end := base.Add(3 * time.Millisecond)
		r, err := NewFilteredReader(path, Filter{TimeStart: &start, TimeEnd: &end})
		require.NoError(t, err)
		defer r.Close()
		assert.Len(t, readAll(t, r), 2)
	})
}

func TestReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.flog"))
	assert.True(t, os.IsNotExist(err))
}

func ptrLayer(l Layer) *Layer { return &l }

func TestFileLoggerRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.flog")

	ts := time.Date(2026, 1, 2, 3, 4, 5, 123456789, time.UTC)
	one, err := EncodeEvent(exchangeEvent("x", DirectionOut, ts))
	require.NoError(t, err)

	// Room for two records per generation.
	logger, err := NewFileLoggerWithConfig(FileLoggerConfig{Path: path, MaxSize: int64(2*len(one) + len(one)/2)})
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		logger.Log(exchangeEvent(id, DirectionOut, ts))
	}
	require.NoError(t, logger.Close())
	assert.Zero(t, logger.Dropped())

	old, err := NewReader(path + ".1")
	require.NoError(t, err)
	defer old.Close()
	rotated := readAll(t, old)
	require.Len(t, rotated, 2)
	assert.Equal(t, "a", rotated[0].RequestID)

	cur, err := NewReader(path)
	require.NoError(t, err)
	defer cur.Close()
	current := readAll(t, cur)
	require.Len(t, current, 1)
	assert.Equal(t, "c", current[0].RequestID)
}

func TestFileLoggerNoRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.flog")
	logger, err := NewFileLoggerWithConfig(FileLoggerConfig{Path: path, MaxSize: -1})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		logger.Log(exchangeEvent("r", DirectionOut, time.Now()))
	}
	require.NoError(t, logger.Close())

	_, err = os.Stat(path + ".1")
	assert.True(t, os.IsNotExist(err))
}

func TestFileLoggerCountsDropped(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "trace.flog"))
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	logger.Log(exchangeEvent("late", DirectionOut, time.Now()))
	assert.Equal(t, 1, logger.Dropped())
}

func TestScrub(t *testing.T) {
	ev := exchangeEvent("r", DirectionOut, time.Now())
	ev.Exchange.Path = "/api/v8/login/authorize/42?foo=bar#frag"
	ev.Error = &ErrorEventData{Layer: LayerTransport, Message: strings.Repeat("x", MaxErrorMessage+10)}

	scrubbed := Scrub(ev)
	assert.Equal(t, "/api/v8/login/authorize/42", scrubbed.Exchange.Path)
	assert.Len(t, scrubbed.Error.Message, MaxErrorMessage+3)

	// the original event is untouched
	assert.Equal(t, "/api/v8/login/authorize/42?foo=bar#frag", ev.Exchange.Path)
	assert.Len(t, ev.Error.Message, MaxErrorMessage+10)
}

func TestEncodeEventScrubs(t *testing.T) {
	ev := exchangeEvent("r", DirectionOut, time.Now())
	ev.Exchange.Path = "/api/v8/login?x=1"

	data, err := EncodeEvent(ev)
	require.NoError(t, err)
	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, "/api/v8/login", decoded.Exchange.Path)
}

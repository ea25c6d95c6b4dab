package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event as a single "protocol" record.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.AppID != "" {
		attrs = append(attrs, slog.String("app_id", event.AppID))
	}

	switch {
	case event.Exchange != nil:
		ex := event.Exchange
		attrs = append(attrs,
			slog.String("method", ex.Method),
			slog.String("path", ex.Path),
		)
		if ex.StatusCode != 0 {
			attrs = append(attrs, slog.Int("status", ex.StatusCode))
		}
		if ex.Success != nil {
			attrs = append(attrs, slog.Bool("success", *ex.Success))
		}
		if ex.ErrorCode != "" {
			attrs = append(attrs, slog.String("error_code", ex.ErrorCode))
		}
		if ex.Authenticated {
			attrs = append(attrs, slog.Bool("authenticated", true))
		}
		if ex.Duration != nil {
			attrs = append(attrs, slog.Duration("duration", *ex.Duration))
		}
	case event.StateChange != nil:
		sc := event.StateChange
		attrs = append(attrs,
			slog.String("entity", sc.Entity.String()),
			slog.String("old_state", sc.OldState),
			slog.String("new_state", sc.NewState),
		)
		if sc.Reason != "" {
			attrs = append(attrs, slog.String("reason", sc.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Code != "" {
			attrs = append(attrs, slog.String("error_code", event.Error.Code))
		}
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)

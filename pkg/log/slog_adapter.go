package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger.
// Useful for development when you want to see device activity in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger. Error events are logged at
// Warn level, everything else at Debug.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.String("component", event.Component.String()),
		slog.String("category", event.Category.String()),
	}
	if event.DeviceID != "" {
		attrs = append(attrs, slog.String("device", event.DeviceID))
	}
	if event.Generation != "" {
		attrs = append(attrs, slog.String("generation", event.Generation))
	}
	if event.Link != nil {
		attrs = append(attrs, slog.Uint64("link", uint64(*event.Link)))
	}

	level := slog.LevelDebug
	switch {
	case event.Operation != nil:
		attrs = append(attrs,
			slog.String("op", event.Operation.Name),
			slog.String("result", event.Operation.Result),
			slog.Duration("duration", event.Operation.Duration),
		)
	case event.Phase != nil:
		attrs = append(attrs, slog.String("phase", event.Phase.Name))
		if event.Phase.Polls > 0 {
			attrs = append(attrs, slog.Int("polls", event.Phase.Polls))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Counters != nil:
		attrs = append(attrs, slog.Int("counters", len(event.Counters.Counts)))
		if event.Counters.Cleared {
			attrs = append(attrs, slog.Bool("cleared", true))
		}
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("kind", event.Error.Kind),
			slog.String("error", event.Error.Message),
			slog.String("context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), level, "diag", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)

// Package commands implements the nvldiag CLI commands.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/linkval/nvldiag/pkg/log"
)

const timeFormat = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] device COMPONENT link Type
	ts := event.Timestamp.UTC().Format(timeFormat)
	link := "-"
	if event.Link != nil {
		link = fmt.Sprintf("link%d", *event.Link)
	}

	fmt.Fprintf(w, "%s [%s] %s %s %s %s\n", ts, shortenID(event.SessionID), event.DeviceID,
		event.Component.String(), link, eventLabel(event))

	switch {
	case event.Operation != nil:
		formatOperationDetails(w, event.Operation)
	case event.Phase != nil:
		if event.Phase.Polls > 0 {
			fmt.Fprintf(w, "  Polls: %d\n", event.Phase.Polls)
		}
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Counters != nil:
		formatCountersDetails(w, event.Counters)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

func eventLabel(event log.Event) string {
	switch {
	case event.Operation != nil:
		return event.Operation.Name
	case event.Phase != nil:
		return "Phase " + event.Phase.Name
	case event.StateChange != nil:
		return "State"
	case event.Counters != nil:
		return "Counters"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenID returns the first 8 characters of a session ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatOperationDetails(w io.Writer, op *log.OperationEvent) {
	fmt.Fprintf(w, "  Result: %s\n", op.Result)
	fmt.Fprintf(w, "  Duration: %s\n", formatDuration(op.Duration))
	if op.Payload != nil {
		if data, err := json.Marshal(op.Payload); err == nil {
			fmt.Fprintf(w, "  Payload: %s\n", data)
		}
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatCountersDetails(w io.Writer, c *log.CountersEvent) {
	names := make([]string, 0, len(c.Counts))
	for name := range c.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-20s %d\n", name, c.Counts[name])
	}
	if len(c.Overflow) > 0 {
		fmt.Fprintf(w, "  Overflow: %s\n", strings.Join(c.Overflow, ", "))
	}
	if c.Cleared {
		fmt.Fprintln(w, "  (cleared)")
	}
}

func formatErrorDetails(w io.Writer, e *log.ErrorEventData) {
	fmt.Fprintf(w, "  Kind: %s\n", e.Kind)
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseComponentFlag parses a component name (case-insensitive).
func ParseComponentFlag(s string) (log.Component, error) {
	c, ok := log.ParseComponent(strings.ToUpper(s))
	if !ok {
		return 0, fmt.Errorf("invalid component: %s (must be device, topology, counters, flags, power, eom or iobist)", s)
	}
	return c, nil
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "operation":
		return log.CategoryOperation, nil
	case "phase":
		return log.CategoryPhase, nil
	case "state":
		return log.CategoryState, nil
	case "counters":
		return log.CategoryCounters, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be operation, phase, state, counters or error)", s)
	}
}

// RunView prints the events of a trace file that match filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}

package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/linkval/nvldiag/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents       int
	EventsByComponent map[log.Component]int
	EventsByCategory  map[log.Category]int
	Sessions          map[string]*SessionStats
	Operations        map[string]*OperationStats
	ErrorsByKind      map[string]int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for one device session.
type SessionStats struct {
	DeviceID   string
	Generation string
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
}

// OperationStats holds call counts and timing of one operation.
type OperationStats struct {
	Calls    int
	Failures int
	Total    time.Duration
	Max      time.Duration
}

// Mean returns the mean duration of the operation.
func (o *OperationStats) Mean() time.Duration {
	if o.Calls == 0 {
		return 0
	}
	return o.Total / time.Duration(o.Calls)
}

// CollectStats reads a trace file and aggregates it.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByComponent: make(map[log.Component]int),
		EventsByCategory:  make(map[log.Category]int),
		Sessions:          make(map[string]*SessionStats),
		Operations:        make(map[string]*OperationStats),
		ErrorsByKind:      make(map[string]int),
	}

	err = each(reader, func(event log.Event) error {
		stats.TotalEvents++
		stats.EventsByComponent[event.Component]++
		stats.EventsByCategory[event.Category]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		s, ok := stats.Sessions[event.SessionID]
		if !ok {
			s = &SessionStats{
				DeviceID:   event.DeviceID,
				Generation: event.Generation,
				FirstSeen:  event.Timestamp,
				LastSeen:   event.Timestamp,
			}
			stats.Sessions[event.SessionID] = s
		}
		s.Events++
		if event.Timestamp.After(s.LastSeen) {
			s.LastSeen = event.Timestamp
		}

		if op := event.Operation; op != nil {
			o, ok := stats.Operations[op.Name]
			if !ok {
				o = &OperationStats{}
				stats.Operations[op.Name] = o
			}
			o.Calls++
			o.Total += op.Duration
			if op.Duration > o.Max {
				o.Max = op.Duration
			}
			if op.Result != log.ResultOK {
				o.Failures++
			}
		}
		if event.Error != nil {
			stats.ErrorsByKind[event.Error.Kind]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// RunStats analyzes a trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Link Diagnostics Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Component:")
	for c := log.ComponentDevice; c <= log.ComponentIobist; c++ {
		if count := stats.EventsByComponent[c]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for c := log.CategoryOperation; c <= log.CategoryError; c++ {
		if count := stats.EventsByCategory[c]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Operations) > 0 {
		names := make([]string, 0, len(stats.Operations))
		for name := range stats.Operations {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w, "Operations:")
		for _, name := range names {
			o := stats.Operations[name]
			fmt.Fprintf(w, "  %-26s %4d calls, %d failed, mean %s, max %s\n",
				name, o.Calls, o.Failures, formatDuration(o.Mean()), formatDuration(o.Max))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, s := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, s})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %s (%s) %d events, duration %s\n",
				shortenID(s.id), s.stats.DeviceID, s.stats.Generation, s.stats.Events, duration)
		}
	}

	if len(stats.ErrorsByKind) > 0 {
		kinds := make([]string, 0, len(stats.ErrorsByKind))
		for k := range stats.ErrorsByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Errors:")
		for _, k := range kinds {
			fmt.Fprintf(w, "  %-20s %d\n", k+":", stats.ErrorsByKind[k])
		}
	}
}

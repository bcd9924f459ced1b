// Package clean turns a raw events table into the clean events table the
// metrics stage reads.
//
// Rules, applied in order:
//  1. drop repeated event_id rows, keeping the first
//  2. drop rows whose event_time is empty, unparseable or before MinYear
//  3. drop rows whose event_type is outside the vocabulary
//  4. stable sort by (session_id, event_time)
//
// Malformed rows are filtered and counted, never fatal.
package clean

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/usagesim/generator"
	"github.com/spektr-org/usagesim/helpers"
	"github.com/spektr-org/usagesim/schema"
)

// DefaultMinYear is the earliest plausible event year.
const DefaultMinYear = 2020

// Options tune the sanity rules.
type Options struct {
	MinYear int `yaml:"min_year"`
}

// DefaultOptions returns Options{MinYear: DefaultMinYear}.
func DefaultOptions() Options {
	return Options{MinYear: DefaultMinYear}
}

// Report counts rows per outcome.
type Report struct {
	Input         int
	Duplicates    int
	BadTimestamps int
	TooOld        int
	UnknownTypes  int
	BadUserIDs    int
	Output        int
}

// Deduped is the row count after rule 1.
func (r Report) Deduped() int {
	return r.Input - r.Duplicates
}

// Dropped is the total number of rows removed.
func (r Report) Dropped() int {
	return r.Input - r.Output
}

// Fields renders the report as structured log fields.
func (r Report) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("input", r.Input),
		zap.Int("deduped", r.Deduped()),
		zap.Int("duplicates", r.Duplicates),
		zap.Int("bad_timestamps", r.BadTimestamps),
		zap.Int("too_old", r.TooOld),
		zap.Int("unknown_types", r.UnknownTypes),
		zap.Int("bad_user_ids", r.BadUserIDs),
		zap.Int("output", r.Output),
	}
}

// Accepted event_time spellings, most specific first. time.Parse accepts a
// fractional second after the seconds field even when the layout omits it.
var timeLayouts = []string{
	schema.TimeLayout,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	schema.DateLayout,
}

// ParseTime parses an event_time cell. Times without a zone are UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Clean applies the rules to rows and returns the surviving events.
// Cleaning its own output changes nothing.
func Clean(rows []schema.RawEvent, opts Options) ([]schema.Event, Report) {
	if opts.MinYear == 0 {
		opts.MinYear = DefaultMinYear
	}

	rep := Report{Input: len(rows)}
	seen := make(map[string]struct{}, len(rows))
	out := make([]schema.Event, 0, len(rows))

	for _, row := range rows {
		if _, dup := seen[row.EventID]; dup {
			rep.Duplicates++
			continue
		}
		seen[row.EventID] = struct{}{}

		ts, ok := ParseTime(row.EventTime)
		if !ok {
			rep.BadTimestamps++
			continue
		}
		if ts.Year() < opts.MinYear {
			rep.TooOld++
			continue
		}
		if !generator.IsKnownEventType(row.EventType) {
			rep.UnknownTypes++
			continue
		}
		userID, err := strconv.Atoi(strings.TrimSpace(row.UserID))
		if err != nil {
			rep.BadUserIDs++
			continue
		}

		// An unreadable flag is treated as not new.
		isNew, _ := helpers.ParseBool(strings.TrimSpace(row.IsNewUser))

		out = append(out, schema.Event{
			EventID:   row.EventID,
			UserID:    userID,
			SessionID: row.SessionID,
			EventTime: ts,
			EventType: row.EventType,
			Feature:   row.Feature,
			Platform:  row.Platform,
			Country:   row.Country,
			IsNewUser: isNew,
		})
	}

	SortBySession(out)
	rep.Output = len(out)
	return out, rep
}

// SortBySession orders events by session_id (byte-wise) then event_time,
// keeping input order among equal keys.
func SortBySession(events []schema.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		return a.EventTime.Before(b.EventTime)
	})
}

// ToRaw renders events back into raw rows, the way they read from disk.
func ToRaw(events []schema.Event) []schema.RawEvent {
	raw := make([]schema.RawEvent, len(events))
	for i, e := range events {
		raw[i] = schema.RawEvent{
			EventID:   e.EventID,
			UserID:    strconv.Itoa(e.UserID),
			SessionID: e.SessionID,
			EventTime: e.EventTime.Format(schema.EventTimeLayout),
			EventType: e.EventType,
			Feature:   e.Feature,
			Platform:  e.Platform,
			Country:   e.Country,
			IsNewUser: helpers.FormatBool(e.IsNewUser),
		}
	}
	return raw
}

package helpers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spektr-org/usagesim/schema"
)

// ============================================================================
// TABLE CODECS — users / sessions / events on disk
// ============================================================================

// WriteUsers writes users.csv.
func WriteUsers(w io.Writer, users []schema.User) error {
	return writeRows(w, schema.Users, len(users), func(i int) []string {
		u := users[i]
		return []string{
			strconv.Itoa(u.UserID),
			u.SignupTime.Format(schema.TimeLayout),
			u.Country,
			u.PlatformPref,
		}
	})
}

// WriteSessions writes sessions.csv.
func WriteSessions(w io.Writer, sessions []schema.Session) error {
	return writeRows(w, schema.Sessions, len(sessions), func(i int) []string {
		s := sessions[i]
		return []string{
			s.SessionID,
			strconv.Itoa(s.UserID),
			s.SessionStart.Format(schema.TimeLayout),
			s.SessionEnd.Format(schema.TimeLayout),
			s.Platform,
			s.Country,
		}
	})
}

// WriteEvents writes raw_events.csv or clean_events.csv.
func WriteEvents(w io.Writer, events []schema.Event) error {
	return writeRows(w, schema.Events, len(events), func(i int) []string {
		e := events[i]
		return []string{
			e.EventID,
			strconv.Itoa(e.UserID),
			e.SessionID,
			e.EventTime.Format(schema.EventTimeLayout),
			e.EventType,
			e.Feature,
			e.Platform,
			e.Country,
			FormatBool(e.IsNewUser),
		}
	})
}

// ReadRawEvents reads an events table without interpreting any field, so the
// cleaner can decide what to drop. Rows the CSV reader rejects are counted in
// skipped rather than failing the read.
func ReadRawEvents(r io.Reader) (events []schema.RawEvent, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	idx, err := schema.Events.IndexHeader(header)
	if err != nil {
		return nil, 0, err
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("read events: %w", err)
		}
		events = append(events, schema.RawEvent{
			EventID:   field(row, idx["event_id"]),
			UserID:    field(row, idx["user_id"]),
			SessionID: field(row, idx["session_id"]),
			EventTime: field(row, idx["event_time"]),
			EventType: field(row, idx["event_type"]),
			Feature:   field(row, idx["feature"]),
			Platform:  field(row, idx["platform"]),
			Country:   field(row, idx["country"]),
			IsNewUser: field(row, idx["is_new_user"]),
		})
	}
	return events, skipped, nil
}

// FormatBool writes flags as 1/0.
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseBool accepts 1/0 and the strconv spellings.
func ParseBool(s string) (bool, error) {
	return strconv.ParseBool(s)
}

func writeRows(w io.Writer, sch schema.Config, n int, row func(int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sch.Columns()); err != nil {
		return fmt.Errorf("write %s header: %w", sch.Name, err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("write %s row %d: %w", sch.Name, i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", sch.Name, err)
	}
	return nil
}

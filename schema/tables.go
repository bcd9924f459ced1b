package schema

import "time"

// Timestamp layouts used on disk.
const (
	TimeLayout      = "2006-01-02 15:04:05"
	EventTimeLayout = "2006-01-02 15:04:05.000000"
	DateLayout      = "2006-01-02"
)

// ============================================================================
// ROW TYPES
// ============================================================================

// User is one row of the users dimension table.
type User struct {
	UserID       int
	SignupTime   time.Time
	Country      string
	PlatformPref string
}

// Session is one row of the sessions fact table.
type Session struct {
	SessionID    string
	UserID       int
	SessionStart time.Time
	SessionEnd   time.Time
	Platform     string
	Country      string
}

// Duration returns SessionEnd - SessionStart.
func (s Session) Duration() time.Duration {
	return s.SessionEnd.Sub(s.SessionStart)
}

// Event is one row of the events fact table (raw or clean).
type Event struct {
	EventID   string
	UserID    int
	SessionID string
	EventTime time.Time
	EventType string
	Feature   string
	Platform  string
	Country   string
	IsNewUser bool
}

// EventDate returns the calendar date of the event in DateLayout.
func (e Event) EventDate() string {
	return e.EventTime.Format(DateLayout)
}

// RawEvent is an events row exactly as read from disk, before cleaning.
type RawEvent struct {
	EventID   string
	UserID    string
	SessionID string
	EventTime string
	EventType string
	Feature   string
	Platform  string
	Country   string
	IsNewUser string
}

// ============================================================================
// TABLE SCHEMAS
// ============================================================================

// Users is the users.csv schema.
var Users = Config{
	Name:   "users",
	Header: []string{"user_id", "signup_time", "country", "platform_pref"},
	Dimensions: []DimensionMeta{
		{Key: "user_id", DisplayName: "User", IsIdentifier: true},
		{Key: "signup_time", DisplayName: "Signup Time", IsTemporal: true, TemporalFormat: TimeLayout},
		DefaultDimension("country", "Country"),
		DefaultDimension("platform_pref", "Preferred Platform"),
	},
}

// Sessions is the sessions.csv schema.
var Sessions = Config{
	Name:   "sessions",
	Header: []string{"session_id", "user_id", "session_start", "session_end", "platform", "country"},
	Dimensions: []DimensionMeta{
		{Key: "session_id", DisplayName: "Session", IsIdentifier: true},
		{Key: "user_id", DisplayName: "User", IsIdentifier: true},
		{Key: "session_start", DisplayName: "Session Start", IsTemporal: true, TemporalFormat: TimeLayout},
		{Key: "session_end", DisplayName: "Session End", IsTemporal: true, TemporalFormat: TimeLayout},
		DefaultDimension("platform", "Platform"),
		DefaultDimension("country", "Country"),
	},
}

// Events is the raw_events.csv and clean_events.csv schema.
var Events = Config{
	Name: "events",
	Header: []string{
		"event_id", "user_id", "session_id", "event_time", "event_type",
		"feature", "platform", "country", "is_new_user",
	},
	Dimensions: []DimensionMeta{
		{Key: "event_id", DisplayName: "Event", IsIdentifier: true},
		{Key: "user_id", DisplayName: "User", IsIdentifier: true},
		{Key: "session_id", DisplayName: "Session", IsIdentifier: true},
		{Key: "event_time", DisplayName: "Event Time", IsTemporal: true, TemporalFormat: EventTimeLayout},
		DefaultDimension("event_type", "Event Type"),
		DefaultDimension("feature", "Feature"),
		DefaultDimension("platform", "Platform"),
		DefaultDimension("country", "Country"),
		DefaultDimension("is_new_user", "New User"),
	},
}

// DailyDAU is the daily_dau.csv schema.
var DailyDAU = Config{
	Name:       "daily_dau",
	Dimensions: []DimensionMeta{{Key: "event_date", DisplayName: "Date", IsTemporal: true, TemporalFormat: DateLayout}},
	Measures:   []MeasureMeta{DefaultMeasure("DAU", "DAU", "users")},
}

// DailyFeatureUsers is the daily_feature_users.csv schema.
var DailyFeatureUsers = Config{
	Name: "daily_feature_users",
	Dimensions: []DimensionMeta{
		{Key: "event_date", DisplayName: "Date", IsTemporal: true, TemporalFormat: DateLayout},
		DefaultDimension("feature", "Feature"),
	},
	Measures: []MeasureMeta{DefaultMeasure("unique_users", "Unique Users", "users")},
}

// SessionsPerUserDay is the sessions_per_user_day.csv schema.
var SessionsPerUserDay = Config{
	Name: "sessions_per_user_day",
	Dimensions: []DimensionMeta{
		{Key: "event_date", DisplayName: "Date", IsTemporal: true, TemporalFormat: DateLayout},
		{Key: "user_id", DisplayName: "User", IsIdentifier: true},
	},
	Measures: []MeasureMeta{DefaultMeasure("sessions", "Sessions", "sessions")},
}

// EventsPerSession is the events_per_session.csv schema.
var EventsPerSession = Config{
	Name:       "events_per_session",
	Dimensions: []DimensionMeta{{Key: "session_id", DisplayName: "Session", IsIdentifier: true}},
	Measures:   []MeasureMeta{DefaultMeasure("events_in_session", "Events in Session", "events")},
}

package generator

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidConfig is joined with every problem Validate finds.
var ErrInvalidConfig = errors.New("invalid generator config")

// Weighted is one category of a closed vocabulary with its relative weight.
type Weighted struct {
	Value  string  `yaml:"value"`
	Weight float64 `yaml:"weight"`
}

// IntRange is an inclusive clamp range.
type IntRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Clamp limits v to [Min, Max].
func (r IntRange) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// LogNormal parameterizes exp(N(Mu, Sigma)).
type LogNormal struct {
	Mu    float64 `yaml:"mu"`
	Sigma float64 `yaml:"sigma"`
}

// NegativeBinomial counts failures before Successes successes with success probability P.
type NegativeBinomial struct {
	Successes int     `yaml:"successes"`
	P         float64 `yaml:"p"`
}

// LinearRamp weights day 0 with Start and the last day with End.
type LinearRamp struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// Config holds every constant that shapes the synthetic dataset.
// A zero TargetSessions or TargetEvents keeps every candidate row.
type Config struct {
	Seed           uint64    `yaml:"seed"`
	Users          int       `yaml:"users"`
	Days           int       `yaml:"days"`
	StartDate      time.Time `yaml:"start_date"`
	TargetSessions int       `yaml:"target_sessions"`
	TargetEvents   int       `yaml:"target_events"`

	Platforms     []Weighted `yaml:"platforms"`
	Countries     []Weighted `yaml:"countries"`
	SignupWeights LinearRamp `yaml:"signup_weights"`

	SessionsPerUser   NegativeBinomial `yaml:"sessions_per_user"`
	SessionCount      IntRange         `yaml:"session_count"`
	SessionDuration   LogNormal        `yaml:"session_duration"`
	SessionMinutes    IntRange         `yaml:"session_minutes"`
	SignupRepairHours int              `yaml:"signup_repair_hours"`

	EventsPerSession       LogNormal  `yaml:"events_per_session"`
	EventCount             IntRange   `yaml:"event_count"`
	BaseEvents             []string   `yaml:"base_events"`
	EventWeights           []Weighted `yaml:"event_weights"`
	SignupEligibleFraction float64    `yaml:"signup_eligible_fraction"`
	SignupEventProbability float64    `yaml:"signup_event_probability"`

	NewUserWindow time.Duration `yaml:"new_user_window"`
}

// DefaultConfig returns the design-tool demo parameters.
func DefaultConfig() Config {
	return Config{
		Seed:           42,
		Users:          3000,
		Days:           60,
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		TargetSessions: 22000,
		TargetEvents:   90000,
		Platforms: []Weighted{
			{Value: "web", Weight: 0.55},
			{Value: "desktop", Weight: 0.45},
		},
		Countries: []Weighted{
			{Value: "US", Weight: 0.28},
			{Value: "IN", Weight: 0.22},
			{Value: "BR", Weight: 0.08},
			{Value: "DE", Weight: 0.07},
			{Value: "GB", Weight: 0.07},
			{Value: "CA", Weight: 0.06},
			{Value: "AU", Weight: 0.05},
			{Value: "SG", Weight: 0.09},
			{Value: "JP", Weight: 0.05},
		},
		SignupWeights:     LinearRamp{Start: 2.5, End: 1.0},
		SessionsPerUser:   NegativeBinomial{Successes: 2, P: 0.55},
		SessionCount:      IntRange{Min: 1, Max: 25},
		SessionDuration:   LogNormal{Mu: 2.2, Sigma: 0.55},
		SessionMinutes:    IntRange{Min: 2, Max: 120},
		SignupRepairHours: 48,
		EventsPerSession:  LogNormal{Mu: 2.1, Sigma: 0.6},
		EventCount:        IntRange{Min: 3, Max: 60},
		BaseEvents:        []string{EventLogin, EventOpenFile},
		EventWeights: []Weighted{
			{Value: EventLogin, Weight: 0.10},
			{Value: EventOpenFile, Weight: 0.18},
			{Value: EventCreateFile, Weight: 0.08},
			{Value: EventEditLayer, Weight: 0.28},
			{Value: EventAddComment, Weight: 0.10},
			{Value: EventInviteCollaborator, Weight: 0.04},
			{Value: EventShareFile, Weight: 0.05},
			{Value: EventExportDesign, Weight: 0.05},
			{Value: EventCreateComponent, Weight: 0.06},
			{Value: EventUsePlugin, Weight: 0.04},
			{Value: EventVersionHistory, Weight: 0.02},
			{Value: EventLogout, Weight: 0.00},
		},
		SignupEligibleFraction: 0.85,
		SignupEventProbability: 0.02,
		NewUserWindow:          7 * 24 * time.Hour,
	}
}

// Validate reports every misconfiguration at once.
func (c Config) Validate() error {
	var problems []error
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if c.Users <= 0 {
		add("users must be positive, got %d", c.Users)
	}
	if c.Days <= 0 {
		add("days must be positive, got %d", c.Days)
	}
	if c.StartDate.IsZero() {
		add("start_date is required")
	}
	if c.TargetSessions < 0 || c.TargetEvents < 0 {
		add("target counts must not be negative")
	}

	if err := checkWeights("platforms", c.Platforms); err != nil {
		problems = append(problems, err)
	}
	if err := checkWeights("countries", c.Countries); err != nil {
		problems = append(problems, err)
	}
	if err := checkWeights("event_weights", c.EventWeights); err != nil {
		problems = append(problems, err)
	}
	for _, w := range c.EventWeights {
		if !IsKnownEventType(w.Value) {
			add("event_weights: unknown event type %q", w.Value)
		}
	}
	for _, e := range c.BaseEvents {
		if !IsKnownEventType(e) {
			add("base_events: unknown event type %q", e)
		}
	}
	if c.SignupWeights.Start < 0 || c.SignupWeights.End < 0 || c.SignupWeights.Start+c.SignupWeights.End <= 0 {
		add("signup_weights must be non-negative with a positive end point")
	} else if c.Days == 1 && c.SignupWeights.Start <= 0 {
		add("signup_weights.start must be positive when days is 1")
	}

	if c.SessionsPerUser.Successes < 1 {
		add("sessions_per_user.successes must be >= 1")
	}
	if c.SessionsPerUser.P <= 0 || c.SessionsPerUser.P > 1 {
		add("sessions_per_user.p must be in (0, 1], got %v", c.SessionsPerUser.P)
	}
	if c.SessionCount.Min < 1 {
		add("session_count.min must be >= 1 so every user has a session, got %d", c.SessionCount.Min)
	}
	checkRange(add, "session_count", c.SessionCount)
	checkRange(add, "session_minutes", c.SessionMinutes)
	if c.SessionMinutes.Min < 0 {
		add("session_minutes.min must not be negative")
	}
	if c.SessionDuration.Sigma < 0 || c.EventsPerSession.Sigma < 0 {
		add("log-normal sigma must not be negative")
	}
	if c.SignupRepairHours < 0 {
		add("signup_repair_hours must not be negative")
	}

	checkRange(add, "event_count", c.EventCount)
	if c.EventCount.Min < len(c.BaseEvents) {
		add("event_count.min (%d) must cover the %d base events", c.EventCount.Min, len(c.BaseEvents))
	}
	if !inUnit(c.SignupEligibleFraction) {
		add("signup_eligible_fraction must be in [0, 1], got %v", c.SignupEligibleFraction)
	}
	if !inUnit(c.SignupEventProbability) {
		add("signup_event_probability must be in [0, 1], got %v", c.SignupEventProbability)
	}
	if c.NewUserWindow < 0 {
		add("new_user_window must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidConfig}, problems...)...)
}

func checkRange(add func(string, ...interface{}), name string, r IntRange) {
	if r.Min > r.Max {
		add("%s: min %d exceeds max %d", name, r.Min, r.Max)
	}
}

func checkWeights(name string, ws []Weighted) error {
	if len(ws) == 0 {
		return fmt.Errorf("%s: at least one category is required", name)
	}
	weights := make([]float64, len(ws))
	seen := make(map[string]bool, len(ws))
	for i, w := range ws {
		if seen[w.Value] {
			return fmt.Errorf("%s: duplicate category %q", name, w.Value)
		}
		seen[w.Value] = true
		weights[i] = w.Weight
	}
	if _, err := NewSampler(weights); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

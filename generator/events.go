package generator

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/usagesim/schema"
)

// GenerateEvents fills every session with events, subsamples the pool to
// TargetEvents, sorts it by event time and flags new-user events.
//
// Each session starts with BaseEvents, then draws the rest from EventWeights
// with replacement. Users in the signup-eligible set occasionally get a
// leading signup event. Timestamps are sorted uniform offsets over the
// session span, truncated to microseconds so they survive the CSV round trip.
//
// Subsampling is uniform over the whole pool, so a session may end up with
// no events at all.
func (g *Generator) GenerateEvents(users []schema.User, sessions []schema.Session) []schema.Event {
	signupByUser := make(map[int]time.Time, len(users))
	for _, u := range users {
		signupByUser[u.UserID] = u.SignupTime
	}
	eligible := g.signupEligible(users)

	ids := newIDCounter("e_")
	var candidates []schema.Event

	for _, s := range sessions {
		k := g.cfg.EventCount.Clamp(int(drawLogNormal(g.rng, g.cfg.EventsPerSession)))

		chosen := make([]string, 0, k+1)
		chosen = append(chosen, g.cfg.BaseEvents...)
		for len(chosen) < k {
			chosen = append(chosen, g.events.Pick(g.rng))
		}
		if eligible[s.UserID] && g.rng.Float64() < g.cfg.SignupEventProbability {
			chosen = append([]string{EventSignup}, chosen...)
		}

		span := s.Duration().Seconds()
		offsets := make([]float64, len(chosen))
		for i := range offsets {
			offsets[i] = g.rng.Float64() * span
		}
		sort.Float64s(offsets)

		for i, eventType := range chosen {
			offset := time.Duration(offsets[i] * float64(time.Second)).Truncate(time.Microsecond)
			candidates = append(candidates, schema.Event{
				EventID:   ids.Next(),
				UserID:    s.UserID,
				SessionID: s.SessionID,
				EventTime: s.SessionStart.Add(offset),
				EventType: eventType,
				Feature:   FeatureFor(eventType),
				Platform:  s.Platform,
				Country:   s.Country,
			})
		}
	}

	events := candidates
	if g.cfg.TargetEvents > 0 && len(candidates) > g.cfg.TargetEvents {
		picked := SampleWithoutReplacement(g.rng, len(candidates), g.cfg.TargetEvents)
		events = make([]schema.Event, len(picked))
		for i, idx := range picked {
			events[i] = candidates[idx]
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].EventTime.Before(events[j].EventTime)
	})

	for i := range events {
		signup, ok := signupByUser[events[i].UserID]
		events[i].IsNewUser = ok && !events[i].EventTime.After(signup.Add(g.cfg.NewUserWindow))
	}

	g.log.Debug("events generated",
		zap.Int("candidates", ids.Issued()),
		zap.Int("kept", len(events)),
		zap.Int("signup_eligible_users", len(eligible)),
	)
	return events
}

// signupEligible picks round(SignupEligibleFraction * len(users)) users once.
func (g *Generator) signupEligible(users []schema.User) map[int]bool {
	k := int(math.Round(g.cfg.SignupEligibleFraction * float64(len(users))))
	picked := SampleWithoutReplacement(g.rng, len(users), k)
	eligible := make(map[int]bool, len(picked))
	for _, idx := range picked {
		eligible[users[idx].UserID] = true
	}
	return eligible
}

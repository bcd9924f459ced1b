package generator

import (
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/usagesim/schema"
)

// GenerateSessions builds candidate sessions for every user and subsamples
// them to TargetSessions.
//
// Per user the count is NegativeBinomial+1 clamped to SessionCount, so every
// user gets at least SessionCount.Min sessions before subsampling. A candidate
// start is a uniform day of the window plus hour and minute, passed through
// the SignupRepair policy. Durations are log-normal minutes clamped to
// SessionMinutes.
func (g *Generator) GenerateSessions(users []schema.User) []schema.Session {
	ids := newIDCounter("s_")
	var candidates []schema.Session

	for _, u := range users {
		n := g.cfg.SessionCount.Clamp(drawNegativeBinomial(g.rng, g.cfg.SessionsPerUser) + 1)
		for i := 0; i < n; i++ {
			day := g.rng.IntN(g.cfg.Days)
			hour := g.rng.IntN(24)
			minute := g.rng.IntN(60)
			start := g.cfg.StartDate.Add(
				time.Duration(day)*24*time.Hour +
					time.Duration(hour)*time.Hour +
					time.Duration(minute)*time.Minute,
			)
			start = g.repair.Apply(g.rng, start, u.SignupTime)

			minutes := g.cfg.SessionMinutes.Clamp(int(drawLogNormal(g.rng, g.cfg.SessionDuration)))

			candidates = append(candidates, schema.Session{
				SessionID:    ids.Next(),
				UserID:       u.UserID,
				SessionStart: start,
				SessionEnd:   start.Add(time.Duration(minutes) * time.Minute),
				Platform:     u.PlatformPref,
				Country:      u.Country,
			})
		}
	}

	sessions := candidates
	if g.cfg.TargetSessions > 0 && len(candidates) > g.cfg.TargetSessions {
		picked := SampleWithoutReplacement(g.rng, len(candidates), g.cfg.TargetSessions)
		sessions = make([]schema.Session, len(picked))
		for i, idx := range picked {
			sessions[i] = candidates[idx]
		}
	}

	g.log.Debug("sessions generated",
		zap.Int("candidates", ids.Issued()),
		zap.Int("kept", len(sessions)),
	)
	return sessions
}

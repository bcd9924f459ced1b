package generator

import (
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/usagesim/schema"
)

// GenerateUsers builds the users table with ids 1..Users. Signup days follow
// the linear ramp over the window, so earlier days are more likely.
func (g *Generator) GenerateUsers() []schema.User {
	users := make([]schema.User, g.cfg.Users)
	for i := range users {
		day := g.signupDay.Pick(g.rng)
		hour := g.rng.IntN(24)
		users[i] = schema.User{
			UserID:     i + 1,
			SignupTime: g.cfg.StartDate.Add(time.Duration(day)*24*time.Hour + time.Duration(hour)*time.Hour),
		}
	}
	for i := range users {
		users[i].Country = g.countries.Pick(g.rng)
	}
	for i := range users {
		users[i].PlatformPref = g.platforms.Pick(g.rng)
	}

	g.log.Debug("users generated", zap.Int("count", len(users)))
	return users
}

// Package generator fabricates the users, sessions and events tables of a
// collaborative design tool from parameterized random draws.
//
// A single seeded PCG source drives every step, so the same Config always
// yields the same tables.
package generator

import (
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/usagesim/schema"
)

// Dataset is the output of one generation run.
type Dataset struct {
	Users    []schema.User
	Sessions []schema.Session
	Events   []schema.Event
}

// Generator runs the three synthesis steps against one random stream.
type Generator struct {
	cfg Config
	rng *rand.Rand
	log *zap.Logger

	platforms *Categorical
	countries *Categorical
	events    *Categorical
	signupDay *Sampler
	repair    SignupRepair
}

// NewGenerator validates cfg and seeds the random stream.
func NewGenerator(cfg Config, log *zap.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	platforms, err := NewCategorical(cfg.Platforms)
	if err != nil {
		return nil, fmt.Errorf("platforms: %w", err)
	}
	countries, err := NewCategorical(cfg.Countries)
	if err != nil {
		return nil, fmt.Errorf("countries: %w", err)
	}
	events, err := NewCategorical(cfg.EventWeights)
	if err != nil {
		return nil, fmt.Errorf("event weights: %w", err)
	}
	signupDay, err := NewSampler(linearRamp(cfg.SignupWeights, cfg.Days))
	if err != nil {
		return nil, fmt.Errorf("signup weights: %w", err)
	}

	return &Generator{
		cfg:       cfg,
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
		log:       log,
		platforms: platforms,
		countries: countries,
		events:    events,
		signupDay: signupDay,
		repair:    SignupRepair{MaxJitterHours: cfg.SignupRepairHours},
	}, nil
}

// Generate runs users → sessions → events.
func (g *Generator) Generate() *Dataset {
	started := time.Now()

	users := g.GenerateUsers()
	sessions := g.GenerateSessions(users)
	events := g.GenerateEvents(users, sessions)

	g.log.Info("synthetic dataset generated",
		zap.Uint64("seed", g.cfg.Seed),
		zap.Int("users", len(users)),
		zap.Int("sessions", len(sessions)),
		zap.Int("events", len(events)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &Dataset{Users: users, Sessions: sessions, Events: events}
}

// Config returns the validated configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Package synth generates synthetic participant CSVs for local runs and
// end-to-end tests.
package synth

import (
	"fmt"
	"time"
)

// Config holds configuration for a generated data set.
type Config struct {
	Teams         int      // Number of teams (clears) to generate
	TeamSize      int      // Members per team
	Bosses        []int    // Achieve ids to spread teams over
	Servers       []string // Server names to draw from
	Seed          int64    // Seed of the random source
	RejectRate    float64  // Share of teams written with status 0
	MalformedRate float64  // Share of rows with a broken teammate or metric column
}

// DefaultConfig returns a small but realistic data set configuration.
func DefaultConfig() Config {
	return Config{
		Teams:         200,
		TeamSize:      defaultTeamSize,
		Bosses:        []int{defaultBoss, defaultBoss + 1, defaultBoss + 2},
		Servers:       []string{"梦江南", "乾坤一掷", "唯我独尊", "斗转星移", "绝代天骄"},
		Seed:          1,
		RejectRate:    0.05,
		MalformedRate: 0.01,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Teams < 0:
		return fmt.Errorf("%w: teams must not be negative", ErrInvalidConfig)
	case c.TeamSize < minTeamSize:
		return fmt.Errorf("%w: team size must be at least %d", ErrInvalidConfig, minTeamSize)
	case len(c.Bosses) == 0:
		return fmt.Errorf("%w: at least one boss is required", ErrInvalidConfig)
	case len(c.Servers) == 0:
		return fmt.Errorf("%w: at least one server is required", ErrInvalidConfig)
	case c.RejectRate < 0 || c.RejectRate > 1, c.MalformedRate < 0 || c.MalformedRate > 1:
		return fmt.Errorf("%w: rates must be within [0, 1]", ErrInvalidConfig)
	}
	return nil
}

// Stats holds generation statistics.
type Stats struct {
	Teams     int
	Rows      int
	Rejected  int
	Malformed int
	Duration  time.Duration
}

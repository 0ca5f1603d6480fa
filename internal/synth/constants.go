package synth

import "errors"

// ErrInvalidConfig is returned for unusable generator settings.
var ErrInvalidConfig = errors.New("invalid generator config")

// Team shape constants.
const (
	defaultTeamSize = 25
	minTeamSize     = 3
	defaultBoss     = 10230
	// Teams of at least this size bring a second tank and more healers.
	raidSize = 10
)

// Timing constants, in seconds.
const (
	baseFinishTime  = 1700000000
	finishSpread    = 7 * 24 * 3600
	fightTimeMean   = 420.0
	fightTimeStdDev = 60.0
	minFightTime    = 60.0
)

// Performance constants.
const (
	dpsMean     = 120000.0
	dpsStdDev   = 15000.0
	hpsMean     = 60000.0
	hpsStdDev   = 8000.0
	classSpread = 0.15
	// outlierRate is the share of rows with an inflated metric.
	outlierRate = 0.01
	outlierGain = 8.0
)

// File permission constants.
const (
	filePermission = 0o644
)

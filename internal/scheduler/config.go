package scheduler

import (
	"errors"
	"time"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Config struct {
	// Interval between sweeps.
	Interval time.Duration
	// JobTimeout bounds a single job execution.
	JobTimeout time.Duration
	// DisabledJobs names jobs to skip, for targeted ops intervention.
	DisabledJobs []string
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 30 * time.Second
	}
	return c
}

func (c Config) isJobEnabled(name string) bool {
	for _, disabled := range c.DisabledJobs {
		if disabled == name {
			return false
		}
	}
	return true
}

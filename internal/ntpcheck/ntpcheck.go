// Package ntpcheck measures the operator host's clock offset against an
// NTP pool. The fleet correlates command logs by hub timestamps, so a
// drifting hub clock is worth flagging before a configuration run.
package ntpcheck

import (
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

const (
	DefaultPool = "pool.ntp.org"
	// DefaultThreshold is the offset above which the clock counts as
	// drifted.
	DefaultThreshold = 500 * time.Millisecond
)

// Status is one offset measurement.
type Status struct {
	Pool    string
	Offset  time.Duration
	Healthy bool
}

// Checker performs one-shot clock offset measurements. The zero value
// queries pool.ntp.org with the default threshold.
type Checker struct {
	Pool      string
	Threshold time.Duration

	// QueryFunc substitutes the network query in tests.
	QueryFunc func(pool string) (time.Duration, error)
}

// Check queries the pool once and classifies the measured offset.
func (c Checker) Check() (Status, error) {
	pool := c.Pool
	if pool == "" {
		pool = DefaultPool
	}
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	offset, err := c.query(pool)
	if err != nil {
		return Status{Pool: pool}, fmt.Errorf("query %s: %w", pool, err)
	}
	return Status{Pool: pool, Offset: offset, Healthy: offset.Abs() < threshold}, nil
}

func (c Checker) query(pool string) (time.Duration, error) {
	if c.QueryFunc != nil {
		return c.QueryFunc(pool)
	}
	resp, err := ntp.Query(pool)
	if err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

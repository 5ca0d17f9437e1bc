// Package health aggregates collaborator health checks into one readiness
// verdict for the liveness endpoint.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CheckFunc reports whether a single collaborator is currently healthy.
// Checks reflect instantaneous status; nothing is retried here.
type CheckFunc func(ctx context.Context) bool

type check struct {
	name string
	fn   CheckFunc
}

// Checker composes named collaborator checks. Registration order matters:
// the liveness endpoint reports the first failing collaborator's name.
type Checker struct {
	mu      sync.RWMutex
	checks  []check
	timeout time.Duration
	logger  zerolog.Logger
}

// NewChecker creates a new health checker.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		timeout: 5 * time.Second,
		logger:  logger.With().Str("component", "health").Logger(),
	}
}

// Register adds a named health check. Names must be unique; registering the
// same name twice replaces the earlier check in place.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.checks {
		if c.checks[i].name == name {
			c.checks[i].fn = fn
			return
		}
	}
	c.checks = append(c.checks, check{name: name, fn: fn})
}

// Healthy returns true iff every registered check passes.
func (c *Checker) Healthy(ctx context.Context) bool {
	_, ok := c.FirstFailure(ctx)
	return ok == ""
}

// FirstFailure runs all checks in registration order and returns the results
// plus the name of the first failing collaborator ("" when all pass).
// Checks run sequentially so "first" is deterministic; each gets its own
// timeout. The Checker itself never fails — it only reports.
func (c *Checker) FirstFailure(ctx context.Context) (map[string]bool, string) {
	c.mu.RLock()
	checks := make([]check, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	results := make(map[string]bool, len(checks))
	failed := ""
	for _, ch := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		ok := ch.fn(checkCtx)
		cancel()
		results[ch.name] = ok
		if !ok && failed == "" {
			failed = ch.name
			c.logger.Warn().Str("collaborator", ch.name).Msg("health check failed")
		}
	}
	return results, failed
}

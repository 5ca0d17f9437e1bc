package health

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func alwaysUp(context.Context) bool   { return true }
func alwaysDown(context.Context) bool { return false }

func TestChecker_AllHealthy(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("db", alwaysUp)
	c.Register("queue", alwaysUp)
	c.Register("blob", alwaysUp)

	assert.True(t, c.Healthy(context.Background()))
}

func TestChecker_AnyFailureFlipsAggregate(t *testing.T) {
	for _, down := range []string{"db", "queue", "blob"} {
		t.Run(down, func(t *testing.T) {
			c := NewChecker(zerolog.Nop())
			for _, name := range []string{"db", "queue", "blob"} {
				if name == down {
					c.Register(name, alwaysDown)
				} else {
					c.Register(name, alwaysUp)
				}
			}
			assert.False(t, c.Healthy(context.Background()))
			_, failed := c.FirstFailure(context.Background())
			assert.Equal(t, down, failed)
		})
	}
}

func TestChecker_FirstFailureInRegistrationOrder(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("db", alwaysDown)
	c.Register("queue", alwaysDown)

	results, failed := c.FirstFailure(context.Background())
	assert.Equal(t, "db", failed)
	assert.False(t, results["db"])
	assert.False(t, results["queue"])
}

func TestChecker_NoChecks(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	assert.True(t, c.Healthy(context.Background()))
}

func TestChecker_RegisterReplacesByName(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("db", alwaysDown)
	c.Register("db", alwaysUp)

	assert.True(t, c.Healthy(context.Background()))
}

package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThrottleDropsIntermediateUpdates(t *testing.T) {
	var calls []int
	r := Throttle(ProgressFunc(func(done, total int) {
		calls = append(calls, done)
	}), 1) // one update per second: only the limiter's initial token

	for i := 1; i <= 1000; i++ {
		r.OnProgress(i, 1000)
	}

	// The first update spends the token, the rest are dropped until the
	// final update, which always goes through.
	assert.Less(t, len(calls), 1000)
	assert.Equal(t, 1, calls[0])
	assert.Equal(t, 1000, calls[len(calls)-1])
}

func TestThrottleAlwaysDeliversFinal(t *testing.T) {
	var final bool
	r := Throttle(ProgressFunc(func(done, total int) {
		if done >= total {
			final = true
		}
	}), 0.001)

	r.OnProgress(5, 10)
	r.OnProgress(10, 10)
	assert.True(t, final)
}

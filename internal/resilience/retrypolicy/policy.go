// Package retrypolicy is the single place the pipeline's retry constants
// live. Decide is a pure function: given how many attempts an episode has
// consumed and why the last one failed, it says whether to retry and after
// how long.
package retrypolicy

import (
	"math/rand"
	"time"

	"channelmirror/internal/domain/entity"
)

const (
	base = 30 * time.Second
	cap_ = 1 * time.Hour
)

// Decision is the outcome of Decide.
type Decision struct {
	Retryable bool
	Delay     time.Duration
}

// Decide classifies (attempts, maxAttempts, kind) into a retry decision.
// attempts is the count after the current failure is recorded.
func Decide(attempts, maxAttempts int, kind entity.ErrorKind) Decision {
	if kind == entity.ErrorKindCancelled {
		return Decision{Retryable: false}
	}
	if !kind.Retryable() {
		return Decision{Retryable: false}
	}
	if attempts >= maxAttempts {
		return Decision{Retryable: false}
	}
	shift := attempts - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 20 {
		shift = 20
	}

	delay := base * time.Duration(1<<uint(shift))
	if delay > cap_ || delay <= 0 {
		delay = cap_
	}
	jitter := 0.5 + rand.Float64()
	return Decision{Retryable: true, Delay: time.Duration(float64(delay) * jitter)}
}

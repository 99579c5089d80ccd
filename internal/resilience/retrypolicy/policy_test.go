package retrypolicy_test

import (
	"testing"
	"time"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/resilience/retrypolicy"
)

func TestDecide_Cancelled_NeverRetried(t *testing.T) {
	d := retrypolicy.Decide(1, 5, entity.ErrorKindCancelled)
	if d.Retryable {
		t.Fatal("Decide: cancelled must never be retryable")
	}
}

func TestDecide_TerminalKinds_NeverRetried(t *testing.T) {
	for _, kind := range []entity.ErrorKind{entity.ErrorKindNotFound, entity.ErrorKindForbidden, entity.ErrorKindFormat} {
		if d := retrypolicy.Decide(1, 5, kind); d.Retryable {
			t.Fatalf("Decide(%s): want not retryable", kind)
		}
	}
}

func TestDecide_NetworkRetried_UntilMaxAttempts(t *testing.T) {
	d := retrypolicy.Decide(1, 5, entity.ErrorKindNetwork)
	if !d.Retryable {
		t.Fatal("Decide: network error under max attempts should retry")
	}
	if d.Delay < 15*time.Second || d.Delay > 1*time.Hour {
		t.Fatalf("Decide: delay %v out of expected bounds", d.Delay)
	}

	d = retrypolicy.Decide(5, 5, entity.ErrorKindNetwork)
	if d.Retryable {
		t.Fatal("Decide: attempts==maxAttempts must be terminal")
	}
}

func TestDecide_DelayCapped(t *testing.T) {
	d := retrypolicy.Decide(10, 20, entity.ErrorKindUnknown)
	if d.Delay > 1*time.Hour+1 {
		t.Fatalf("Decide: delay %v exceeds cap", d.Delay)
	}
}

func TestDecide_DelayGrowsExponentially(t *testing.T) {
	// attempts=3 => base delay 30s*2^2=120s, jitter [0.5,1.5] => [60s,180s],
	// which never overlaps attempts=1's [15s,45s] range.
	d3 := retrypolicy.Decide(3, 10, entity.ErrorKindNetwork)
	if d3.Delay < 60*time.Second || d3.Delay > 180*time.Second {
		t.Fatalf("Decide(3): delay %v out of expected [60s,180s] range", d3.Delay)
	}
}

// Package retrystore implements the Retry-Action Store (C3): per-APN
// tracking of the most recent retry action per error cause, production of
// new retry actions on reported errors, and eviction on unthrottling.
package retrystore

import (
	"math"
	"time"

	"github.com/Azure/iwlan-eproe/pkg/cause"
	"github.com/Azure/iwlan-eproe/pkg/policy"
)

// RetryAction is a snapshot of one retry decision. IsBackoffDerived
// selects between the PolicyDerivedRetryAction and BackoffDerivedRetryAction
// variants of spec.md §3; fields meaningful only to one variant are zero in
// the other.
type RetryAction struct {
	IsBackoffDerived  bool
	Error             cause.Error
	Policy            *policy.ErrorPolicy
	LastErrorTime     time.Time
	TotalWaitMs       int64
	CurrentRetryIndex int
	BackoffSeconds    int
}

func newPolicyDerived(err cause.Error, p *policy.ErrorPolicy, index int) RetryAction {
	waitSeconds := p.WaitSeconds(index)
	return RetryAction{
		Error:             err,
		Policy:            p,
		LastErrorTime:     time.Now(),
		TotalWaitMs:       int64(waitSeconds) * 1000,
		CurrentRetryIndex: index,
	}
}

func newBackoffDerived(err cause.Error, p *policy.ErrorPolicy, backoffSeconds int) RetryAction {
	return RetryAction{
		IsBackoffDerived: true,
		Error:            err,
		Policy:           p,
		LastErrorTime:    time.Now(),
		TotalWaitMs:      int64(backoffSeconds) * 1000,
		BackoffSeconds:   backoffSeconds,
	}
}

// RemainingWaitMs implements spec.md §4.3's remaining_wait_ms() using the
// monotonic portion of time.Time, never wall-clock.
func (a RetryAction) RemainingWaitMs() int64 {
	elapsed := time.Since(a.LastErrorTime).Milliseconds()
	remaining := a.TotalWaitMs - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func handoverAttemptCount(p *policy.ErrorPolicy) int {
	if p.HandoverAttemptCount == nil {
		return math.MaxInt
	}
	return *p.HandoverAttemptCount
}

// ShouldRetryWithInitialAttach implements spec.md §4.3's
// should_retry_with_initial_attach().
func (a RetryAction) ShouldRetryWithInitialAttach() bool {
	if a.Policy.ErrorType != policy.IkeProtocol {
		return false
	}
	if a.IsBackoffDerived {
		return handoverAttemptCount(a.Policy) == 0
	}
	return a.CurrentRetryIndex+1 >= handoverAttemptCount(a.Policy)
}

// CurrentFqdnIndex implements spec.md §4.3's current_fqdn_index().
func (a RetryAction) CurrentFqdnIndex(numFqdns int) int {
	if a.IsBackoffDerived {
		return 0
	}
	return a.Policy.FqdnIndex(a.CurrentRetryIndex, numFqdns)
}

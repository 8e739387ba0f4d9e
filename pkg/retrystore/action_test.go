package retrystore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Azure/iwlan-eproe/pkg/cause"
	"github.com/Azure/iwlan-eproe/pkg/policy"
)

func TestShouldRetryWithInitialAttach_PolicyDerived(t *testing.T) {
	count := 2
	p := &policy.ErrorPolicy{ErrorType: policy.IkeProtocol, HandoverAttemptCount: &count}
	a := newPolicyDerived(cause.NewIkeProtocolError(24), p, 1)
	assert.True(t, a.ShouldRetryWithInitialAttach())

	a2 := newPolicyDerived(cause.NewIkeProtocolError(24), p, 0)
	assert.False(t, a2.ShouldRetryWithInitialAttach())
}

func TestShouldRetryWithInitialAttach_AbsentCountNeverTriggers(t *testing.T) {
	p := &policy.ErrorPolicy{ErrorType: policy.IkeProtocol}
	a := newPolicyDerived(cause.NewIkeProtocolError(24), p, 1000)
	assert.False(t, a.ShouldRetryWithInitialAttach())
}

func TestShouldRetryWithInitialAttach_BackoffDerivedRequiresZeroCount(t *testing.T) {
	zero := 0
	p := &policy.ErrorPolicy{ErrorType: policy.IkeProtocol, HandoverAttemptCount: &zero}
	a := newBackoffDerived(cause.NewIkeProtocolError(24), p, 5)
	assert.True(t, a.ShouldRetryWithInitialAttach())

	nonzero := 3
	p2 := &policy.ErrorPolicy{ErrorType: policy.IkeProtocol, HandoverAttemptCount: &nonzero}
	a2 := newBackoffDerived(cause.NewIkeProtocolError(24), p2, 5)
	assert.False(t, a2.ShouldRetryWithInitialAttach())
}

func TestShouldRetryWithInitialAttach_NonIkePolicyNeverTriggers(t *testing.T) {
	p := &policy.ErrorPolicy{ErrorType: policy.Generic}
	a := newPolicyDerived(cause.NewNonIkeError(cause.IOException), p, 1000)
	assert.False(t, a.ShouldRetryWithInitialAttach())
}

func TestCurrentFqdnIndex_BackoffDerivedAlwaysZero(t *testing.T) {
	p := &policy.ErrorPolicy{RetryArray: []int{1, 2, 4}, NumAttemptsPerFqdn: 2}
	a := newBackoffDerived(cause.NewNonIkeError(cause.IOException), p, 5)
	assert.Equal(t, 0, a.CurrentFqdnIndex(3))
}

func TestRemainingWaitMs_NeverNegative(t *testing.T) {
	p := &policy.ErrorPolicy{RetryArray: []int{0}}
	a := newPolicyDerived(cause.NewNonIkeError(cause.IOException), p, 0)
	assert.Equal(t, int64(0), a.RemainingWaitMs())
}

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Azure/iwlan-eproe/pkg/cause"
)

func TestWaitSeconds_EmptyArray(t *testing.T) {
	p := &ErrorPolicy{RetryArray: []int{}}
	assert.Equal(t, oneDaySeconds, p.WaitSeconds(0))
	assert.Equal(t, oneDaySeconds, p.WaitSeconds(7))
}

func TestWaitSeconds_Infinite(t *testing.T) {
	// S2: carrier [0,2,5,-1], infinite=true clamps at len-2=2.
	p := &ErrorPolicy{RetryArray: []int{0, 2, 5, -1}, InfiniteRetriesWithLastRetryTime: true}
	assert.Equal(t, 0, p.WaitSeconds(0))
	assert.Equal(t, 2, p.WaitSeconds(1))
	assert.Equal(t, 5, p.WaitSeconds(2))
	assert.Equal(t, 5, p.WaitSeconds(3))
	assert.Equal(t, 5, p.WaitSeconds(100))
}

func TestWaitSeconds_Finite(t *testing.T) {
	p := &ErrorPolicy{RetryArray: []int{5, -1}}
	// Hand-built [5,-1] with the infinite flag unset (the parser would set
	// it): clamps at len-1=1, whose -1 reads as one day.
	assert.Equal(t, 5, p.WaitSeconds(0))
	assert.Equal(t, oneDaySeconds, p.WaitSeconds(1))
	assert.Equal(t, oneDaySeconds, p.WaitSeconds(5))
}

func TestFqdnIndex_RotatesPerAttemptGroup(t *testing.T) {
	// S6: num_attempts_per_fqdn=2, num_fqdns=3, i=0..4 -> {0,1,1,2,2}.
	p := &ErrorPolicy{RetryArray: []int{1, 2, 4, 8, -1}, NumAttemptsPerFqdn: 2}
	want := []int{0, 1, 1, 2, 2}
	for i, w := range want {
		assert.Equal(t, w, p.FqdnIndex(i, 3), "i=%d", i)
	}
}

func TestFqdnIndex_DisabledWhenNotConfigured(t *testing.T) {
	p := &ErrorPolicy{RetryArray: []int{1, -1}}
	assert.Equal(t, -1, p.FqdnIndex(0, 3))
}

func TestIsFallbackMatch(t *testing.T) {
	fallback := &ErrorPolicy{ErrorType: Fallback, ErrorDetails: []DetailToken{{Wildcard: true}}}
	assert.True(t, fallback.IsFallbackMatch())

	genericWildcard := &ErrorPolicy{ErrorType: Generic, ErrorDetails: []DetailToken{{Wildcard: true}}}
	assert.True(t, genericWildcard.IsFallbackMatch())

	genericSpecific := &ErrorPolicy{ErrorType: Generic, ErrorDetails: []DetailToken{{Generic: cause.TimeoutException}}}
	assert.False(t, genericSpecific.IsFallbackMatch())
}

func TestMatches_IkeProtocolRange(t *testing.T) {
	p := &ErrorPolicy{ErrorType: IkeProtocol, ErrorDetails: []DetailToken{{IkeMin: 8192, IkeMax: 8245}}}
	assert.True(t, p.Matches(cause.NewIkeProtocolError(8241)))
	assert.False(t, p.Matches(cause.NewIkeProtocolError(24)))
	assert.False(t, p.Matches(cause.NewNonIkeError(cause.TimeoutException)))
}

func TestMatches_Generic(t *testing.T) {
	p := &ErrorPolicy{ErrorType: Generic, ErrorDetails: []DetailToken{{Generic: cause.IOException}}}
	assert.True(t, p.Matches(cause.NewNonIkeError(cause.IOException)))
	assert.False(t, p.Matches(cause.NewNonIkeError(cause.TimeoutException)))
}

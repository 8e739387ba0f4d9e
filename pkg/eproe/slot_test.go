package eproe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azure/iwlan-eproe/pkg/cause"
	"github.com/Azure/iwlan-eproe/pkg/config"
	"github.com/Azure/iwlan-eproe/pkg/policy"
)

type noopSub struct{}

func (noopSub) Subscribe(policy.UnthrottlingEvent)   {}
func (noopSub) Unsubscribe(policy.UnthrottlingEvent) {}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) NotifyUnthrottled(apn string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, apn)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func newTestSlot(t *testing.T, doc string) (*Slot, *recordingNotifier) {
	t.Helper()
	table, err := policy.Parse([]byte(doc), false)
	require.NoError(t, err)
	notifier := &recordingNotifier{}
	s := NewSlot(SlotID("test"), config.Default(), table, noopSub{}, notifier)
	t.Cleanup(s.Teardown)
	return s, notifier
}

const simpleDoc = `[{"ApnName":"*","ErrorTypes":[{"ErrorType":"*","ErrorDetails":["*"],"RetryArray":["5","-1"],"UnthrottlingEvents":["WIFI_DISABLE_EVENT"]}]}]`

func TestReport_ReturnsWaitSecondsFromResolvedPolicy(t *testing.T) {
	s, _ := newTestSlot(t, simpleDoc)
	wait := s.Report("ims", cause.NewNonIkeError(cause.IOException))
	assert.Equal(t, int64(5), wait)
}

func TestReport_NoErrorClearsStoredState(t *testing.T) {
	s, _ := newTestSlot(t, simpleDoc)
	s.Report("ims", cause.NewNonIkeError(cause.IOException))
	assert.False(t, s.CanBringUp("ims"))

	s.Report("ims", cause.NoErrorValue())
	assert.True(t, s.CanBringUp("ims"))
}

func TestCanBringUp_TrueForUnknownApn(t *testing.T) {
	s, _ := newTestSlot(t, simpleDoc)
	assert.True(t, s.CanBringUp("never-reported"))
}

func TestPublicCause_ReflectsLastReportedError(t *testing.T) {
	s, _ := newTestSlot(t, simpleDoc)
	s.Report("ims", cause.NewNonIkeError(cause.IOException))
	assert.Equal(t, cause.PublicErrorUnspecified, s.PublicCause("ims"))
}

func TestReloadCarrierPolicies_SwapsResolverAndResyncsEvents(t *testing.T) {
	s, _ := newTestSlot(t, simpleDoc)

	overlay, err := policy.Parse([]byte(`[{"ApnName":"ims","ErrorTypes":[{"ErrorType":"GENERIC_ERROR_TYPE","ErrorDetails":["IO_EXCEPTION"],"RetryArray":["1"],"UnthrottlingEvents":[]}]}]`), false)
	require.NoError(t, err)
	s.ReloadCarrierPolicies(overlay)

	wait := s.Report("ims", cause.NewNonIkeError(cause.IOException))
	assert.Equal(t, int64(1), wait)
}

func TestTeardown_StopsUnthrottlerCleanly(t *testing.T) {
	newTestSlot(t, simpleDoc)
}

package retrystore

import (
	"sync"

	"github.com/Azure/iwlan-eproe/pkg/cause"
	"github.com/Azure/iwlan-eproe/pkg/policy"
	"github.com/Azure/iwlan-eproe/pkg/resolver"
)

// ApnRetryActionStore is the per-APN retry state described in spec.md §3.
// All mutation is serialized by mu; this mirrors the per-instance mutex the
// facade also holds, but the store keeps its own lock so it stays
// independently testable.
type ApnRetryActionStore struct {
	mu                sync.RWMutex
	lastActionByCause map[cause.ErrorCause]*RetryAction
	lastAction        *RetryAction
	resolver          *resolver.Resolver
}

// New builds an empty store bound to a policy resolver.
func New(r *resolver.Resolver) *ApnRetryActionStore {
	return &ApnRetryActionStore{
		lastActionByCause: make(map[cause.ErrorCause]*RetryAction),
		resolver:          r,
	}
}

// ReportPolicyDerived implements the policy-derived entry point of
// spec.md §4.3: accumulate the retry index for the same cause and
// same-class error, or start over at 0.
func (s *ApnRetryActionStore) ReportPolicyDerived(apn string, err cause.Error) *RetryAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cause.CauseOf(err)
	prev := s.lastActionByCause[c]

	newIndex := 0
	if prev != nil && !prev.IsBackoffDerived && sameClass(prev.Error, err) {
		newIndex = prev.CurrentRetryIndex + 1
	}

	p := s.resolver.Resolve(apn, err)
	action := newPolicyDerived(err, p, newIndex)
	s.lastActionByCause[c] = &action
	s.lastAction = &action
	return &action
}

// sameClass implements spec.md §4.3's accumulation predicate: prev.error ==
// error, or both are IKEv2 protocol errors. The second disjunct is
// unreachable as written here: prev is only ever found under
// last_action_by_cause[cause.CauseOf(next)], and IkeProtocolCause is
// distinct per notify code (spec.md §3's data model), so a prev found under
// that key already carries the same code as next. Kept for fidelity to the
// spec text and as a guard if CauseOf's granularity ever changes.
func sameClass(prev, next cause.Error) bool {
	if prev.Equal(next) {
		return true
	}
	return prev.IsIkeProtocol() && next.IsIkeProtocol()
}

// ReportBackoffDerived implements the backoff-derived entry point of
// spec.md §4.3.
func (s *ApnRetryActionStore) ReportBackoffDerived(apn string, err cause.Error, backoffSeconds int) *RetryAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cause.CauseOf(err)
	p := s.resolver.Resolve(apn, err)
	action := newBackoffDerived(err, p, backoffSeconds)
	s.lastActionByCause[c] = &action
	s.lastAction = &action
	return &action
}

// LastAction returns the most recently produced action, or nil if none is
// stored (spec.md §7's StaleQuery case).
func (s *ApnRetryActionStore) LastAction() *RetryAction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAction
}

// Clear drops all stored retry state for this APN. The façade does not call
// it: on a no-error report it removes the APN's whole store instead.
func (s *ApnRetryActionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActionByCause = make(map[cause.ErrorCause]*RetryAction)
	s.lastAction = nil
}

// Unthrottle implements spec.md §4.3's event handling. It reports whether
// the caller should emit an APN-unthrottled notification: true only when
// the event is not carrier-config-changed and it invalidated the current
// last_action.
func (s *ApnRetryActionStore) Unthrottle(event policy.UnthrottlingEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event == policy.CarrierConfigChangedEvent {
		s.lastActionByCause = make(map[cause.ErrorCause]*RetryAction)
		s.lastAction = nil
		return false
	}

	for c, a := range s.lastActionByCause {
		if a.Policy.ListensFor(event) {
			delete(s.lastActionByCause, c)
		}
	}

	if s.lastAction != nil && s.lastAction.Policy.ListensFor(event) {
		s.lastAction = nil
		return true
	}
	return false
}

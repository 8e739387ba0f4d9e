// Package eproe implements the Public Façade (C6): a thread-safe per-slot
// instance exposing report/query operations, owning the resolver, the
// per-APN retry-action stores, the unthrottler, and a bounded in-memory
// statistics table.
package eproe

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Azure/iwlan-eproe/pkg/cause"
	"github.com/Azure/iwlan-eproe/pkg/config"
	"github.com/Azure/iwlan-eproe/pkg/eproelog"
	"github.com/Azure/iwlan-eproe/pkg/policy"
	"github.com/Azure/iwlan-eproe/pkg/resolver"
	"github.com/Azure/iwlan-eproe/pkg/retrystore"
	"github.com/Azure/iwlan-eproe/pkg/unthrottle"
)

// SlotID identifies a per-SIM instance, typically a subscription ID.
type SlotID string

// Notifier is invoked when an unthrottling event clears an APN's stored
// retry action, per spec.md §4.3.
type Notifier interface {
	NotifyUnthrottled(apn string)
}

type statEntry struct {
	count    int
	lastSeen time.Time
}

// Slot is the public façade for one SIM instance. All mutation is
// serialized by mu (spec.md §5); read-only queries share the same mutex
// rather than relying on independently-concurrent maps.
type Slot struct {
	id SlotID

	mu       sync.Mutex
	resolver *resolver.Resolver
	stores   map[string]*retrystore.ApnRetryActionStore

	hasMostRecent bool
	mostRecentApn string
	mostRecentErr cause.Error

	statsByApn map[string]map[string]*statEntry
	statsTotal int

	cfg         config.Config
	notifier    Notifier
	unthrottler *unthrottle.Unthrottler
}

// NewSlot builds a Slot bound to the given default policy table. subscriber
// is the caller-supplied bridge to the out-of-scope external event source
// (spec.md's non-goal that EPROE performs no I/O of its own).
func NewSlot(id SlotID, cfg config.Config, defaultTable *policy.Table, subscriber unthrottle.Subscriber, notifier Notifier) *Slot {
	s := &Slot{
		id:         id,
		resolver:   resolver.New(defaultTable),
		stores:     make(map[string]*retrystore.ApnRetryActionStore),
		statsByApn: make(map[string]map[string]*statEntry),
		cfg:        cfg,
		notifier:   notifier,
	}
	s.unthrottler = unthrottle.New(subscriber, s, s)
	s.unthrottler.SyncPolicies(defaultTable, nil)
	return s
}

func (s *Slot) correlatedLog(op, apn string) {
	log := eproelog.Component("facade")
	log.Debug().
		Str("slot", string(s.id)).
		Str("op", op).
		Str("apn", apn).
		Str("correlation_id", uuid.NewString()).
		Msg("facade operation")
}

func (s *Slot) storeForLocked(apn string) *retrystore.ApnRetryActionStore {
	st, ok := s.stores[apn]
	if !ok {
		st = retrystore.New(s.resolver)
		s.stores[apn] = st
	}
	return st
}

func (s *Slot) recordStatLocked(apn string, err cause.Error) {
	m, ok := s.statsByApn[apn]
	if !ok {
		if len(s.statsByApn) >= s.cfg.StatsMaxAPNs {
			s.resetStatsLocked()
		}
		m = make(map[string]*statEntry)
		s.statsByApn[apn] = m
	}
	key := err.String()
	e, ok := m[key]
	if !ok {
		e = &statEntry{}
		m[key] = e
	}
	e.count++
	e.lastSeen = time.Now()
	s.statsTotal++
	if s.statsTotal > s.cfg.StatsMaxCount {
		s.resetStatsLocked()
	}
}

func (s *Slot) resetStatsLocked() {
	s.statsByApn = make(map[string]map[string]*statEntry)
	s.statsTotal = 0
}

// Report implements the policy-derived report(apn, error) operation of
// spec.md §4.6.
func (s *Slot) Report(apn string, err cause.Error) int64 {
	s.correlatedLog("report", apn)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordStatLocked(apn, err)
	s.mostRecentApn = apn
	s.mostRecentErr = err
	s.hasMostRecent = true

	if err.IsNoError() {
		delete(s.stores, apn)
		return -1
	}

	store := s.storeForLocked(apn)
	action := store.ReportPolicyDerived(apn, err)
	return action.TotalWaitMs / 1000
}

// ReportBackoff implements the backoff-derived report(apn, error, backoff_s)
// operation of spec.md §4.6.
func (s *Slot) ReportBackoff(apn string, err cause.Error, backoffSeconds int) int64 {
	s.correlatedLog("report_backoff", apn)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordStatLocked(apn, err)
	s.mostRecentApn = apn
	s.mostRecentErr = err
	s.hasMostRecent = true

	if err.IsNoError() {
		delete(s.stores, apn)
		return -1
	}

	store := s.storeForLocked(apn)
	action := store.ReportBackoffDerived(apn, err, backoffSeconds)
	return int64(action.BackoffSeconds)
}

// CanBringUp implements can_bring_up(apn).
func (s *Slot) CanBringUp(apn string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stores[apn]
	if !ok {
		return true
	}
	a := st.LastAction()
	if a == nil {
		return true
	}
	return a.RemainingWaitMs() == 0
}

// RemainingWaitMs implements remaining_wait_ms(apn).
func (s *Slot) RemainingWaitMs(apn string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stores[apn]
	if !ok {
		return -1
	}
	a := st.LastAction()
	if a == nil {
		return -1
	}
	return a.RemainingWaitMs()
}

// PublicCause implements public_cause(apn).
func (s *Slot) PublicCause(apn string) cause.PublicCause {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stores[apn]
	if !ok {
		return cause.PublicNone
	}
	a := st.LastAction()
	if a == nil {
		return cause.PublicNone
	}
	return cause.PublicCauseOf(a.Error)
}

// LastError implements last_error(apn).
func (s *Slot) LastError(apn string) cause.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stores[apn]
	if !ok {
		return cause.NoErrorValue()
	}
	a := st.LastAction()
	if a == nil {
		return cause.NoErrorValue()
	}
	return a.Error
}

// ShouldRetryWithInitialAttach implements should_retry_with_initial_attach(apn).
func (s *Slot) ShouldRetryWithInitialAttach(apn string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stores[apn]
	if !ok {
		return false
	}
	a := st.LastAction()
	if a == nil {
		return false
	}
	return a.ShouldRetryWithInitialAttach()
}

// CurrentFqdnIndex implements current_fqdn_index(num_fqdns), which per
// spec.md §4.6 and the open-question note in §9 uses the most recently
// reported (apn, error) overall rather than a caller-supplied APN.
func (s *Slot) CurrentFqdnIndex(numFqdns int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasMostRecent {
		return -1
	}
	st, ok := s.stores[s.mostRecentApn]
	if !ok {
		return -1
	}
	a := st.LastAction()
	if a == nil {
		return -1
	}
	return a.CurrentFqdnIndex(numFqdns)
}

// ReloadCarrierPolicies atomically swaps the carrier policy table and
// resynchronizes the unthrottler's registered events (spec.md §4.5, §5).
func (s *Slot) ReloadCarrierPolicies(table *policy.Table) {
	s.mu.Lock()
	s.resolver.SetCarrier(table)
	defaultTable := s.resolver.Default
	s.mu.Unlock()

	s.unthrottler.SyncPolicies(defaultTable, table)
}

// Deliver forwards an externally observed event to the unthrottler's
// executor.
func (s *Slot) Deliver(ev policy.UnthrottlingEvent) {
	s.unthrottler.Deliver(ev)
}

// ForEach implements unthrottle.StoreSet: it snapshots the current stores
// without holding the façade lock while invoking fn, since fn acquires the
// store's own lock.
func (s *Slot) ForEach(fn func(apn string, store *retrystore.ApnRetryActionStore)) {
	s.mu.Lock()
	snapshot := make(map[string]*retrystore.ApnRetryActionStore, len(s.stores))
	for apn, st := range s.stores {
		snapshot[apn] = st
	}
	s.mu.Unlock()

	for apn, st := range snapshot {
		fn(apn, st)
	}
}

// Reset implements unthrottle.StoreSet: it drops every per-APN store, used
// on carrier-config-changed.
func (s *Slot) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores = make(map[string]*retrystore.ApnRetryActionStore)
}

// NotifyUnthrottled implements unthrottle.Notifier by forwarding to the
// caller-supplied Notifier, if any.
func (s *Slot) NotifyUnthrottled(apn string) {
	if s.notifier != nil {
		s.notifier.NotifyUnthrottled(apn)
	}
}

// Teardown unsubscribes all events and drains the executor (spec.md §5
// Lifecycle).
func (s *Slot) Teardown() {
	s.unthrottler.Teardown()
}

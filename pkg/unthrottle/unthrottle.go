// Package unthrottle implements the Event-Driven Unthrottler (C5): it
// tracks which external events any compiled policy cares about, keeps an
// injected subscriber in sync with that set, and delivers incoming events
// on a dedicated single-threaded executor so unthrottling never interleaves
// with itself.
//
// The executor's ctl/done shutdown idiom is grounded on the governor/run()
// select loop used for connection scaling in apns2go's dispatcher.
package unthrottle

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/Azure/iwlan-eproe/pkg/eproelog"
	"github.com/Azure/iwlan-eproe/pkg/policy"
	"github.com/Azure/iwlan-eproe/pkg/retrystore"
)

// Subscriber is the caller-supplied bridge to the external event source
// (Wi-Fi/airplane/call-state signals, carrier-config broadcasts). EPROE
// itself performs no subscription I/O; it only decides what to subscribe
// to.
type Subscriber interface {
	Subscribe(event policy.UnthrottlingEvent)
	Unsubscribe(event policy.UnthrottlingEvent)
}

// Notifier receives an APN-unthrottled notification when an event clears
// that APN's stored retry action.
type Notifier interface {
	NotifyUnthrottled(apn string)
}

// StoreSet lets the executor iterate or reset the façade's per-APN stores
// without the unthrottle package importing the façade package.
type StoreSet interface {
	ForEach(fn func(apn string, store *retrystore.ApnRetryActionStore))
	Reset()
}

// Unthrottler owns registered_events (spec.md §4.5) and the dedicated
// executor goroutine that serializes event delivery.
type Unthrottler struct {
	mu         sync.Mutex
	registered map[policy.UnthrottlingEvent]struct{}
	subscriber Subscriber

	notifier Notifier
	stores   StoreSet

	events chan policy.UnthrottlingEvent
	ctl    chan struct{}
	done   chan struct{}

	log zerolog.Logger
}

// New starts the executor and returns an Unthrottler with no registered
// events; call SyncPolicies once a default table is available.
func New(subscriber Subscriber, notifier Notifier, stores StoreSet) *Unthrottler {
	u := &Unthrottler{
		registered: make(map[policy.UnthrottlingEvent]struct{}),
		subscriber: subscriber,
		notifier:   notifier,
		stores:     stores,
		events:     make(chan policy.UnthrottlingEvent, 16),
		ctl:        make(chan struct{}),
		done:       make(chan struct{}),
		log:        eproelog.Component("unthrottle"),
	}
	go u.run()
	return u
}

func (u *Unthrottler) run() {
	u.log.Debug().Msg("executor starting")
	for {
		select {
		case ev := <-u.events:
			u.handle(ev)
		case <-u.ctl:
			u.log.Debug().Msg("executor stopping")
			close(u.done)
			return
		}
	}
}

func (u *Unthrottler) handle(ev policy.UnthrottlingEvent) {
	if ev == policy.CarrierConfigChangedEvent {
		u.stores.Reset()
		return
	}
	u.stores.ForEach(func(apn string, store *retrystore.ApnRetryActionStore) {
		if store.Unthrottle(ev) {
			u.notifier.NotifyUnthrottled(apn)
		}
	})
}

// Deliver enqueues an externally observed event for processing on the
// executor. It does not block on handling, only on the (buffered) channel
// send.
func (u *Unthrottler) Deliver(ev policy.UnthrottlingEvent) {
	u.events <- ev
}

// SyncPolicies recomputes registered_events from the current compiled
// tables and subscribes/unsubscribes the delta, per spec.md §4.5. The
// carrier-config-changed event is always registered.
func (u *Unthrottler) SyncPolicies(tables ...*policy.Table) {
	u.mu.Lock()
	defer u.mu.Unlock()

	newEvents := map[policy.UnthrottlingEvent]struct{}{
		policy.CarrierConfigChangedEvent: {},
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, policies := range t.ByApn {
			for _, p := range policies {
				for ev := range p.UnthrottlingEvents {
					newEvents[ev] = struct{}{}
				}
			}
		}
	}

	for ev := range newEvents {
		if _, ok := u.registered[ev]; !ok {
			u.subscriber.Subscribe(ev)
		}
	}
	for ev := range u.registered {
		if _, ok := newEvents[ev]; !ok {
			u.subscriber.Unsubscribe(ev)
		}
	}
	u.registered = newEvents
}

// Teardown unsubscribes every registered event, then stops the executor and
// waits for it to drain.
func (u *Unthrottler) Teardown() {
	u.mu.Lock()
	for ev := range u.registered {
		u.subscriber.Unsubscribe(ev)
	}
	u.registered = make(map[policy.UnthrottlingEvent]struct{})
	u.mu.Unlock()

	close(u.ctl)
	<-u.done
}

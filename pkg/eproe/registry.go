package eproe

import (
	"sync"

	"github.com/Azure/iwlan-eproe/pkg/config"
	"github.com/Azure/iwlan-eproe/pkg/policy"
	"github.com/Azure/iwlan-eproe/pkg/unthrottle"
)

// Registry is a process-wide map from slot to instance, guaranteeing
// at-most-one live Slot per SlotID (spec.md §5 Lifecycle).
type Registry struct {
	mu    sync.Mutex
	slots map[SlotID]*Slot
}

// NewRegistry builds an empty registry. Most callers use the package-level
// Default registry instead of constructing their own.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[SlotID]*Slot)}
}

// Default is the process-wide registry used by GetOrCreate/Teardown.
var Default = NewRegistry()

// GetOrCreate returns the existing Slot for id, or constructs one with the
// given default policy table, subscriber, and notifier.
func (r *Registry) GetOrCreate(id SlotID, cfg config.Config, defaultTable *policy.Table, subscriber unthrottle.Subscriber, notifier Notifier) *Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.slots[id]; ok {
		return s
	}
	s := NewSlot(id, cfg, defaultTable, subscriber, notifier)
	r.slots[id] = s
	return s
}

// Get returns the live Slot for id, if any.
func (r *Registry) Get(id SlotID) (*Slot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	return s, ok
}

// Teardown removes and tears down the Slot for id, if one is live.
func (r *Registry) Teardown(id SlotID) {
	r.mu.Lock()
	s, ok := r.slots[id]
	if ok {
		delete(r.slots, id)
	}
	r.mu.Unlock()

	if ok {
		s.Teardown()
	}
}

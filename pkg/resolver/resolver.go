// Package resolver implements the Policy Resolver (C2): given an (APN,
// error) pair, it picks the best-matching compiled policy across the
// carrier and default tables using the four-tier fallback search of
// spec.md §4.2.
package resolver

import (
	"github.com/Azure/iwlan-eproe/pkg/cause"
	"github.com/Azure/iwlan-eproe/pkg/policy"
)

const wildcardApn = "*"

// implicitFallback is the policy that always exists, per spec.md §3's
// invariant that lookup never returns "no match".
func implicitFallback() *policy.ErrorPolicy {
	return &policy.ErrorPolicy{
		ErrorType:           policy.Fallback,
		ErrorDetails:        []policy.DetailToken{{Wildcard: true}},
		RetryArray:          []int{5, -1},
		UnthrottlingEvents:  map[policy.UnthrottlingEvent]struct{}{},
		InfiniteRetriesWithLastRetryTime: true,
	}
}

// Resolver holds references to the carrier and default compiled tables. A
// nil Carrier is treated as an empty table, the state before any carrier
// configuration has been installed.
type Resolver struct {
	Carrier *policy.Table
	Default *policy.Table
}

// New builds a Resolver over the given default table. Carrier starts nil.
func New(defaultTable *policy.Table) *Resolver {
	return &Resolver{Default: defaultTable}
}

// SetCarrier atomically swaps the carrier table, or clears it with nil.
func (r *Resolver) SetCarrier(t *policy.Table) {
	r.Carrier = t
}

// Resolve picks the best-matching policy for (apn, err) across all four
// buckets, falling back to the implicit policy if nothing else matches.
func (r *Resolver) Resolve(apn string, err cause.Error) *policy.ErrorPolicy {
	buckets := [][]*policy.ErrorPolicy{
		bucket(r.Carrier, apn),
		bucket(r.Carrier, wildcardApn),
		bucket(r.Default, apn),
		bucket(r.Default, wildcardApn),
	}

	for _, b := range buckets {
		if p := bestInBucket(b, err); p != nil {
			return p
		}
	}
	return implicitFallback()
}

func bucket(t *policy.Table, apn string) []*policy.ErrorPolicy {
	if t == nil {
		return nil
	}
	return t.ByApn[apn]
}

// bestInBucket applies the within-bucket preference rule of spec.md §4.2:
// a specific match beats any fallback match; among fallback matches, a
// Generic fallback beats a bare wildcard Fallback.
func bestInBucket(policies []*policy.ErrorPolicy, err cause.Error) *policy.ErrorPolicy {
	var bestSpecific *policy.ErrorPolicy
	var bestGenericFallback *policy.ErrorPolicy
	var bestBareFallback *policy.ErrorPolicy

	for _, p := range policies {
		if !p.Matches(err) {
			continue
		}
		if !p.IsFallbackMatch() {
			if bestSpecific == nil {
				bestSpecific = p
			}
			continue
		}
		if p.ErrorType == policy.Generic {
			if bestGenericFallback == nil {
				bestGenericFallback = p
			}
			continue
		}
		if bestBareFallback == nil {
			bestBareFallback = p
		}
	}

	switch {
	case bestSpecific != nil:
		return bestSpecific
	case bestGenericFallback != nil:
		return bestGenericFallback
	default:
		return bestBareFallback
	}
}

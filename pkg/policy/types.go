// Package policy implements the Policy Parser (C1): compiling a JSON
// policy document into per-APN lists of validated, immutable ErrorPolicy
// values.
package policy

import "github.com/Azure/iwlan-eproe/pkg/cause"

// ErrorType is the closed set of clause kinds a policy entry may declare.
type ErrorType int

const (
	Fallback ErrorType = iota
	Generic
	IkeProtocol
)

func (t ErrorType) String() string {
	switch t {
	case Fallback:
		return "Fallback"
	case Generic:
		return "Generic"
	case IkeProtocol:
		return "IkeProtocol"
	default:
		return "Unknown"
	}
}

// UnthrottlingEvent is a named external event that can invalidate stored
// retry state. The closed set mirrors spec.md §4.1.
type UnthrottlingEvent string

const (
	CarrierConfigChangedEvent        UnthrottlingEvent = "CARRIER_CONFIG_CHANGED_EVENT"
	WifiDisableEvent                 UnthrottlingEvent = "WIFI_DISABLE_EVENT"
	ApmDisableEvent                  UnthrottlingEvent = "APM_DISABLE_EVENT"
	ApmEnableEvent                   UnthrottlingEvent = "APM_ENABLE_EVENT"
	WifiApChangedEvent                UnthrottlingEvent = "WIFI_AP_CHANGED_EVENT"
	WifiCallingEnableEvent            UnthrottlingEvent = "WIFI_CALLING_ENABLE_EVENT"
	WifiCallingDisableEvent           UnthrottlingEvent = "WIFI_CALLING_DISABLE_EVENT"
	CrossSimCallingEnableEvent        UnthrottlingEvent = "CROSS_SIM_CALLING_ENABLE_EVENT"
	CrossSimCallingDisableEvent       UnthrottlingEvent = "CROSS_SIM_CALLING_DISABLE_EVENT"
	CarrierConfigUnknownCarrierEvent  UnthrottlingEvent = "CARRIER_CONFIG_UNKNOWN_CARRIER_EVENT"
	CellInfoChangedEvent              UnthrottlingEvent = "CELLINFO_CHANGED_EVENT"
	PreferredNetworkTypeChangedEvent  UnthrottlingEvent = "PREFERRED_NETWORK_TYPE_CHANGED_EVENT"
)

// ValidEvents is the closed set of event names a policy document may name.
var ValidEvents = map[UnthrottlingEvent]bool{
	CarrierConfigChangedEvent:       true,
	WifiDisableEvent:                true,
	ApmDisableEvent:                 true,
	ApmEnableEvent:                  true,
	WifiApChangedEvent:              true,
	WifiCallingEnableEvent:          true,
	WifiCallingDisableEvent:         true,
	CrossSimCallingEnableEvent:      true,
	CrossSimCallingDisableEvent:     true,
	CarrierConfigUnknownCarrierEvent: true,
	CellInfoChangedEvent:            true,
	PreferredNetworkTypeChangedEvent: true,
}

// DetailToken is one compiled ErrorDetails entry. Exactly one of Wildcard,
// Generic (IkeMin==IkeMax==0 and unused), or the IkeMin/IkeMax range is
// meaningful, selected by the owning ErrorPolicy's ErrorType.
type DetailToken struct {
	Wildcard bool
	Generic  cause.NonIkeErrorType
	IkeMin   int
	IkeMax   int
}

// MatchesIke reports whether an IKEv2 notify code falls within this token.
func (t DetailToken) MatchesIke(code int) bool {
	if t.Wildcard {
		return true
	}
	return code >= t.IkeMin && code <= t.IkeMax
}

// MatchesGeneric reports whether a non-protocol error kind matches this
// token.
func (t DetailToken) MatchesGeneric(g cause.NonIkeErrorType) bool {
	if t.Wildcard {
		return true
	}
	return t.Generic == g
}

// ErrorPolicy is one compiled error-type clause, immutable after
// construction.
type ErrorPolicy struct {
	ErrorType                        ErrorType
	ErrorDetails                     []DetailToken
	RetryArray                       []int
	InfiniteRetriesWithLastRetryTime bool
	UnthrottlingEvents               map[UnthrottlingEvent]struct{}
	NumAttemptsPerFqdn               int
	HandoverAttemptCount             *int
}

// IsFallbackMatch reports the "fallback" status of spec.md §4.2: true when
// the clause's type is Fallback, or when its ErrorDetails is the single
// wildcard token.
func (p *ErrorPolicy) IsFallbackMatch() bool {
	if p.ErrorType == Fallback {
		return true
	}
	return len(p.ErrorDetails) == 1 && p.ErrorDetails[0].Wildcard
}

// Matches implements the per-clause match predicate of spec.md §4.2.
func (p *ErrorPolicy) Matches(e cause.Error) bool {
	switch p.ErrorType {
	case Fallback:
		return true
	case IkeProtocol:
		code, ok := e.IkeProtocolType()
		if !ok {
			return false
		}
		for _, t := range p.ErrorDetails {
			if t.MatchesIke(code) {
				return true
			}
		}
		return false
	case Generic:
		t, ok := e.NonIkeType()
		if !ok {
			return false
		}
		for _, tok := range p.ErrorDetails {
			if tok.MatchesGeneric(t) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// ListensFor reports whether ev would invalidate retry state produced under
// this policy.
func (p *ErrorPolicy) ListensFor(ev UnthrottlingEvent) bool {
	_, ok := p.UnthrottlingEvents[ev]
	return ok
}

// HasEvents reports whether this policy declares any unthrottling events.
func (p *ErrorPolicy) HasEvents() bool {
	return len(p.UnthrottlingEvents) > 0
}

const oneDaySeconds = 86400

// WaitSeconds implements the wait-time computation of spec.md §4.1 for
// retry index i (0-based).
func (p *ErrorPolicy) WaitSeconds(i int) int {
	if len(p.RetryArray) == 0 {
		return oneDaySeconds
	}

	idx := i
	if p.InfiniteRetriesWithLastRetryTime {
		clampMax := len(p.RetryArray) - 2
		if idx > clampMax {
			idx = clampMax
		}
	} else if idx > len(p.RetryArray)-1 {
		idx = len(p.RetryArray) - 1
	}
	if idx < 0 {
		idx = 0
	}

	v := p.RetryArray[idx]
	if v == -1 {
		return oneDaySeconds
	}
	return v
}

// FqdnIndex implements the FQDN selection rule of spec.md §4.1.
func (p *ErrorPolicy) FqdnIndex(i int, numFqdns int) int {
	if p.NumAttemptsPerFqdn <= 0 || len(p.RetryArray) == 0 || numFqdns <= 0 {
		return -1
	}
	k := p.NumAttemptsPerFqdn
	return ((i + 1) / k) % numFqdns
}

// Table is the full compiled policy set for one source (default or
// carrier), bucketed by APN name ("*" denotes the wildcard bucket).
type Table struct {
	ByApn map[string][]*ErrorPolicy
}

func newTable() *Table {
	return &Table{ByApn: make(map[string][]*ErrorPolicy)}
}

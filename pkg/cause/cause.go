// Package cause implements the Error-Cause & Public-Cause Mapper: it gives a
// reported tunnel-setup error a stable accumulation key (ErrorCause) and
// translates it to the public failure-cause enum exposed to callers.
package cause

import "strconv"

// NonIkeErrorType enumerates every non-protocol error kind the tunnel engine
// may report. The first ten are the Generic closed set a policy's
// ErrorDetails may name (spec.md §3); the remainder can only be matched by a
// Fallback policy or a wildcard ErrorDetails entry, never by a named Generic
// token.
type NonIkeErrorType string

const (
	IOException                NonIkeErrorType = "IO_EXCEPTION"
	TimeoutException           NonIkeErrorType = "TIMEOUT_EXCEPTION"
	ServerSelectionFailed      NonIkeErrorType = "SERVER_SELECTION_FAILED"
	TunnelTransformFailed      NonIkeErrorType = "TUNNEL_TRANSFORM_FAILED"
	IkeNetworkLostException    NonIkeErrorType = "IKE_NETWORK_LOST_EXCEPTION"
	EpdgAddressOnlyIpv4Allowed NonIkeErrorType = "EPDG_ADDRESS_ONLY_IPV4_ALLOWED"
	EpdgAddressOnlyIpv6Allowed NonIkeErrorType = "EPDG_ADDRESS_ONLY_IPV6_ALLOWED"
	IkeInitTimeout             NonIkeErrorType = "IKE_INIT_TIMEOUT"
	IkeMobilityTimeout         NonIkeErrorType = "IKE_MOBILITY_TIMEOUT"
	IkeDpdTimeout              NonIkeErrorType = "IKE_DPD_TIMEOUT"

	// Reportable but not Generic-policy-matchable: only a Fallback clause
	// (or a bare wildcard ErrorDetails) ever matches these.
	DNSResolutionNameFailure          NonIkeErrorType = "DNS_RESOLUTION_NAME_FAILURE"
	SimCardChanged                    NonIkeErrorType = "SIM_CARD_CHANGED"
	TunnelNotFound                    NonIkeErrorType = "TUNNEL_NOT_FOUND"
	IkeSessionClosedBeforeChildOpened NonIkeErrorType = "IKE_SESSION_CLOSED_BEFORE_CHILD_OPENED"
	NoError                           NonIkeErrorType = "NO_ERROR"
)

// GenericClosedSet is the set of NonIkeErrorType values a Generic policy
// clause's ErrorDetails may name, per spec.md §3.
var GenericClosedSet = map[NonIkeErrorType]bool{
	IOException:                true,
	TimeoutException:           true,
	ServerSelectionFailed:      true,
	TunnelTransformFailed:      true,
	IkeNetworkLostException:    true,
	EpdgAddressOnlyIpv4Allowed: true,
	EpdgAddressOnlyIpv6Allowed: true,
	IkeInitTimeout:             true,
	IkeMobilityTimeout:         true,
	IkeDpdTimeout:              true,
}

// IKEv2 notify message types (RFC 7296 §3.10.1) that the public-cause table
// names explicitly.
const (
	NotifyAuthenticationFailed   = 24
	NotifyInternalAddressFailure = 36
)

// Error is the value a caller reports to the facade: either an IKEv2
// protocol notify code or a non-protocol error kind.
type Error struct {
	ikeProtocolType *int
	nonIke          NonIkeErrorType
}

// NewIkeProtocolError builds an Error carrying an IKEv2 notify code.
func NewIkeProtocolError(notifyCode int) Error {
	code := notifyCode
	return Error{ikeProtocolType: &code}
}

// NewNonIkeError builds an Error carrying a non-protocol error kind.
func NewNonIkeError(t NonIkeErrorType) Error {
	return Error{nonIke: t}
}

// NoErrorValue is the sentinel reported on a successful tunnel bring-up.
func NoErrorValue() Error {
	return Error{nonIke: NoError}
}

// IsIkeProtocol reports whether e carries an IKEv2 protocol notify code.
func (e Error) IsIkeProtocol() bool {
	return e.ikeProtocolType != nil
}

// IkeProtocolType returns the notify code and true if e is an IKE protocol
// error.
func (e Error) IkeProtocolType() (int, bool) {
	if e.ikeProtocolType == nil {
		return 0, false
	}
	return *e.ikeProtocolType, true
}

// NonIkeType returns the non-protocol error kind and true if e is not an
// IKE protocol error.
func (e Error) NonIkeType() (NonIkeErrorType, bool) {
	if e.ikeProtocolType != nil {
		return "", false
	}
	return e.nonIke, true
}

// Equal compares two Errors by value; Error itself holds a pointer field so
// == is not usable directly.
func (e Error) Equal(o Error) bool {
	if a, ok := e.IkeProtocolType(); ok {
		b, ok2 := o.IkeProtocolType()
		return ok2 && a == b
	}
	a, _ := e.NonIkeType()
	b, ok2 := o.NonIkeType()
	return ok2 && a == b
}

// IsNoError reports whether e is the NO_ERROR sentinel.
func (e Error) IsNoError() bool {
	t, ok := e.NonIkeType()
	return ok && t == NoError
}

func (e Error) String() string {
	if code, ok := e.IkeProtocolType(); ok {
		return "IkeProtocol(" + strconv.Itoa(code) + ")"
	}
	t, _ := e.NonIkeType()
	return string(t)
}

// ErrorCause is the key under which retry actions accumulate. It is a
// closed sum over two variants, represented as a comparable struct so it
// can key a map directly.
type ErrorCause struct {
	isIkeProtocol bool
	ikeType       int
	nonIkeType    NonIkeErrorType
}

// IkeProtocolCause builds the IkeProtocolCause variant.
func IkeProtocolCause(protocolErrorType int) ErrorCause {
	return ErrorCause{isIkeProtocol: true, ikeType: protocolErrorType}
}

// NonIkeProtocolCause builds the NonIkeProtocolCause variant.
func NonIkeProtocolCause(errorType NonIkeErrorType) ErrorCause {
	return ErrorCause{nonIkeType: errorType}
}

// IsIkeProtocol reports whether c is the IkeProtocolCause variant.
func (c ErrorCause) IsIkeProtocol() bool {
	return c.isIkeProtocol
}

// IkeProtocolErrorType returns the notify code and true iff c is the
// IkeProtocolCause variant.
func (c ErrorCause) IkeProtocolErrorType() (int, bool) {
	if !c.isIkeProtocol {
		return 0, false
	}
	return c.ikeType, true
}

// CauseOf derives the accumulation key for a reported error (spec.md §4.4).
func CauseOf(e Error) ErrorCause {
	if code, ok := e.IkeProtocolType(); ok {
		return IkeProtocolCause(code)
	}
	t, _ := e.NonIkeType()
	return NonIkeProtocolCause(t)
}

// PublicCause is the stable external enum value exposed to callers.
type PublicCause string

const (
	PublicNone                             PublicCause = "NONE"
	PublicErrorUnspecified                 PublicCause = "ERROR_UNSPECIFIED"
	PublicPrivateProtocolError             PublicCause = "PRIVATE_PROTOCOL_ERROR"
	PublicIkev2AuthFailure                 PublicCause = "IKEV2_AUTH_FAILURE"
	PublicEpdgInternalAddressFailure       PublicCause = "EPDG_INTERNAL_ADDRESS_FAILURE"
	PublicPdnConnectionRejection           PublicCause = "PDN_CONNECTION_REJECTION"
	PublicMaxConnectionReached             PublicCause = "MAX_CONNECTION_REACHED"
	PublicSemanticErrorInTft               PublicCause = "SEMANTIC_ERROR_IN_TFT"
	PublicSyntacticalErrorInTft            PublicCause = "SYNTACTICAL_ERROR_IN_TFT"
	PublicSemanticErrorsInPacketFilters    PublicCause = "SEMANTIC_ERRORS_IN_PACKET_FILTERS"
	PublicSyntacticalErrorsInPacketFilters PublicCause = "SYNTACTICAL_ERRORS_IN_PACKET_FILTERS"
	PublicNon3gppAccessToEpcNotAllowed     PublicCause = "NON_3GPP_ACCESS_TO_EPC_NOT_ALLOWED"
	PublicUserUnknown                      PublicCause = "USER_UNKNOWN"
	PublicNoApnSubscription                PublicCause = "NO_APN_SUBSCRIPTION"
	PublicAuthorizationRejected            PublicCause = "AUTHORIZATION_REJECTED"
	PublicIllegalMe                        PublicCause = "ILLEGAL_ME"
	PublicNetworkFailure                   PublicCause = "NETWORK_FAILURE"
	PublicRatTypeNotAllowed                PublicCause = "RAT_TYPE_NOT_ALLOWED"
	PublicImeiNotAccepted                  PublicCause = "IMEI_NOT_ACCEPTED"
	PublicPlmnNotAllowed                   PublicCause = "PLMN_NOT_ALLOWED"
	PublicUnauthenticatedEmergencyNotSup   PublicCause = "UNAUTHENTICATED_EMERGENCY_NOT_SUPPORTED"
	PublicCongestion                       PublicCause = "CONGESTION"

	PublicDNSResolutionNameFailure          PublicCause = "DNS_RESOLUTION_NAME_FAILURE"
	PublicOnlyIpv4Allowed                   PublicCause = "ONLY_IPV4_ALLOWED"
	PublicOnlyIpv6Allowed                   PublicCause = "ONLY_IPV6_ALLOWED"
	PublicIkev2MsgTimeout                   PublicCause = "IKEV2_MSG_TIMEOUT"
	PublicSimCardChanged                    PublicCause = "SIM_CARD_CHANGED"
	PublicTunnelNotFound                    PublicCause = "TUNNEL_NOT_FOUND"
	PublicIkeInitTimeout                    PublicCause = "IKE_INIT_TIMEOUT"
	PublicIkeMobilityTimeout                PublicCause = "IKE_MOBILITY_TIMEOUT"
	PublicIkeDpdTimeout                     PublicCause = "IKE_DPD_TIMEOUT"
	PublicTunnelTransformFailed             PublicCause = "TUNNEL_TRANSFORM_FAILED"
	PublicIkeNetworkLostException           PublicCause = "IKE_NETWORK_LOST_EXCEPTION"
	PublicIkeSessionClosedBeforeChildOpened PublicCause = "IKE_SESSION_CLOSED_BEFORE_CHILD_OPENED"
)

// ikeNotifyTable is the bit-exact §6 mapping from IKEv2 notify code to
// public cause. Codes not present here fall through to
// PublicPrivateProtocolError.
var ikeNotifyTable = map[int]PublicCause{
	NotifyAuthenticationFailed:   PublicIkev2AuthFailure,
	NotifyInternalAddressFailure: PublicEpdgInternalAddressFailure,
	8192:                         PublicPdnConnectionRejection,
	8193:                         PublicMaxConnectionReached,
	8241:                         PublicSemanticErrorInTft,
	8242:                         PublicSyntacticalErrorInTft,
	8244:                         PublicSemanticErrorsInPacketFilters,
	8245:                         PublicSyntacticalErrorsInPacketFilters,
	9000:                         PublicNon3gppAccessToEpcNotAllowed,
	9001:                         PublicUserUnknown,
	9002:                         PublicNoApnSubscription,
	9003:                         PublicAuthorizationRejected,
	9006:                         PublicIllegalMe,
	10500:                        PublicNetworkFailure,
	11001:                        PublicRatTypeNotAllowed,
	11005:                        PublicImeiNotAccepted,
	11011:                        PublicPlmnNotAllowed,
	11055:                        PublicUnauthenticatedEmergencyNotSup,
	15500:                        PublicCongestion,
}

// nonIkeTable is the non-protocol error mapping from §6. IOException and
// ServerSelectionFailed have no named row in §6's "such as" list and fall
// through to the total-function default, PublicErrorUnspecified.
var nonIkeTable = map[NonIkeErrorType]PublicCause{
	TunnelTransformFailed:             PublicTunnelTransformFailed,
	IkeNetworkLostException:           PublicIkeNetworkLostException,
	EpdgAddressOnlyIpv4Allowed:        PublicOnlyIpv4Allowed,
	EpdgAddressOnlyIpv6Allowed:        PublicOnlyIpv6Allowed,
	IkeInitTimeout:                    PublicIkeInitTimeout,
	IkeMobilityTimeout:                PublicIkeMobilityTimeout,
	IkeDpdTimeout:                     PublicIkeDpdTimeout,
	TimeoutException:                 PublicIkev2MsgTimeout,
	DNSResolutionNameFailure:          PublicDNSResolutionNameFailure,
	SimCardChanged:                    PublicSimCardChanged,
	TunnelNotFound:                    PublicTunnelNotFound,
	IkeSessionClosedBeforeChildOpened: PublicIkeSessionClosedBeforeChildOpened,
	NoError:                           PublicNone,
}

// PublicCauseOf is the total function from a reported error to its stable
// external cause (spec.md §4.4, §6).
func PublicCauseOf(e Error) PublicCause {
	if code, ok := e.IkeProtocolType(); ok {
		if pc, ok := ikeNotifyTable[code]; ok {
			return pc
		}
		return PublicPrivateProtocolError
	}
	t, _ := e.NonIkeType()
	if pc, ok := nonIkeTable[t]; ok {
		return pc
	}
	return PublicErrorUnspecified
}

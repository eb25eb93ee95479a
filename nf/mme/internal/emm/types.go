package emm

import uectx "github.com/openepc/mme/nf/mme/internal/context"

// MessageType enumerates the NAS EMM message types the FSM dispatches on.
// Bit-level decode is out of scope (spec §1); the dispatcher consumes
// already-decoded messages in this shape.
type MessageType int

const (
	MsgIdentityResponse MessageType = iota
	MsgAttachRequest
	MsgTAURequest
	MsgTAUComplete
	MsgExtendedServiceRequest
	MsgEMMStatus
	MsgDetachRequest
	MsgUplinkNASTransport
	MsgAuthenticationResponse
	MsgAuthenticationFailure
	MsgSecurityModeComplete
	MsgSecurityModeReject
	MsgAttachComplete
)

// SecurityHeaderType mirrors the NAS EMM header's security-header-type
// field (0–12, spec §6). Only the "for Service Request" short header (12)
// is distinguished by the FSM; everything else is treated uniformly.
type SecurityHeaderType int

const SecurityHeaderForServiceRequest SecurityHeaderType = 12

// NASMessage is the decoded-message shape the Dispatcher hands to the
// FSM. Fields beyond Type/SecurityHeaderType are populated only for the
// message kinds that carry them; the codec that produces this value is
// out of scope.
type NASMessage struct {
	Type               MessageType
	SecurityHeaderType SecurityHeaderType
	IntegrityProtected bool

	IMSI  string // Identity-Response, Attach-Request, TAU-Request
	PTMSI string // TAU-Request / Extended-Service-Request context

	RES []byte // Authentication-Response

	FailureCause Cause  // Authentication-Failure
	AUTS         []byte // Authentication-Failure (Synch-Failure resync parameter)

	RejectCause int // Security-Mode-Reject, EMM-Status

	ServiceType string // Extended-Service-Request
	ActiveFlag  bool   // TAU-Request

	NASContainer []byte // Uplink-NAS-Transport piggybacked PDU
}

// Event is one inbound occurrence the Dispatcher routes to a UE's current
// state handler. Exactly one of NAS / TimerID is meaningful, selected by
// Kind.
type EventKind int

const (
	EventEMMMessage EventKind = iota
	EventEMMTimer
)

type Event struct {
	Kind EventKind

	NAS           NASMessage
	ProcedureCode uectx.S1APProcedureCode

	TimerID    uectx.TimerID
	Generation uint64

	// TimerExhausted is populated by the dispatcher (via TimerManager.Fire)
	// before an EventEMMTimer reaches a state handler: true means
	// retry_count had already reached max_count when this expiry fired.
	TimerExhausted bool
}

package emm

import (
	"context"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
)

// EMM cause values used in reject/status messages (spec §6).
type Cause int

const (
	CauseUEIdentityCannotBeDerived Cause = 9
	CauseMACFailure                Cause = 20
	CauseSynchFailure              Cause = 21
	CauseNonEPSAuthUnacceptable    Cause = 26
	CauseSecurityModeRejected      Cause = 24
)

// ESM cause co-emitted on Attach-Reject.
const ESMCauseProtocolErrorUnspecified = 111

// S1AP is the outbound façade toward the eNodeB. Codec and transport are
// out of scope (spec §1): this is an interface contract plus a
// logging stub, exercised by fsm tests via a fake.
type S1AP interface {
	InitialContextSetupRequest(ctx context.Context, ue *uectx.UEContext) error
	UEContextModificationRequest(ctx context.Context, ue *uectx.UEContext) error
	Paging(ctx context.Context, ue *uectx.UEContext) error
	DownlinkNASTransport(ctx context.Context, ue *uectx.UEContext, pdu []byte) error
	ErrorIndication(ctx context.Context, ue *uectx.UEContext, cause string) error
	UEContextRelease(ctx context.Context, ue *uectx.UEContext) error
	ReleaseAccessBearer(ctx context.Context, ue *uectx.UEContext) error
}

// S6a is the outbound façade toward the HSS over Diameter.
type S6a interface {
	AuthenticationInformationRequest(ctx context.Context, ue *uectx.UEContext, auts []byte) (*uectx.AuthVector, error)
	UpdateLocationRequest(ctx context.Context, ue *uectx.UEContext) error
}

// GTPC is the outbound façade toward the S-GW/P-GW.
type GTPC interface {
	DeleteAllSessions(ctx context.Context, ue *uectx.UEContext) error
}

// SGsAP is the outbound façade toward the MSC/VLR for CS fallback.
type SGsAP interface {
	DetachIndication(ctx context.Context, ue *uectx.UEContext) error
	UplinkUnitdata(ctx context.Context, ue *uectx.UEContext, pdu []byte) error
	MOCSFBIndication(ctx context.Context, ue *uectx.UEContext) error
	ServiceRequest(ctx context.Context, ue *uectx.UEContext, mode string) error
	TMSIReallocationComplete(ctx context.Context, ue *uectx.UEContext) error
	UEUnreachable(ctx context.Context, ue *uectx.UEContext, cause string) error
}

// SGsAP idle/connected mode constants for ServiceRequest, matching
// SGSAP_EMM_IDLE_MODE / SGSAP_EMM_CONNECTED_MODE in the original.
const (
	SGsModeIdle      = "idle"
	SGsModeConnected = "connected"
)

// Adapters bundles every external collaborator the EMM core drives.
type Adapters struct {
	S1AP  S1AP
	S6a   S6a
	GTPC  GTPC
	SGsAP SGsAP
}

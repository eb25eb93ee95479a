package emm

import (
	"context"
	"crypto/subtle"

	"github.com/openepc/mme/common/metrics"
	uectx "github.com/openepc/mme/nf/mme/internal/context"
	"go.uber.org/zap"
)

// handleAuthentication services the Authentication state: awaits
// Authentication-Response/Failure following an S6a AIR.
func (f *FSM) handleAuthentication(ctx context.Context, ue *uectx.UEContext, ev Event) {
	switch ev.Kind {
	case EventEMMMessage:
		f.authenticationMessage(ctx, ue, ev)
	case EventEMMTimer:
		f.authenticationTimer(ctx, ue, ev)
	}
}

func (f *FSM) authenticationMessage(ctx context.Context, ue *uectx.UEContext, ev Event) {
	msg := ev.NAS
	switch msg.Type {
	case MsgAuthenticationResponse:
		f.Timers.Stop(ue, uectx.TimerT3460)

		ue.RLock()
		var xres []byte
		if ue.Security.Vector != nil {
			xres = ue.Security.Vector.XRES
		}
		ue.RUnlock()

		if !constantTimeEqual(msg.RES, xres) {
			f.Logger.Warn("authentication response RES mismatch", zap.String("imsi", ue.IMSI))
			metrics.RecordAuthOutcome("res_mismatch")
			f.NAS.SendAuthenticationReject(ctx, ue)
			f.transition(ue, uectx.StateException)
			return
		}

		metrics.RecordAuthOutcome("success")
		f.transition(ue, uectx.StateSecurityMode)

	case MsgAuthenticationFailure:
		f.Timers.Stop(ue, uectx.TimerT3460)

		switch msg.FailureCause {
		case CauseSynchFailure:
			f.Logger.Warn("authentication failure: synch failure", zap.String("imsi", ue.IMSI))
			metrics.RecordAuthOutcome("synch_failure")
			if _, err := f.Adapters.S6a.AuthenticationInformationRequest(ctx, ue, msg.AUTS); err != nil {
				f.Logger.Error("failed to resend S6a AIR with AUTS", zap.Error(err))
			}
			f.onEntryAuthentication(ue)
			return // remain in Authentication

		case CauseMACFailure:
			f.Logger.Warn("authentication failure: MAC failure", zap.String("imsi", ue.IMSI))
			metrics.RecordAuthOutcome("mac_failure")
		case CauseNonEPSAuthUnacceptable:
			f.Logger.Error("authentication failure: Non-EPS authentication unacceptable", zap.String("imsi", ue.IMSI))
			metrics.RecordAuthOutcome("non_eps_unacceptable")
		default:
			f.Logger.Error("authentication failure: unknown cause", zap.Int("cause", int(msg.FailureCause)))
			metrics.RecordAuthOutcome("unknown")
		}

		f.NAS.SendAuthenticationReject(ctx, ue)
		f.transition(ue, uectx.StateException)

	case MsgAttachRequest:
		f.Logger.Warn("attach request while in Authentication, restarting", zap.String("imsi", ue.IMSI))
		ue.Lock()
		ue.Pending = uectx.PendingRequest{Kind: uectx.PendingAttach, Procedure: ev.ProcedureCode}
		ue.Unlock()
		if _, err := f.Adapters.S6a.AuthenticationInformationRequest(ctx, ue, nil); err != nil {
			f.Logger.Error("failed to resend S6a AIR", zap.Error(err))
		}
		f.onEntryAuthentication(ue)
		// remains in Authentication

	case MsgEMMStatus:
		f.Logger.Warn("EMM-Status in Authentication", zap.String("imsi", ue.IMSI))
		f.transition(ue, uectx.StateException)

	case MsgDetachRequest:
		f.handleDetachInTransientState(ctx, ue)

	default:
		f.Logger.Warn("unexpected message in Authentication", zap.Int("type", int(msg.Type)))
	}
}

func (f *FSM) authenticationTimer(ctx context.Context, ue *uectx.UEContext, ev Event) {
	if ev.TimerID != uectx.TimerT3460 {
		f.Logger.Error("unexpected timer in Authentication", zap.String("timer", ev.TimerID.String()))
		return
	}

	// Open question (spec §9, flagged, preserved as observed): the source
	// transitions to Exception before sending Authentication-Reject on
	// T3460 exhaustion here, the opposite order from other failure paths.
	if ev.TimerExhausted {
		f.Logger.Warn("Authentication-Request retransmission exhausted", zap.String("imsi", ue.IMSI))
		f.transition(ue, uectx.StateException)
		f.NAS.SendAuthenticationReject(ctx, ue)
		return
	}

	if err := f.NAS.ResendAuthenticationRequest(ctx, ue); err != nil {
		f.Logger.Error("failed to resend Authentication-Request", zap.Error(err))
	}
}

// handleDetachInTransientState is the Detach-Request handling shared by
// Authentication, Security-Mode and Initial-Context-Setup: trigger
// session cleanup/local detach and go to De-Registered, with no SGsAP
// notification (those states precede P-TMSI/CS-fallback relevance).
func (f *FSM) handleDetachInTransientState(ctx context.Context, ue *uectx.UEContext) {
	f.deleteSessionOrDetach(ctx, ue)
	f.transition(ue, uectx.StateDeRegistered)
}

// constantTimeEqual compares RES against XRES in constant time over the
// RES length, per spec §4.1/§9's mandated constant-time compare.
func constantTimeEqual(res, xres []byte) bool {
	if len(res) == 0 || len(xres) == 0 || len(res) != len(xres) {
		return false
	}
	return subtle.ConstantTimeCompare(res, xres) == 1
}

package emm

import (
	"context"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
	"go.uber.org/zap"
)

// handleSecurityMode services the Security-Mode state: entry stops T3460
// and sends Security-Mode-Command (FSM.onEntrySecurityMode); this handler
// covers the messages/timers received while awaiting
// Security-Mode-Complete/Reject.
func (f *FSM) handleSecurityMode(ctx context.Context, ue *uectx.UEContext, ev Event) {
	switch ev.Kind {
	case EventEMMMessage:
		f.securityModeMessage(ctx, ue, ev)
	case EventEMMTimer:
		f.securityModeTimer(ctx, ue, ev)
	}
}

func (f *FSM) securityModeMessage(ctx context.Context, ue *uectx.UEContext, ev Event) {
	msg := ev.NAS

	if msg.SecurityHeaderType == SecurityHeaderForServiceRequest {
		f.Logger.Debug("service request while in Security-Mode", zap.String("imsi", ue.IMSI))
		f.NAS.SendServiceReject(ctx, ue, CauseSecurityModeRejected)
		f.transition(ue, uectx.StateException)
		return
	}

	switch msg.Type {
	case MsgSecurityModeComplete:
		f.securityModeComplete(ctx, ue, msg)

	case MsgSecurityModeReject:
		f.Logger.Warn("Security-Mode-Reject received", zap.String("imsi", ue.IMSI), zap.Int("cause", msg.RejectCause))
		f.Timers.Stop(ue, uectx.TimerT3460)
		f.transition(ue, uectx.StateException)

	case MsgAttachRequest:
		f.Logger.Warn("attach request while in Security-Mode, restarting", zap.String("imsi", ue.IMSI))
		ue.Lock()
		ue.Pending = uectx.PendingRequest{Kind: uectx.PendingAttach, Procedure: ev.ProcedureCode}
		ue.Unlock()
		if _, err := f.Adapters.S6a.AuthenticationInformationRequest(ctx, ue, nil); err != nil {
			f.Logger.Error("failed to send S6a AIR", zap.Error(err))
		}
		f.transition(ue, uectx.StateAuthentication)

	case MsgTAURequest:
		f.NAS.SendTAUReject(ctx, ue, CauseSecurityModeRejected)
		f.transition(ue, uectx.StateException)

	case MsgEMMStatus:
		f.Logger.Warn("EMM-Status in Security-Mode", zap.String("imsi", ue.IMSI))
		f.transition(ue, uectx.StateException)

	case MsgDetachRequest:
		f.handleDetachInTransientState(ctx, ue)

	default:
		f.Logger.Warn("unexpected message in Security-Mode", zap.Int("type", int(msg.Type)))
	}
}

// securityModeComplete implements the entry's core invariant checks and
// key derivation per spec §4.1: the envelope must be integrity-protected
// and the security context must already be present before deriving
// K_eNB/NH; on either failure, send Attach-Reject with
// Security-Mode-Rejected-Unspecified / Protocol-Error and go Exception.
func (f *FSM) securityModeComplete(ctx context.Context, ue *uectx.UEContext, msg NASMessage) {
	f.Timers.Stop(ue, uectx.TimerT3460)

	if !msg.IntegrityProtected {
		f.Logger.Error("Security-Mode-Complete not integrity protected", zap.String("imsi", ue.IMSI))
		f.NAS.SendAttachReject(ctx, ue, CauseSecurityModeRejected, ESMCauseProtocolErrorUnspecified)
		f.transition(ue, uectx.StateException)
		return
	}

	ue.RLock()
	hasKASME := ue.Security.HasKASME()
	ue.RUnlock()
	if !hasKASME {
		f.Logger.Warn("no security context at Security-Mode-Complete", zap.String("imsi", ue.IMSI))
		f.NAS.SendAttachReject(ctx, ue, CauseSecurityModeRejected, ESMCauseProtocolErrorUnspecified)
		f.transition(ue, uectx.StateException)
		return
	}

	ue.Lock()
	ue.Security.SelectAlgorithms(negotiatedEEA(ue), negotiatedEIA(ue))
	if err := DeriveKeNB(ue.Security); err != nil {
		ue.Unlock()
		f.Logger.Error("failed to derive K_eNB", zap.Error(err))
		f.transition(ue, uectx.StateException)
		return
	}
	if err := DeriveNH(ue.Security); err != nil {
		ue.Unlock()
		f.Logger.Error("failed to derive NH", zap.Error(err))
		f.transition(ue, uectx.StateException)
		return
	}
	pending := ue.Pending
	ue.Unlock()

	if err := f.Adapters.S6a.UpdateLocationRequest(ctx, ue); err != nil {
		f.Logger.Error("failed to send S6a Update-Location-Request", zap.Error(err))
	}

	switch pending.Kind {
	case uectx.PendingAttach:
		f.transition(ue, uectx.StateInitialContextSetup)
	case uectx.PendingService, uectx.PendingTAU:
		f.transition(ue, uectx.StateRegistered)
	default:
		f.Logger.Error("Security-Mode-Complete with unexpected pending request", zap.String("pending", pending.Kind.String()))
	}
}

func (f *FSM) securityModeTimer(ctx context.Context, ue *uectx.UEContext, ev Event) {
	if ev.TimerID != uectx.TimerT3460 {
		f.Logger.Error("unexpected timer in Security-Mode", zap.String("timer", ev.TimerID.String()))
		return
	}

	if ev.TimerExhausted {
		f.Logger.Warn("Security-Mode-Command retransmission exhausted", zap.String("imsi", ue.IMSI))
		f.NAS.SendAttachReject(ctx, ue, CauseSecurityModeRejected, ESMCauseProtocolErrorUnspecified)
		f.transition(ue, uectx.StateException)
		return
	}

	if err := f.NAS.ResendSecurityModeCommand(ctx, ue); err != nil {
		f.Logger.Error("failed to resend Security-Mode-Command", zap.Error(err))
	}
}

// negotiatedEEA/negotiatedEIA keep an algorithm already recorded in the
// security context, or fall back to EEA2/EIA2. The configured preference
// lists are not consulted, and no negotiation against UE capabilities is
// done here; this just records a selection.
func negotiatedEEA(ue *uectx.UEContext) string {
	if ue.Security.EEA != "" {
		return ue.Security.EEA
	}
	return "EEA2"
}

func negotiatedEIA(ue *uectx.UEContext) string {
	if ue.Security.EIA != "" {
		return ue.Security.EIA
	}
	return "EIA2"
}

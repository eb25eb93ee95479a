package emm

import (
	"context"

	"github.com/openepc/mme/common/metrics"
	uectx "github.com/openepc/mme/nf/mme/internal/context"
	"go.uber.org/zap"
)

// commonRegister is the shared handler invoked from both De-Registered
// and Registered on EMM-Message / EMM-Timer events (spec §4.1). It
// mirrors common_register_state() in the original exactly, including its
// sequencing: dispatch by message type first, then fall through to
// pending-request-type handling only if nothing above already returned.
func (f *FSM) commonRegister(ctx context.Context, ue *uectx.UEContext, ev Event) {
	switch ev.Kind {
	case EventEMMMessage:
		if f.dispatchCommonMessage(ctx, ue, ev) {
			return
		}
	case EventEMMTimer:
		f.dispatchCommonTimer(ctx, ue, ev)
		return
	}

	// Step 3: after dispatch, if IMSI is still absent, request identity.
	if !ue.HasIMSI() {
		f.Timers.Stop(ue, uectx.TimerT3470)
		if err := f.NAS.SendIdentityRequest(ctx, ue); err != nil {
			f.Logger.Error("failed to send Identity-Request", zap.Error(err))
		}
		return
	}

	// Step 4: act on the pending request type.
	f.dispatchPending(ctx, ue, ev)
}

// dispatchCommonMessage handles step 1 (service-request short header) and
// step 2 (dispatch by NAS message type). Returns true if the event is
// fully handled and commonRegister must not fall through to steps 3/4.
func (f *FSM) dispatchCommonMessage(ctx context.Context, ue *uectx.UEContext, ev Event) bool {
	msg := ev.NAS

	if msg.SecurityHeaderType == SecurityHeaderForServiceRequest {
		f.handleServiceRequest(ctx, ue)
		return true
	}

	switch msg.Type {
	case MsgIdentityResponse:
		f.Timers.Stop(ue, uectx.TimerT3470)
		ue.Lock()
		ue.IMSI = msg.IMSI
		ue.Unlock()
		if msg.IMSI != "" {
			f.Store.IndexByIMSI(ue, msg.IMSI)
		}
		if !ue.HasIMSI() {
			f.Logger.Error("no IMSI after Identity-Response")
			f.transition(ue, uectx.StateException)
			return true
		}
		return false

	case MsgAttachRequest:
		ue.Lock()
		if msg.IMSI != "" {
			ue.IMSI = msg.IMSI
		}
		ue.Pending = uectx.PendingRequest{Kind: uectx.PendingAttach, Procedure: ev.ProcedureCode}
		ue.Unlock()
		if msg.IMSI != "" {
			f.Store.IndexByIMSI(ue, msg.IMSI)
		}
		return false

	case MsgTAURequest:
		if !ue.HasIMSI() {
			f.NAS.SendTAUReject(ctx, ue, CauseUEIdentityCannotBeDerived)
			f.transition(ue, uectx.StateException)
			return true
		}
		ue.Lock()
		ue.Pending = uectx.PendingRequest{
			Kind:       uectx.PendingTAU,
			Procedure:  ev.ProcedureCode,
			ActiveFlag: msg.ActiveFlag,
		}
		ue.Unlock()
		return false

	case MsgTAUComplete:
		f.Logger.Debug("TAU complete", zap.String("imsi", ue.IMSI))
		return true

	case MsgExtendedServiceRequest:
		if !ue.HasIMSI() {
			f.NAS.SendServiceReject(ctx, ue, CauseUEIdentityCannotBeDerived)
			f.transition(ue, uectx.StateException)
			return true
		}
		ue.Lock()
		ue.Pending = uectx.PendingRequest{
			Kind:        uectx.PendingExtendedService,
			Procedure:   ev.ProcedureCode,
			ServiceType: msg.ServiceType,
		}
		ue.Unlock()
		return false

	case MsgEMMStatus:
		f.Logger.Warn("EMM-Status received", zap.String("imsi", ue.IMSI), zap.Int("cause", msg.RejectCause))
		f.transition(ue, uectx.StateException)
		return true

	case MsgDetachRequest:
		f.handleDetachRequest(ctx, ue)
		return true

	case MsgUplinkNASTransport:
		f.handleUplinkNASTransport(ctx, ue, msg)
		return true

	default:
		f.Logger.Warn("unknown EMM message in common-register", zap.Int("type", int(msg.Type)))
		return true
	}
}

// dispatchCommonTimer handles T3413 (paging) and T3470 (identity-request
// retransmission) expiries, the only two timers live in De-Registered /
// Registered.
func (f *FSM) dispatchCommonTimer(ctx context.Context, ue *uectx.UEContext, ev Event) {
	switch ev.TimerID {
	case uectx.TimerT3413:
		f.handlePagingExpiry(ctx, ue, ev)
	case uectx.TimerT3470:
		if ev.TimerExhausted {
			f.Logger.Warn("Identity-Request retransmission exhausted", zap.String("imsi", ue.IMSI))
			f.Timers.Stop(ue, uectx.TimerT3470)
			f.transition(ue, uectx.StateException)
			return
		}
		if err := f.NAS.SendIdentityRequest(ctx, ue); err != nil {
			f.Logger.Error("failed to resend Identity-Request", zap.Error(err))
		}
	default:
		f.Logger.Error("unexpected timer in common-register", zap.String("timer", ev.TimerID.String()))
	}
}

// handlePagingExpiry implements spec §4.1's paging retry loop: bounded
// retries of the last S1AP Paging; on exhaustion, mark UE-Unreachable to
// SGs if CS/SMS service is pending, clear the service indicator, and stop
// the timer. The UE remains in its current state (De-Registered or
// Registered) either way.
func (f *FSM) handlePagingExpiry(ctx context.Context, ue *uectx.UEContext, ev Event) {
	if ev.TimerExhausted {
		f.Logger.Warn("paging failed, stopping", zap.String("imsi", ue.IMSI))

		ue.RLock()
		pending := ue.Service.Any()
		ue.RUnlock()

		if pending {
			if err := f.Adapters.SGsAP.UEUnreachable(ctx, ue, "UE-Unreachable"); err != nil {
				f.Logger.Error("failed to send SGsAP UE-Unreachable", zap.Error(err))
			}
		}

		ue.Lock()
		ue.Service.Clear()
		ue.Unlock()

		metrics.EMMPagingRounds.WithLabelValues("exhausted").Inc()
		return
	}

	metrics.EMMPagingRounds.WithLabelValues("retried").Inc()
	if err := f.Adapters.S1AP.Paging(ctx, ue); err != nil {
		f.Logger.Error("failed to resend Paging", zap.Error(err))
	}
}

// handleServiceRequest implements step 1 of common_register_state: the
// "for Service Request" short security header.
func (f *FSM) handleServiceRequest(ctx context.Context, ue *uectx.UEContext) {
	if !ue.HasIMSI() {
		f.Logger.Warn("service request from unknown UE")
		f.NAS.SendServiceReject(ctx, ue, CauseUEIdentityCannotBeDerived)
		f.transition(ue, uectx.StateException)
		return
	}

	ue.RLock()
	valid := ue.Security.Valid()
	ue.RUnlock()
	if !valid {
		f.Logger.Warn("service request with no security context", zap.String("imsi", ue.IMSI))
		f.NAS.SendServiceReject(ctx, ue, CauseUEIdentityCannotBeDerived)
		f.transition(ue, uectx.StateException)
		return
	}

	if err := f.Adapters.S1AP.InitialContextSetupRequest(ctx, ue); err != nil {
		f.Logger.Error("failed to send Initial-Context-Setup-Request", zap.Error(err))
	}
}

// dispatchPending implements step 4: act on the pending request type.
func (f *FSM) dispatchPending(ctx context.Context, ue *uectx.UEContext, ev Event) {
	ue.RLock()
	pending := ue.Pending
	ue.RUnlock()

	switch pending.Kind {
	case uectx.PendingAttach:
		f.dispatchPendingAttach(ctx, ue)
	case uectx.PendingTAU:
		f.dispatchPendingTAU(ctx, ue, pending)
	case uectx.PendingExtendedService:
		f.dispatchPendingExtendedService(ctx, ue, pending)
	case uectx.PendingNone:
		// Nothing in flight (e.g. TAU-Complete, Uplink-NAS-Transport with
		// no pending update) — already returned before reaching here in
		// all real call sites, kept for exhaustiveness.
	}
}

func (f *FSM) dispatchPendingAttach(ctx context.Context, ue *uectx.UEContext) {
	ue.RLock()
	valid := ue.Security.Valid()
	sessionAvailable := ue.SessionContextAvailable
	ue.RUnlock()

	if valid {
		f.Logger.Debug("attach: forwarding to ESM (PDN-Connectivity)", zap.String("imsi", ue.IMSI))
		f.transition(ue, uectx.StateInitialContextSetup)
		return
	}

	if sessionAvailable {
		if err := f.Adapters.GTPC.DeleteAllSessions(ctx, ue); err != nil {
			f.Logger.Error("failed to delete prior GTP sessions", zap.Error(err))
		}
	} else {
		if _, err := f.Adapters.S6a.AuthenticationInformationRequest(ctx, ue, nil); err != nil {
			f.Logger.Error("failed to send S6a AIR", zap.Error(err))
		}
	}
	f.transition(ue, uectx.StateAuthentication)
}

func (f *FSM) dispatchPendingTAU(ctx context.Context, ue *uectx.UEContext, pending uectx.PendingRequest) {
	ue.RLock()
	sessionAvailable := ue.SessionContextAvailable
	valid := ue.Security.Valid()
	ue.RUnlock()

	if !sessionAvailable {
		f.Logger.Warn("TAU with no PDN connection", zap.String("imsi", ue.IMSI))
		f.NAS.SendTAUReject(ctx, ue, CauseUEIdentityCannotBeDerived)
		f.transition(ue, uectx.StateException)
		return
	}

	if !valid {
		if _, err := f.Adapters.S6a.AuthenticationInformationRequest(ctx, ue, nil); err != nil {
			f.Logger.Error("failed to send S6a AIR", zap.Error(err))
		}
		f.transition(ue, uectx.StateAuthentication)
		return
	}

	switch pending.Procedure {
	case uectx.ProcedureInitialUEMessage:
		if pending.ActiveFlag {
			f.NAS.SendTAUAcceptViaICS(ctx, ue)
		} else {
			f.NAS.SendTAUAcceptViaDL(ctx, ue)
			if err := f.Adapters.S1AP.ReleaseAccessBearer(ctx, ue); err != nil {
				f.Logger.Error("failed to release access bearer", zap.Error(err))
			}
		}
	case uectx.ProcedureUplinkNASTransport:
		f.NAS.SendTAUAcceptViaDL(ctx, ue)
	default:
		f.Logger.Error("TAU accept with unexpected S1AP procedure code")
	}
}

func (f *FSM) dispatchPendingExtendedService(ctx context.Context, ue *uectx.UEContext, pending uectx.PendingRequest) {
	ue.RLock()
	hasPTMSI := len(ue.PTMSI) > 0
	sessionAvailable := ue.SessionContextAvailable
	valid := ue.Security.Valid()
	ue.RUnlock()

	if !hasPTMSI || !sessionAvailable || !valid {
		f.Logger.Warn("extended service request rejected", zap.String("imsi", ue.IMSI))
		f.NAS.SendServiceReject(ctx, ue, CauseUEIdentityCannotBeDerived)
		f.transition(ue, uectx.StateException)
		return
	}

	var err error
	switch pending.ServiceType {
	case "MO-CSFB", "MO-CSFB-Emergency":
		err = f.Adapters.SGsAP.MOCSFBIndication(ctx, ue)
	case "MT-CSFB":
		mode := SGsModeIdle
		if pending.Procedure == uectx.ProcedureUplinkNASTransport {
			mode = SGsModeConnected
		}
		err = f.Adapters.SGsAP.ServiceRequest(ctx, ue, mode)
	default:
		f.Logger.Warn("unknown CSFB service type", zap.String("service_type", pending.ServiceType))
		f.NAS.SendServiceReject(ctx, ue, CauseUEIdentityCannotBeDerived)
		f.transition(ue, uectx.StateException)
		return
	}
	if err != nil {
		f.Logger.Error("failed to send SGsAP CSFB indication", zap.Error(err))
	}

	switch pending.Procedure {
	case uectx.ProcedureInitialUEMessage:
		err = f.Adapters.S1AP.InitialContextSetupRequest(ctx, ue)
	case uectx.ProcedureUplinkNASTransport:
		err = f.Adapters.S1AP.UEContextModificationRequest(ctx, ue)
	}
	if err != nil {
		f.Logger.Error("failed to send S1AP follow-up for extended service", zap.Error(err))
	}
}

// handleDetachRequest is the common-register (De-Registered/Registered)
// Detach-Request handling; Authentication, Security-Mode and
// Initial-Context-Setup use handleDetachInTransientState instead.
// If a P-TMSI is present, notify the VLR via SGsAP Detach-Indication;
// otherwise trigger GTP session cleanup. Always ends in De-Registered.
func (f *FSM) handleDetachRequest(ctx context.Context, ue *uectx.UEContext) {
	if ue.HasPTMSI() {
		if err := f.Adapters.SGsAP.DetachIndication(ctx, ue); err != nil {
			f.Logger.Error("failed to send SGsAP Detach-Indication", zap.Error(err))
		}
	} else {
		f.deleteSessionOrDetach(ctx, ue)
	}
	f.transition(ue, uectx.StateDeRegistered)
}

// deleteSessionOrDetach triggers GTP session cleanup for a locally
// initiated or network-side detach with no SGs-side notification needed.
func (f *FSM) deleteSessionOrDetach(ctx context.Context, ue *uectx.UEContext) {
	ue.RLock()
	sessionAvailable := ue.SessionContextAvailable
	ue.RUnlock()
	if !sessionAvailable {
		return
	}
	if err := f.Adapters.GTPC.DeleteAllSessions(ctx, ue); err != nil {
		f.Logger.Error("failed to delete GTP sessions on detach", zap.Error(err))
	}
}

// handleUplinkNASTransport forwards via SGsAP if the SGs association is
// connected; otherwise replies with an S1AP Error-Indication.
func (f *FSM) handleUplinkNASTransport(ctx context.Context, ue *uectx.UEContext, msg NASMessage) {
	ue.RLock()
	connected := ue.SGs.Connected
	ue.RUnlock()

	if connected {
		if err := f.Adapters.SGsAP.UplinkUnitdata(ctx, ue, msg.NASContainer); err != nil {
			f.Logger.Error("failed to forward SGsAP Uplink-Unitdata", zap.Error(err))
		}
		return
	}

	f.Logger.Warn("no connection of MSC/VLR", zap.String("imsi", ue.IMSI))
	if err := f.Adapters.S1AP.ErrorIndication(ctx, ue, "transport-resource-unavailable"); err != nil {
		f.Logger.Error("failed to send S1AP Error-Indication", zap.Error(err))
	}
}

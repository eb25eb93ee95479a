package emm

import (
	"context"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
	"go.uber.org/zap"
)

// handleInitialContextSetup services Initial-Context-Setup: awaits
// Attach-Complete. Entering this state runs no entry hook, so the FSM
// itself sends no S1AP Initial-Context-Setup-Request on the attach path.
func (f *FSM) handleInitialContextSetup(ctx context.Context, ue *uectx.UEContext, ev Event) {
	if ev.Kind != EventEMMMessage {
		f.Logger.Error("unexpected timer event in Initial-Context-Setup", zap.String("timer", ev.TimerID.String()))
		return
	}

	msg := ev.NAS
	switch msg.Type {
	case MsgAttachComplete:
		ue.RLock()
		hasPTMSI := len(ue.PTMSI) > 0
		ue.RUnlock()

		if hasPTMSI {
			if err := f.Adapters.SGsAP.TMSIReallocationComplete(ctx, ue); err != nil {
				f.Logger.Error("failed to send SGsAP TMSI-Reallocation-Complete", zap.Error(err))
			}
		}
		f.transition(ue, uectx.StateRegistered)

	case MsgAttachRequest:
		f.Logger.Warn("attach request while in Initial-Context-Setup, restarting", zap.String("imsi", ue.IMSI))
		if err := f.Adapters.GTPC.DeleteAllSessions(ctx, ue); err != nil {
			f.Logger.Error("failed to delete sessions on attach restart", zap.Error(err))
		}
		ue.Lock()
		ue.Pending = uectx.PendingRequest{Kind: uectx.PendingAttach, Procedure: ev.ProcedureCode}
		ue.Unlock()
		f.transition(ue, uectx.StateAuthentication)

	case MsgEMMStatus:
		f.Logger.Warn("EMM-Status in Initial-Context-Setup", zap.String("imsi", ue.IMSI))
		f.transition(ue, uectx.StateException)

	case MsgDetachRequest:
		f.handleDetachInTransientState(ctx, ue)

	default:
		f.Logger.Warn("unexpected message in Initial-Context-Setup", zap.Int("type", int(msg.Type)))
	}
}

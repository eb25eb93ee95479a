package emm

import (
	"context"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
	"go.uber.org/zap"
)

// handleException services Exception: a terminal sink. Entry already
// cleared the service indicator and every timer (FSM.onEntryClear); no
// further NAS is sent for this UE (spec §7's recovery policy) and events
// are logged only, pending eventual context reap.
func (f *FSM) handleException(ctx context.Context, ue *uectx.UEContext, ev Event) {
	ue.Touch()
	switch ev.Kind {
	case EventEMMMessage:
		f.Logger.Debug("event dropped in Exception state",
			zap.String("imsi", ue.IMSI),
			zap.Int("msg_type", int(ev.NAS.Type)))
	case EventEMMTimer:
		f.Logger.Debug("stray timer expiry dropped in Exception state",
			zap.String("imsi", ue.IMSI),
			zap.String("timer", ev.TimerID.String()))
	}
}

package emm

import (
	"context"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
)

// handleDeRegistered services De-Registered: entry clearing already ran
// in FSM.transition, so this state contributes nothing beyond the shared
// common-register logic.
func (f *FSM) handleDeRegistered(ctx context.Context, ue *uectx.UEContext, ev Event) {
	f.commonRegister(ctx, ue, ev)
}

// handleRegistered services Registered: attached and idle/active, driven
// entirely by the shared common-register logic.
func (f *FSM) handleRegistered(ctx context.Context, ue *uectx.UEContext, ev Event) {
	f.commonRegister(ctx, ue, ev)
}

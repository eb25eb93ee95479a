// Package s1ap is a logging stand-in for the S1-MME transport the
// EMM core drives: message framing and the SCTP association itself are
// out of scope (spec §1), so this logs what would have been sent and
// satisfies emm.S1AP for wiring and tests.
package s1ap

import (
	"context"

	"go.uber.org/zap"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
)

// Adapter is the logging implementation of emm.S1AP.
type Adapter struct {
	logger *zap.Logger
}

// New builds a logging S1AP adapter.
func New(logger *zap.Logger) *Adapter {
	return &Adapter{logger: logger}
}

func (a *Adapter) InitialContextSetupRequest(ctx context.Context, ue *uectx.UEContext) error {
	a.logger.Info("S1AP Initial-Context-Setup-Request", zap.String("imsi", ue.IMSI))
	return nil
}

func (a *Adapter) UEContextModificationRequest(ctx context.Context, ue *uectx.UEContext) error {
	a.logger.Info("S1AP UE-Context-Modification-Request", zap.String("imsi", ue.IMSI))
	return nil
}

func (a *Adapter) Paging(ctx context.Context, ue *uectx.UEContext) error {
	a.logger.Info("S1AP Paging", zap.String("imsi", ue.IMSI))
	return nil
}

func (a *Adapter) DownlinkNASTransport(ctx context.Context, ue *uectx.UEContext, pdu []byte) error {
	a.logger.Debug("S1AP Downlink-NAS-Transport", zap.String("imsi", ue.IMSI), zap.Int("pdu_len", len(pdu)))
	return nil
}

func (a *Adapter) ErrorIndication(ctx context.Context, ue *uectx.UEContext, cause string) error {
	a.logger.Warn("S1AP Error-Indication", zap.String("imsi", ue.IMSI), zap.String("cause", cause))
	return nil
}

func (a *Adapter) UEContextRelease(ctx context.Context, ue *uectx.UEContext) error {
	a.logger.Info("S1AP UE-Context-Release", zap.String("imsi", ue.IMSI))
	return nil
}

func (a *Adapter) ReleaseAccessBearer(ctx context.Context, ue *uectx.UEContext) error {
	a.logger.Info("S1AP Release-Access-Bearer", zap.String("imsi", ue.IMSI))
	return nil
}

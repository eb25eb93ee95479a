// Package sgsap is a logging stand-in for the SGs interface
// toward the MSC/VLR used for CS-fallback signaling. The SCTP/wire
// encoding of SGsAP is out of scope (spec §1); this satisfies emm.SGsAP
// for wiring and tests.
package sgsap

import (
	"context"

	"go.uber.org/zap"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
)

// Adapter is the logging implementation of emm.SGsAP.
type Adapter struct {
	vlrAddr string
	logger  *zap.Logger
}

// New builds a logging SGsAP adapter targeting the configured VLR.
func New(vlrAddr string, logger *zap.Logger) *Adapter {
	return &Adapter{vlrAddr: vlrAddr, logger: logger}
}

func (a *Adapter) DetachIndication(ctx context.Context, ue *uectx.UEContext) error {
	a.logger.Info("SGsAP Detach-Indication", zap.String("imsi", ue.IMSI), zap.String("vlr", a.vlrAddr))
	return nil
}

func (a *Adapter) UplinkUnitdata(ctx context.Context, ue *uectx.UEContext, pdu []byte) error {
	a.logger.Debug("SGsAP Uplink-Unitdata", zap.String("imsi", ue.IMSI), zap.Int("pdu_len", len(pdu)))
	return nil
}

func (a *Adapter) MOCSFBIndication(ctx context.Context, ue *uectx.UEContext) error {
	a.logger.Info("SGsAP MO-CSFB-Indication", zap.String("imsi", ue.IMSI))
	return nil
}

func (a *Adapter) ServiceRequest(ctx context.Context, ue *uectx.UEContext, mode string) error {
	a.logger.Info("SGsAP Service-Request", zap.String("imsi", ue.IMSI), zap.String("mode", mode))
	return nil
}

func (a *Adapter) TMSIReallocationComplete(ctx context.Context, ue *uectx.UEContext) error {
	a.logger.Info("SGsAP TMSI-Reallocation-Complete", zap.String("imsi", ue.IMSI))
	return nil
}

func (a *Adapter) UEUnreachable(ctx context.Context, ue *uectx.UEContext, cause string) error {
	a.logger.Warn("SGsAP UE-Unreachable", zap.String("imsi", ue.IMSI), zap.String("cause", cause))
	return nil
}

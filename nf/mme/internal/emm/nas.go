package emm

import (
	"context"
	"fmt"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
	"go.uber.org/zap"
)

// Procedures is the NAS Procedure Layer (spec §4.2): builders/senders for
// every outbound EMM NAS message. Each consumes the UE context (and
// sometimes a cause code), applies a security-wrap step using the
// selected algorithms and current DL-count, and hands the resulting PDU
// to the S1AP adapter as either Downlink-NAS-Transport or piggy-backed on
// Initial-Context-Setup. Builders that arm a timer reset retry_count to 0
// and start it via the TimerManager.
type Procedures struct {
	s1ap   S1AP
	timers *TimerManager
	logger *zap.Logger
}

// NewProcedures builds the NAS procedure layer over the given S1AP
// adapter and timer manager.
func NewProcedures(s1ap S1AP, timers *TimerManager, logger *zap.Logger) *Procedures {
	return &Procedures{s1ap: s1ap, timers: timers, logger: logger}
}

// wrap applies the NAS security envelope: cipher+integrity using the
// selected algorithms and current DL-count, then bumps DL-count. The
// wire codec itself is out of scope (spec §1); this produces a
// placeholder PDU carrying just enough shape for the adapter layer and
// tests to assert against.
func (p *Procedures) wrap(ue *uectx.UEContext, msgName string) []byte {
	ue.Lock()
	defer ue.Unlock()
	dl := ue.Security.DLCount
	ue.Security.DLCount++
	return []byte(fmt.Sprintf("NAS{%s,dl=%d}", msgName, dl))
}

func (p *Procedures) SendIdentityRequest(ctx context.Context, ue *uectx.UEContext) error {
	pdu := p.wrap(ue, "Identity-Request")
	p.timers.Start(ue, uectx.TimerT3470)
	p.logger.Debug("sending Identity-Request", zap.String("imsi", ue.IMSI))
	return p.s1ap.DownlinkNASTransport(ctx, ue, pdu)
}

func (p *Procedures) SendAuthenticationRequest(ctx context.Context, ue *uectx.UEContext) error {
	pdu := p.wrap(ue, "Authentication-Request")
	p.timers.Start(ue, uectx.TimerT3460)
	p.logger.Debug("sending Authentication-Request", zap.String("imsi", ue.IMSI))
	return p.s1ap.DownlinkNASTransport(ctx, ue, pdu)
}

// ResendAuthenticationRequest re-sends without re-arming: the timer was
// already re-scheduled by TimerManager.Fire when it decided this retry
// should happen.
func (p *Procedures) ResendAuthenticationRequest(ctx context.Context, ue *uectx.UEContext) error {
	pdu := p.wrap(ue, "Authentication-Request")
	return p.s1ap.DownlinkNASTransport(ctx, ue, pdu)
}

func (p *Procedures) SendAuthenticationReject(ctx context.Context, ue *uectx.UEContext) error {
	pdu := p.wrap(ue, "Authentication-Reject")
	p.logger.Warn("sending Authentication-Reject", zap.String("imsi", ue.IMSI))
	return p.s1ap.DownlinkNASTransport(ctx, ue, pdu)
}

func (p *Procedures) SendSecurityModeCommand(ctx context.Context, ue *uectx.UEContext) error {
	pdu := p.wrap(ue, "Security-Mode-Command")
	p.timers.Start(ue, uectx.TimerT3460)
	p.logger.Debug("sending Security-Mode-Command", zap.String("imsi", ue.IMSI))
	return p.s1ap.DownlinkNASTransport(ctx, ue, pdu)
}

func (p *Procedures) ResendSecurityModeCommand(ctx context.Context, ue *uectx.UEContext) error {
	pdu := p.wrap(ue, "Security-Mode-Command")
	return p.s1ap.DownlinkNASTransport(ctx, ue, pdu)
}

func (p *Procedures) SendAttachReject(ctx context.Context, ue *uectx.UEContext, emmCause Cause, esmCause int) error {
	pdu := p.wrap(ue, fmt.Sprintf("Attach-Reject{emm=%d,esm=%d}", emmCause, esmCause))
	p.logger.Warn("sending Attach-Reject", zap.String("imsi", ue.IMSI), zap.Int("emm_cause", int(emmCause)))
	return p.s1ap.DownlinkNASTransport(ctx, ue, pdu)
}

func (p *Procedures) SendTAUReject(ctx context.Context, ue *uectx.UEContext, cause Cause) error {
	pdu := p.wrap(ue, fmt.Sprintf("TAU-Reject{cause=%d}", cause))
	p.logger.Warn("sending TAU-Reject", zap.String("imsi", ue.IMSI))
	return p.s1ap.DownlinkNASTransport(ctx, ue, pdu)
}

func (p *Procedures) SendServiceReject(ctx context.Context, ue *uectx.UEContext, cause Cause) error {
	pdu := p.wrap(ue, fmt.Sprintf("Service-Reject{cause=%d}", cause))
	p.logger.Warn("sending Service-Reject", zap.String("imsi", ue.IMSI))
	return p.s1ap.DownlinkNASTransport(ctx, ue, pdu)
}

// SendTAUAcceptViaICS piggybacks TAU-Accept on the S1AP Initial-Context-
// Setup-Request procedure (active-flag set on the TAU-Request).
func (p *Procedures) SendTAUAcceptViaICS(ctx context.Context, ue *uectx.UEContext) error {
	p.wrap(ue, "TAU-Accept")
	p.logger.Debug("sending TAU-Accept via Initial-Context-Setup", zap.String("imsi", ue.IMSI))
	return p.s1ap.InitialContextSetupRequest(ctx, ue)
}

// SendTAUAcceptViaDL sends TAU-Accept over Downlink-NAS-Transport.
func (p *Procedures) SendTAUAcceptViaDL(ctx context.Context, ue *uectx.UEContext) error {
	pdu := p.wrap(ue, "TAU-Accept")
	p.logger.Debug("sending TAU-Accept via Downlink-NAS-Transport", zap.String("imsi", ue.IMSI))
	return p.s1ap.DownlinkNASTransport(ctx, ue, pdu)
}

// Package emm implements the EPS Mobility Management state machine: the
// per-UE control-plane automaton driving attach, authentication,
// security-mode setup, tracking-area update, service request, detach,
// paging and CS-fallback signaling over S1-MME.
//
// Six states are expressed as context.State values dispatched through an
// explicit switch, not an inheritance hierarchy — a tagged enum dispatched
// by explicit match is preferred over deep state-object inheritance. The
// "common register" logic shared between De-Registered and Registered is
// a free function both states call into (common_register.go).
package emm

import (
	"context"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
	"github.com/openepc/mme/common/metrics"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// FSM is the EMM FSM Core. One FSM instance is shared by every UE; the
// mutable part of the automaton lives entirely in each UE's own context.
type FSM struct {
	Store    *uectx.Store
	Adapters Adapters
	Timers   *TimerManager
	NAS      *Procedures
	Logger   *zap.Logger
	Tracer   trace.Tracer
}

// New builds an FSM over the given store, adapters and timer
// configuration.
func New(store *uectx.Store, adapters Adapters, timers *TimerManager, logger *zap.Logger, tracer trace.Tracer) *FSM {
	return &FSM{
		Store:    store,
		Adapters: adapters,
		Timers:   timers,
		NAS:      NewProcedures(adapters.S1AP, timers, logger),
		Logger:   logger,
		Tracer:   tracer,
	}
}

// Handle routes one inbound event to ue's current state handler. This is
// the single entry point the Event Dispatcher calls; it runs to
// completion with no suspension points (spec §5) — the event loop that
// calls Handle must guarantee serialized, in-order delivery per UE.
func (f *FSM) Handle(ctx context.Context, ue *uectx.UEContext, ev Event) {
	spanName := "emm.message"
	if ev.Kind == EventEMMTimer {
		spanName = "emm.timer." + ev.TimerID.String()
	}
	ctx, span := f.Tracer.Start(ctx, spanName)
	defer span.End()

	if ev.Kind == EventEMMTimer {
		valid, exhausted := f.Timers.Fire(ue, ev.TimerID, ev.Generation)
		if !valid {
			f.Logger.Debug("discarding stale timer expiry",
				zap.String("timer", ev.TimerID.String()),
				zap.Uint64("generation", ev.Generation))
			return
		}
		metrics.RecordTimerExpiration(ev.TimerID.String(), exhausted)
		ev.TimerExhausted = exhausted
	}

	state := f.currentState(ue)
	switch state {
	case uectx.StateDeRegistered:
		f.handleDeRegistered(ctx, ue, ev)
	case uectx.StateRegistered:
		f.handleRegistered(ctx, ue, ev)
	case uectx.StateAuthentication:
		f.handleAuthentication(ctx, ue, ev)
	case uectx.StateSecurityMode:
		f.handleSecurityMode(ctx, ue, ev)
	case uectx.StateInitialContextSetup:
		f.handleInitialContextSetup(ctx, ue, ev)
	case uectx.StateException:
		f.handleException(ctx, ue, ev)
	}
}

func (f *FSM) currentState(ue *uectx.UEContext) uectx.State {
	ue.RLock()
	defer ue.RUnlock()
	return ue.State
}

// transition moves ue to next, running next's entry hook. Exactly one
// state is current at any instant; the entry hook for Exception and
// De-Registered clears the service indicator and every timer (spec §4.1).
func (f *FSM) transition(ue *uectx.UEContext, next uectx.State) {
	ue.Lock()
	prev := ue.State
	ue.State = next
	ue.Unlock()

	metrics.RecordStateTransition(prev.String(), next.String())
	metrics.EMMUECount.WithLabelValues(prev.String()).Dec()
	metrics.EMMUECount.WithLabelValues(next.String()).Inc()
	f.Logger.Debug("EMM state transition",
		zap.String("imsi", ue.IMSI),
		zap.String("from", prev.String()),
		zap.String("to", next.String()))

	switch next {
	case uectx.StateDeRegistered, uectx.StateException:
		f.onEntryClear(ue)
	case uectx.StateAuthentication:
		f.onEntryAuthentication(ue)
	case uectx.StateSecurityMode:
		f.onEntrySecurityMode(ue)
	}
}

// onEntryClear implements the De-Registered/Exception entry hook: clear
// service indicator and all timers.
func (f *FSM) onEntryClear(ue *uectx.UEContext) {
	ue.Lock()
	ue.Service.Clear()
	ue.Unlock()
	f.Timers.ClearAll(ue)
}

// onEntryAuthentication implements the Authentication state's entry hook:
// send Authentication-Request carrying the vector most recently fetched
// over S6a, which implicitly arms T3460. Also invoked directly (outside
// a state transition) when a procedure restarts while already in
// Authentication, since that path re-sends a fresh challenge without
// changing state.
func (f *FSM) onEntryAuthentication(ue *uectx.UEContext) {
	if err := f.NAS.SendAuthenticationRequest(context.Background(), ue); err != nil {
		f.Logger.Error("failed to send Authentication-Request", zap.Error(err), zap.String("imsi", ue.IMSI))
	}
}

// onEntrySecurityMode implements the Security-Mode entry hook: stop
// T3460 then send Security-Mode-Command, which implicitly re-arms T3460.
func (f *FSM) onEntrySecurityMode(ue *uectx.UEContext) {
	f.Timers.Stop(ue, uectx.TimerT3460)
	if err := f.NAS.SendSecurityModeCommand(context.Background(), ue); err != nil {
		f.Logger.Error("failed to send Security-Mode-Command", zap.Error(err), zap.String("imsi", ue.IMSI))
	}
}

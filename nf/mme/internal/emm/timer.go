package emm

import (
	"time"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
)

// TimerManager arms/stops the three per-UE bounded-retry NAS timers and
// delivers expiries as EMM-Timer events via the supplied deliver callback.
// Expiry delivery is serialized with NAS-message delivery per UE (spec
// §5): the manager never calls a state handler directly, it only enqueues
// onto the dispatcher's per-UE channel.
type TimerManager struct {
	specs   map[uectx.TimerID]uectx.TimerSpec
	deliver func(ue *uectx.UEContext, id uectx.TimerID, generation uint64)
}

// NewTimerManager builds a manager with the configured (duration,
// max_count) per timer id, and a delivery callback the dispatcher
// supplies to funnel expiries back onto the owning UE's event queue.
func NewTimerManager(specs map[uectx.TimerID]uectx.TimerSpec, deliver func(*uectx.UEContext, uectx.TimerID, uint64)) *TimerManager {
	return &TimerManager{specs: specs, deliver: deliver}
}

// Start arms a timer fresh: retry_count resets to 0, a new generation is
// minted (discarding any previously scheduled fire), and a fresh
// single-shot fire is scheduled. Used when a NAS procedure builder that
// arms a timer (Identity-Request, Authentication-Request,
// Security-Mode-Command) is sent for the first time in a procedure.
func (m *TimerManager) Start(ue *uectx.UEContext, id uectx.TimerID) {
	ue.Lock()
	defer ue.Unlock()

	t := ue.Timers[id]
	spec := m.specs[id]
	t.MaxCount = spec.MaxCount
	t.Duration = spec.Duration()
	t.RetryCount = 0
	t.Running = true
	t.Generation++
	gen := t.Generation
	dur := t.Duration

	time.AfterFunc(dur, func() {
		m.deliver(ue, id, gen)
	})
}

// Stop disarms a timer. Its generation still advances so any in-flight
// AfterFunc fire is discarded by Fire's stop-before-fire check.
func (m *TimerManager) Stop(ue *uectx.UEContext, id uectx.TimerID) {
	ue.Lock()
	defer ue.Unlock()
	m.stopLocked(ue, id)
}

func (m *TimerManager) stopLocked(ue *uectx.UEContext, id uectx.TimerID) {
	t := ue.Timers[id]
	t.Running = false
	t.Generation++
}

// ClearAll atomically stops every timer owned by ue. Invoked on entry to
// Exception or De-Registered (spec §5 cancellation rule).
func (m *TimerManager) ClearAll(ue *uectx.UEContext) {
	ue.Lock()
	defer ue.Unlock()
	for id := range ue.Timers {
		m.stopLocked(ue, id)
	}
}

// Fire is called by the dispatcher when a scheduled AfterFunc delivers an
// EMM-Timer event. valid is false if the timer was stopped or re-armed
// since this fire was scheduled (stop-before-fire, spec §5) — the event
// must then be discarded with no further action. When valid, exhausted
// reports whether retry_count had already reached max_count: if so the
// timer is stopped and the caller must drive the procedure's terminal
// handling; otherwise retry_count is incremented and the next fire is
// scheduled automatically, so the caller only needs to resend the PDU.
func (m *TimerManager) Fire(ue *uectx.UEContext, id uectx.TimerID, generation uint64) (valid bool, exhausted bool) {
	ue.Lock()
	defer ue.Unlock()

	t := ue.Timers[id]
	if !t.Running || t.Generation != generation {
		return false, false
	}

	if t.RetryCount >= t.MaxCount {
		t.Running = false
		t.Generation++
		return true, true
	}

	t.RetryCount++
	t.Generation++
	gen := t.Generation
	dur := t.Duration
	time.AfterFunc(dur, func() {
		m.deliver(ue, id, gen)
	})
	return true, false
}

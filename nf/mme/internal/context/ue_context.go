// Package context owns the per-UE EMM context: the mutable record a UE's
// FSM handlers read and write, and the store that indexes it by every key
// an inbound event might carry (IMSI, GUTI/M-TMSI, P-TMSI, S1AP UE IDs).
package context

import (
	"strconv"
	"sync"
	"time"

	"github.com/openepc/mme/common/metrics"
)

// State is the EMM FSM's current state for a UE.
type State int

const (
	StateDeRegistered State = iota
	StateRegistered
	StateAuthentication
	StateSecurityMode
	StateInitialContextSetup
	StateException
)

func (s State) String() string {
	switch s {
	case StateDeRegistered:
		return "de-registered"
	case StateRegistered:
		return "registered"
	case StateAuthentication:
		return "authentication"
	case StateSecurityMode:
		return "security-mode"
	case StateInitialContextSetup:
		return "initial-context-setup"
	case StateException:
		return "exception"
	default:
		return "unknown"
	}
}

// PendingKind tags the initiating NAS procedure currently in flight for a
// UE. Modeled as a tagged variant per spec §9 rather than a free-form int,
// so dispatch on it is exhaustive.
type PendingKind int

const (
	PendingNone PendingKind = iota
	PendingAttach
	PendingTAU
	PendingService
	PendingExtendedService
)

func (k PendingKind) String() string {
	switch k {
	case PendingAttach:
		return "attach"
	case PendingTAU:
		return "tau"
	case PendingService:
		return "service"
	case PendingExtendedService:
		return "extended-service"
	default:
		return "none"
	}
}

// S1APProcedureCode identifies which S1AP procedure carried the NAS PDU
// that set the current pending request, since TAU and Extended-Service
// completion differ by delivery path (Initial-UE-Message vs
// Uplink-NAS-Transport).
type S1APProcedureCode int

const (
	ProcedureUnknown S1APProcedureCode = iota
	ProcedureInitialUEMessage
	ProcedureUplinkNASTransport
)

// PendingRequest carries the in-flight procedure kind plus the delivery
// context needed to resume it.
type PendingRequest struct {
	Kind        PendingKind
	Procedure   S1APProcedureCode
	ActiveFlag  bool   // TAU: whether the UE requested an active connection
	ServiceType string // Extended-Service: MO-CSFB / MO-CSFB-Emergency / MT-CSFB
}

// ENBUE binds a UE context to its S1AP association with an eNodeB.
type ENBUE struct {
	MMEUES1APID uint32
	ENBUES1APID uint32
	ENBID       string
}

// AuthVector is the authentication vector received from the HSS for one
// AKA run: RAND/AUTN to challenge the UE, XRES to verify the response, and
// the resulting K_ASME.
type AuthVector struct {
	RAND  []byte
	AUTN  []byte
	XRES  []byte
	KASME [32]byte
}

// SecurityContext is the UE's current NAS/AS key material. The
// security-context-valid predicate (Valid) holds iff K_ASME is present,
// algorithms are selected, and the integrity counter is synchronized —
// exactly the invariant in spec §3.
type SecurityContext struct {
	KASME [32]byte
	KeNB  [32]byte
	NH    [32]byte
	NCC   uint8

	ULCount uint32
	DLCount uint32

	EEA string
	EIA string

	hasKASME  bool
	hasAlgs   bool
	syncedUL  bool

	Vector *AuthVector
}

// Valid reports whether the security context satisfies spec §3's
// predicate: K_ASME present, algorithms selected, integrity counter
// synchronized.
func (s *SecurityContext) Valid() bool {
	if s == nil {
		return false
	}
	return s.hasKASME && s.hasAlgs && s.syncedUL
}

// HasKASME reports whether a K_ASME has been installed, independent of
// whether algorithms have been selected yet — used by key derivation,
// which only requires K_ASME, not full context validity.
func (s *SecurityContext) HasKASME() bool {
	if s == nil {
		return false
	}
	return s.hasKASME
}

// SetKASME installs a fresh K_ASME from a completed AKA run and resets the
// downstream derived material — a new K_ASME invalidates any previously
// derived K_eNB/NH.
func (s *SecurityContext) SetKASME(kasme [32]byte) {
	s.KASME = kasme
	s.hasKASME = true
	s.KeNB = [32]byte{}
	s.NH = [32]byte{}
	s.NCC = 0
}

// SelectAlgorithms records the negotiated NAS algorithms and marks the
// integrity counter synchronized; called once Security-Mode-Command has
// been accepted.
func (s *SecurityContext) SelectAlgorithms(eea, eia string) {
	s.EEA = eea
	s.EIA = eia
	s.hasAlgs = true
	s.syncedUL = true
}

// ServiceIndicator is the bitset of pending CS services, cleared on entry
// to De-Registered and Exception.
type ServiceIndicator struct {
	CSCall bool
	SMS    bool
}

func (s *ServiceIndicator) Any() bool { return s.CSCall || s.SMS }

func (s *ServiceIndicator) Clear() { *s = ServiceIndicator{} }

// SGsAssociation is the CS-fallback association state to the MSC/VLR.
type SGsAssociation struct {
	Connected bool
	VLR       string
}

// TimerSpec configures one bounded-retry timer's duration and retry
// bound, mirroring config.TimerSpec's shape so callers can translate
// configuration straight into the manager without the emm package
// depending on the config package.
type TimerSpec struct {
	DurationMS int
	MaxCount   int
}

// Duration returns the spec's duration as a time.Duration.
func (t TimerSpec) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// TimerID identifies one of the three bounded-retry NAS timers.
type TimerID int

const (
	TimerT3413 TimerID = iota // paging
	TimerT3460                // auth / security-mode retransmission
	TimerT3470                // identity-request retransmission
)

func (t TimerID) String() string {
	switch t {
	case TimerT3413:
		return "T3413"
	case TimerT3460:
		return "T3460"
	case TimerT3470:
		return "T3470"
	default:
		return "unknown-timer"
	}
}

// Timer is one per-UE bounded-retry timer record. Generation implements
// the stop-before-fire discipline from spec §9: every arm/stop bumps
// Generation, and an expiry event carries the generation it was armed
// with — the dispatcher discards an expiry whose generation is stale.
type Timer struct {
	Running    bool
	RetryCount int
	MaxCount   int
	Duration   time.Duration
	Generation uint64
}

// UEContext is the single mutable record for one subscriber known to the
// MME. Exactly one FSM state is current at any instant (spec §3
// invariant); EMM core is its sole strong owner, adapters hold weak
// handles by index key only.
type UEContext struct {
	mu sync.RWMutex

	IMSI   string
	GUTI   string
	MTMSI  string
	PTMSI  string
	IMEISV string

	ENBUE *ENBUE

	Security *SecurityContext
	Pending  PendingRequest

	// SessionContextAvailable mirrors the ESM side's "PDN connection
	// exists" predicate; EMM only needs to know whether one is present,
	// never its contents.
	SessionContextAvailable bool
	Bearers                 []uint8

	Timers map[TimerID]*Timer

	Service ServiceIndicator
	SGs     SGsAssociation

	State State

	CreatedAt      time.Time
	LastActivityAt time.Time
}

// NewUEContext creates a fresh context in De-Registered with all timers
// stopped and no security context.
func NewUEContext() *UEContext {
	now := time.Now()
	return &UEContext{
		Security: &SecurityContext{},
		Timers: map[TimerID]*Timer{
			TimerT3413: {},
			TimerT3460: {},
			TimerT3470: {},
		},
		State:          StateDeRegistered,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// HasIMSI implements MME_UE_HAVE_IMSI(ue): IMSI length > 0.
func (ue *UEContext) HasIMSI() bool {
	ue.mu.RLock()
	defer ue.mu.RUnlock()
	return len(ue.IMSI) > 0
}

// HasPTMSI reports whether a P-TMSI is available (CS-fallback precondition).
func (ue *UEContext) HasPTMSI() bool {
	ue.mu.RLock()
	defer ue.mu.RUnlock()
	return len(ue.PTMSI) > 0
}

// ShardKey returns the key every caller must hash on to route an event
// to this UE's dispatcher shard. It is the MME-UE-S1AP-ID, not the
// IMSI: the S1AP ID is assigned at Create() and stable for the UE's
// whole life, whereas the IMSI starts empty and is learned mid-procedure
// (Identity-Response/Attach-Request) — keying on IMSI would shard NAS
// events delivered before identity is known differently from timer
// expiries armed after, breaking the single-shard-per-UE ordering
// guarantee in spec §5.
func (ue *UEContext) ShardKey() string {
	ue.mu.RLock()
	defer ue.mu.RUnlock()
	if ue.ENBUE == nil {
		return ue.IMSI
	}
	return strconv.FormatUint(uint64(ue.ENBUE.MMEUES1APID), 10)
}

// Touch records activity for idle-mode bookkeeping.
func (ue *UEContext) Touch() {
	ue.mu.Lock()
	defer ue.mu.Unlock()
	ue.LastActivityAt = time.Now()
}

// Lock/Unlock expose the context's mutex directly: the FSM dispatcher
// guarantees a single writer (the UE's current handler) runs at a time,
// so handlers take the lock for the duration of one event and external
// adapters (weak handle holders) take the read lock to inspect state.
func (ue *UEContext) Lock()    { ue.mu.Lock() }
func (ue *UEContext) Unlock()  { ue.mu.Unlock() }
func (ue *UEContext) RLock()   { ue.mu.RLock() }
func (ue *UEContext) RUnlock() { ue.mu.RUnlock() }

// Store is the thread-safe UE Context Store: a mapping from every known
// key (IMSI, GUTI/M-TMSI, MME-UE-S1AP-ID, P-TMSI) to its single owning
// context, grounded on the donor NRF's mutex-guarded map + background
// reaper pattern (nf/nrf/internal/repository/repository.go).
type Store struct {
	mu sync.RWMutex

	byIMSI   map[string]*UEContext
	byGUTI   map[string]*UEContext
	byS1APID map[uint32]*UEContext
	byPTMSI  map[string]*UEContext

	gracePeriod   time.Duration
	stopChan      chan struct{}
	cleanupTicker *time.Ticker
}

// NewStore creates an empty store and starts its reaper goroutine.
func NewStore(reapInterval, gracePeriod time.Duration) *Store {
	s := &Store{
		byIMSI:        make(map[string]*UEContext),
		byGUTI:        make(map[string]*UEContext),
		byS1APID:      make(map[uint32]*UEContext),
		byPTMSI:       make(map[string]*UEContext),
		gracePeriod:   gracePeriod,
		stopChan:      make(chan struct{}),
		cleanupTicker: time.NewTicker(reapInterval),
	}
	go s.reap()
	return s
}

// Create registers a brand-new UE context under its S1AP UE ID. Later
// identity learning (IMSI, GUTI, P-TMSI) re-indexes it under write-lock
// via the Index* methods.
func (s *Store) Create(enbUEID uint32) *UEContext {
	ue := NewUEContext()
	ue.ENBUE = &ENBUE{MMEUES1APID: enbUEID}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byS1APID[enbUEID] = ue
	metrics.EMMUECount.WithLabelValues(ue.State.String()).Inc()
	return ue
}

// IndexByIMSI re-indexes ue under a newly learned IMSI.
func (s *Store) IndexByIMSI(ue *UEContext, imsi string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byIMSI[imsi] = ue
}

// IndexByGUTI re-indexes ue under a newly assigned GUTI.
func (s *Store) IndexByGUTI(ue *UEContext, guti string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byGUTI[guti] = ue
}

// IndexByPTMSI re-indexes ue under a newly learned P-TMSI.
func (s *Store) IndexByPTMSI(ue *UEContext, ptmsi string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPTMSI[ptmsi] = ue
}

func (s *Store) LookupByIMSI(imsi string) (*UEContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ue, ok := s.byIMSI[imsi]
	return ue, ok
}

func (s *Store) LookupByGUTI(guti string) (*UEContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ue, ok := s.byGUTI[guti]
	return ue, ok
}

func (s *Store) LookupByS1APID(id uint32) (*UEContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ue, ok := s.byS1APID[id]
	return ue, ok
}

func (s *Store) LookupByPTMSI(ptmsi string) (*UEContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ue, ok := s.byPTMSI[ptmsi]
	return ue, ok
}

// Destroy removes ue from every index it appears under. Called on
// successful Detach-Accept, on Attach-Reject where retention is not
// required, or on administrative eviction.
func (s *Store) Destroy(ue *UEContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ue.RLock()
	imsi, guti, ptmsi := ue.IMSI, ue.GUTI, ue.PTMSI
	state := ue.State
	var s1apID uint32
	if ue.ENBUE != nil {
		s1apID = ue.ENBUE.MMEUES1APID
	}
	ue.RUnlock()

	if imsi != "" {
		delete(s.byIMSI, imsi)
	}
	if guti != "" {
		delete(s.byGUTI, guti)
	}
	if ptmsi != "" {
		delete(s.byPTMSI, ptmsi)
	}
	delete(s.byS1APID, s1apID)
	metrics.EMMUECount.WithLabelValues(state.String()).Dec()
}

// All returns every UE context currently indexed by IMSI, for the ops
// API's listing endpoint. UEs not yet identified (no IMSI learned) are
// not included, matching the donor AMF context manager's supi-keyed
// listing.
func (s *Store) All() []*UEContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ues := make([]*UEContext, 0, len(s.byIMSI))
	for _, ue := range s.byIMSI {
		ues = append(ues, ue)
	}
	return ues
}

// Stats returns the number of UE contexts per EMM state, generalizing the
// donor AMF's GetRegisteredCount/GetConnectedCount to all six states.
func (s *Store) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	seen := make(map[*UEContext]bool)
	for _, ue := range s.byIMSI {
		if seen[ue] {
			continue
		}
		seen[ue] = true
		ue.RLock()
		counts[ue.State.String()]++
		ue.RUnlock()
	}
	return counts
}

// reap periodically sweeps contexts that have sat in Exception past the
// configured grace period, mirroring the donor NRF repository's
// ticker-driven cleanup goroutine.
func (s *Store) reap() {
	for {
		select {
		case <-s.cleanupTicker.C:
			s.sweep()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Store) sweep() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for imsi, ue := range s.byIMSI {
		ue.RLock()
		stale := ue.State == StateException && now.Sub(ue.LastActivityAt) > s.gracePeriod
		guti, ptmsi := ue.GUTI, ue.PTMSI
		var s1apID uint32
		if ue.ENBUE != nil {
			s1apID = ue.ENBUE.MMEUES1APID
		}
		ue.RUnlock()

		if !stale {
			continue
		}
		delete(s.byIMSI, imsi)
		if guti != "" {
			delete(s.byGUTI, guti)
		}
		if ptmsi != "" {
			delete(s.byPTMSI, ptmsi)
		}
		delete(s.byS1APID, s1apID)
		metrics.EMMUECount.WithLabelValues(StateException.String()).Dec()
	}
}

// Close stops the reaper goroutine and cancels any still-pending timers
// owned by contexts in the store.
func (s *Store) Close() {
	close(s.stopChan)
	s.cleanupTicker.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()
	cancel := func(ue *UEContext) {
		ue.Lock()
		for _, t := range ue.Timers {
			t.Running = false
			t.Generation++
		}
		ue.Unlock()
	}
	for _, ue := range s.byS1APID {
		cancel(ue)
	}
	for _, ue := range s.byIMSI {
		cancel(ue)
	}
}

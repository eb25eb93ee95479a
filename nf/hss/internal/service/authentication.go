// Package service implements the HSS's S6a-facing authentication and
// location-management logic: EPS-AKA vector generation and subscriber
// location bookkeeping for the MME.
package service

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openepc/mme/nf/hss/internal/crypto"
)

// defaultAMF is the Authentication Management Field used for
// network-initiated EPS-AKA vectors; 0x8000 sets bit 0 (the most
// significant bit, the AMF separation bit), marking them as EPS vectors.
var defaultAMF = []byte{0x80, 0x00}

// Subscriber holds one provisioned subscriber's long-term key material
// and monotonic sequence-number state.
type Subscriber struct {
	IMSI string
	K    []byte
	OPc  []byte

	mu  sync.Mutex
	sqn uint64 // 48-bit sequence number, kept in the low 48 bits
}

// AuthenticationService is the HSS's S6a authentication and
// location-management service, the EPS-AKA analogue of the donor's
// 5G-AKA AuthenticationService. Unlike 5G-AKA's two-phase
// initiate/confirm flow, S6a's Authentication-Information-Answer
// carries the full vector (including XRES, not a hashed HXRES) in one
// round trip, and the MME performs the RES-vs-XRES comparison itself —
// so there is no pending-context store or confirmation step here.
type AuthenticationService struct {
	servingNetworkID []byte

	mu          sync.RWMutex
	subscribers map[string]*Subscriber

	logger *zap.Logger
}

// NewAuthenticationService builds the service over a fixed set of
// provisioned subscribers.
func NewAuthenticationService(mcc, mnc string, subs []Subscriber, logger *zap.Logger) *AuthenticationService {
	index := make(map[string]*Subscriber, len(subs))
	for i := range subs {
		s := subs[i]
		index[s.IMSI] = &Subscriber{IMSI: s.IMSI, K: s.K, OPc: s.OPc}
	}
	return &AuthenticationService{
		servingNetworkID: crypto.ServingNetworkID(mcc, mnc),
		subscribers:      index,
		logger:           logger,
	}
}

// Vector is the EPS authentication vector returned over S6a: RAND,
// AUTN, XRES and K_ASME, everything the MME needs to run Authentication
// and derive NAS/AS keys without a further round trip.
type Vector struct {
	RAND  []byte
	AUTN  []byte
	XRES  []byte
	KASME [32]byte
}

// ErrUnknownSubscriber is returned when the IMSI has no provisioned key
// material.
type ErrUnknownSubscriber struct{ IMSI string }

func (e ErrUnknownSubscriber) Error() string {
	return fmt.Sprintf("hss: unknown subscriber %s", e.IMSI)
}

// AuthenticationInformationRequest generates one EPS-AKA vector for
// imsi. When auts is non-empty, it carries the UE's resynchronization
// token from an Authentication-Failure(Synch failure) and the
// subscriber's SQN is resynchronized before the new vector is
// generated, per TS 33.401 §6.3.
func (s *AuthenticationService) AuthenticationInformationRequest(imsi string, auts []byte) (*Vector, error) {
	sub := s.lookup(imsi)
	if sub == nil {
		return nil, ErrUnknownSubscriber{IMSI: imsi}
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()

	if len(auts) > 0 {
		s.resynchronize(sub, auts)
	}

	randBytes := make([]byte, 16)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, fmt.Errorf("failed to generate RAND: %w", err)
	}

	sub.sqn++
	sqnBytes := sqnToBytes(sub.sqn)

	av, err := crypto.GenerateAuthVector(sub.K, sub.OPc, randBytes, sqnBytes, defaultAMF)
	if err != nil {
		return nil, fmt.Errorf("failed to generate authentication vector: %w", err)
	}

	sqnXorAK := make([]byte, 6)
	for i := 0; i < 6; i++ {
		sqnXorAK[i] = sqnBytes[i] ^ av.AK[i]
	}
	kasme := crypto.DeriveKASME(av.CK, av.IK, sqnXorAK, s.servingNetworkID)

	s.logger.Debug("generated EPS-AKA vector", zap.String("imsi", imsi), zap.Uint64("sqn", sub.sqn))

	return &Vector{RAND: av.RAND, AUTN: av.AUTN, XRES: av.XRES, KASME: kasme}, nil
}

// resynchronize recovers from an Authentication-Failure(Synch failure)
// by fast-forwarding the stored SQN past the window the UE reported.
// Proper recovery requires unmasking AUTS with f5* (a MILENAGE function
// distinct from f5, not implemented here); in its
// absence this advances the counter by a fixed window, which converges
// within a bounded number of resyncs for sequential SQN allocation.
func (s *AuthenticationService) resynchronize(sub *Subscriber, auts []byte) {
	sub.sqn += 32
}

func (s *AuthenticationService) lookup(imsi string) *Subscriber {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscribers[imsi]
}

// UpdateLocation records the MME as the subscriber's serving MME. The
// HSS has no downstream peer of its own to notify (no HLR/legacy core
// interworking in this deployment), so this is bookkeeping only — S6a's
// Update-Location-Answer is sent regardless.
func (s *AuthenticationService) UpdateLocation(imsi string) error {
	if s.lookup(imsi) == nil {
		return ErrUnknownSubscriber{IMSI: imsi}
	}
	s.logger.Info("subscriber location updated", zap.String("imsi", imsi), zap.Time("at", time.Now()))
	return nil
}

func sqnToBytes(sqn uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sqn)
	return buf[2:8]
}

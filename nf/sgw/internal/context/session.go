// Package context holds the S-GW's per-subscriber S11 session-control
// bookkeeping: the minimal state needed to accept a Delete-Session-Request
// from the MME and locate the session it targets.
package context

import (
	"sync"
	"time"
)

// Session is one subscriber's S11 control-plane session, tracked by the
// S-GW stand-in purely so Delete-Session-Request has something to find
// and remove. Bearer/user-plane state (ESM, S1-U/S5-U) is out of scope —
// this system never establishes or forwards a data-plane tunnel.
type Session struct {
	IMSI      string
	LocalTEID uint32 // this S-GW's S11 control-plane TEID for the session
	MMETEID   uint32 // the peer MME's S11 control-plane TEID
	CreatedAt time.Time
	Touched   time.Time
}

// Store indexes sessions by IMSI and by this S-GW's local TEID, the two
// keys Delete-Session-Request and its GTPv2 envelope carry.
type Store struct {
	mu      sync.RWMutex
	byIMSI  map[string]*Session
	byTEID  map[uint32]*Session
	nextTEID uint32
}

// NewStore builds an empty session store.
func NewStore() *Store {
	return &Store{
		byIMSI:   make(map[string]*Session),
		byTEID:   make(map[uint32]*Session),
		nextTEID: 1,
	}
}

// Create provisions a session for imsi with a freshly allocated local
// TEID, replacing any prior session for the same subscriber.
func (s *Store) Create(imsi string, mmeTEID uint32) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byIMSI[imsi]; ok {
		delete(s.byTEID, existing.LocalTEID)
	}

	teid := s.nextTEID
	s.nextTEID++
	if s.nextTEID == 0 {
		s.nextTEID = 1
	}

	now := time.Now()
	sess := &Session{IMSI: imsi, LocalTEID: teid, MMETEID: mmeTEID, CreatedAt: now, Touched: now}
	s.byIMSI[imsi] = sess
	s.byTEID[teid] = sess
	return sess
}

// ByIMSI looks up the session provisioned for imsi.
func (s *Store) ByIMSI(imsi string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byIMSI[imsi]
	return sess, ok
}

// ByTEID looks up the session owning localTEID — the key Delete-Session
// -Request's GTPv2 header carries.
func (s *Store) ByTEID(localTEID uint32) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byTEID[localTEID]
	return sess, ok
}

// Delete removes sess from both indexes.
func (s *Store) Delete(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byIMSI, sess.IMSI)
	delete(s.byTEID, sess.LocalTEID)
}

// All returns every session currently tracked, for the admin API.
func (s *Store) All() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.byIMSI))
	for _, sess := range s.byIMSI {
		out = append(out, sess)
	}
	return out
}

// Count returns the number of tracked sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byIMSI)
}

package multixact

import (
	"sync"

	"mxact/txid"
)

// WatermarkPersister is the durability collaborator for the watermarks.
// This core only owns the in-memory update rule; checkpointing owns when
// and where the values hit disk.
type WatermarkPersister interface {
	PersistWatermark(nextMXact txid.MultiXactID, nextOffset txid.MultiXactOffset) error
}

// NoopPersister is the default: watermark durability is deferred entirely
// to the surrounding engine's checkpoint mechanism.
type NoopPersister struct{}

func (NoopPersister) PersistWatermark(txid.MultiXactID, txid.MultiXactOffset) error {
	return nil
}

// State tracks the next-to-assign multixact id, the next-to-assign member
// offset and the global next transaction id. All three only move forward,
// whether advanced by normal allocation or by replay.
type State struct {
	mu         sync.Mutex
	nextMXact  txid.MultiXactID
	nextOffset txid.MultiXactOffset
	nextXid    txid.TransactionID
	persister  WatermarkPersister
}

func NewState(p WatermarkPersister) *State {
	if p == nil {
		p = NoopPersister{}
	}
	return &State{
		nextMXact: txid.FirstMultiXactID,
		nextXid:   txid.FirstNormalTransactionID,
		persister: p,
	}
}

// Startup installs persisted control state. Called once before any
// allocation or replay.
func (s *State) Startup(nextMXact txid.MultiXactID, nextOffset txid.MultiXactOffset, nextXid txid.TransactionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMXact = nextMXact
	s.nextOffset = nextOffset
	s.nextXid = nextXid
}

// AdvanceNextMXact raises the watermarks to at least the given minimums.
// Calls with non-increasing arguments are no-ops, so it is safe to invoke
// after every replayed create record.
func (s *State) AdvanceNextMXact(minMulti txid.MultiXactID, minOffset txid.MultiXactOffset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	advanced := false
	if s.nextMXact.Precedes(minMulti) {
		s.nextMXact = minMulti
		advanced = true
	}
	if s.nextOffset.Precedes(minOffset) {
		s.nextOffset = minOffset
		advanced = true
	}

	if advanced {
		return s.persister.PersistWatermark(s.nextMXact, s.nextOffset)
	}
	return nil
}

// AdvanceNextXid makes sure the next transaction id is beyond the given
// one. No-op when xid already precedes the counter.
func (s *State) AdvanceNextXid(xid txid.TransactionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if xid.FollowsOrEquals(s.nextXid) {
		s.nextXid = xid.Advance()
	}
}

// Assign hands out the next multixact id and the starting member offset for
// nmembers members, bumping both counters.
func (s *State) Assign(nmembers int) (txid.MultiXactID, txid.MultiXactOffset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextMXact
	offset := s.nextOffset

	s.nextMXact = s.nextMXact.Advance()
	s.nextOffset += txid.MultiXactOffset(nmembers)

	return id, offset
}

// Snapshot returns a mutually consistent pair of both counters. Readers
// deriving a member count from them must not observe one counter bumped
// without the other.
func (s *State) Snapshot() (txid.MultiXactID, txid.MultiXactOffset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextMXact, s.nextOffset
}

func (s *State) NextMXact() txid.MultiXactID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextMXact
}

func (s *State) NextOffset() txid.MultiXactOffset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextOffset
}

func (s *State) NextXid() txid.TransactionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextXid
}

package multixact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mxact/txid"
)

type recordingPersister struct {
	nextMXact  txid.MultiXactID
	nextOffset txid.MultiXactOffset
	calls      int
}

func (p *recordingPersister) PersistWatermark(m txid.MultiXactID, o txid.MultiXactOffset) error {
	p.nextMXact = m
	p.nextOffset = o
	p.calls++
	return nil
}

func TestState_AdvanceNextMXact_Is_Monotonic(t *testing.T) {
	s := NewState(nil)

	require.NoError(t, s.AdvanceNextMXact(100, 500))
	assert.Equal(t, txid.MultiXactID(100), s.NextMXact())
	assert.Equal(t, txid.MultiXactOffset(500), s.NextOffset())

	// non-increasing arguments are no-ops
	require.NoError(t, s.AdvanceNextMXact(50, 400))
	assert.Equal(t, txid.MultiXactID(100), s.NextMXact())
	assert.Equal(t, txid.MultiXactOffset(500), s.NextOffset())

	require.NoError(t, s.AdvanceNextMXact(100, 500))
	assert.Equal(t, txid.MultiXactID(100), s.NextMXact())

	// one side can advance alone
	require.NoError(t, s.AdvanceNextMXact(90, 600))
	assert.Equal(t, txid.MultiXactID(100), s.NextMXact())
	assert.Equal(t, txid.MultiXactOffset(600), s.NextOffset())
}

func TestState_Advance_Notifies_Persister(t *testing.T) {
	p := &recordingPersister{}
	s := NewState(p)

	require.NoError(t, s.AdvanceNextMXact(10, 20))
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, txid.MultiXactID(10), p.nextMXact)
	assert.Equal(t, txid.MultiXactOffset(20), p.nextOffset)

	// a no-op advance must not persist anything
	require.NoError(t, s.AdvanceNextMXact(5, 5))
	assert.Equal(t, 1, p.calls)
}

func TestState_AdvanceNextXid(t *testing.T) {
	s := NewState(nil)

	s.AdvanceNextXid(10)
	assert.Equal(t, txid.TransactionID(11), s.NextXid())

	s.AdvanceNextXid(5)
	assert.Equal(t, txid.TransactionID(11), s.NextXid())

	s.AdvanceNextXid(11)
	assert.Equal(t, txid.TransactionID(12), s.NextXid())
}

func TestState_Assign_Bumps_Both_Counters(t *testing.T) {
	s := NewState(nil)

	id, off := s.Assign(3)
	assert.Equal(t, txid.FirstMultiXactID, id)
	assert.Equal(t, txid.MultiXactOffset(0), off)

	id, off = s.Assign(2)
	assert.Equal(t, txid.MultiXactID(2), id)
	assert.Equal(t, txid.MultiXactOffset(3), off)

	assert.Equal(t, txid.MultiXactID(3), s.NextMXact())
	assert.Equal(t, txid.MultiXactOffset(5), s.NextOffset())
}

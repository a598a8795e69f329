package multixact

import (
	"io"

	"github.com/pkg/errors"

	"mxact/logger"
	"mxact/txid"
	"mxact/wal"
)

// ErrUnknownRecordType aborts replay. Skipping an unrecognized record could
// leave the offset and member tables mutually inconsistent.
var ErrUnknownRecordType = errors.New("unknown multixact log record type")

// Redo applies one recovered log record. Every write targets absolute
// addresses with absolute values, so applying the same record twice yields
// the same page bytes as applying it once.
func (m *Manager) Redo(lr *wal.LogRecord) error {
	switch lr.T {
	case wal.TypeZeroOffsetPage:
		slot, err := m.offsets.ZeroPage(lr.PageNo)
		if err != nil {
			return err
		}
		// the zeroed state is itself durable; the slot must come out clean
		if err := m.offsets.WritePage(slot); err != nil {
			return err
		}
		if slot.IsDirty() {
			panic("zeroed offset page still dirty after redo write")
		}
		m.offsets.Release(slot)
		return nil

	case wal.TypeZeroMemberPage:
		slot, err := m.members.ZeroPage(lr.PageNo)
		if err != nil {
			return err
		}
		if err := m.members.WritePage(slot); err != nil {
			return err
		}
		if slot.IsDirty() {
			panic("zeroed member page still dirty after redo write")
		}
		m.members.Release(slot)
		return nil

	case wal.TypeCreateMultiXact:
		if err := m.RecordNewMultiXact(lr.MultiID, lr.StartOffset, lr.Members); err != nil {
			return err
		}

		// future allocation must never reuse consumed ids or offsets
		if err := m.state.AdvanceNextMXact(
			lr.MultiID.Advance(),
			lr.StartOffset+txid.MultiXactOffset(len(lr.Members)),
		); err != nil {
			return err
		}

		// re-derive the next transaction id from the member xids. Any xid
		// here ought to have other evidence in the log, but this record is
		// sufficient on its own.
		maxXid := txid.InvalidTransactionID
		for _, member := range lr.Members {
			if maxXid.Precedes(member.XID) {
				maxXid = member.XID
			}
		}
		m.state.AdvanceNextXid(maxXid)
		return nil

	default:
		return errors.Wrapf(ErrUnknownRecordType, "type %d", lr.T)
	}
}

// Replay drives redo over a log stream, strictly in append order. Any
// failure aborts replay; recovery is always a fresh replay from the last
// checkpoint, never incremental repair.
func (m *Manager) Replay(it *wal.LogIter) error {
	n := 0
	for {
		lr, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "replay aborted")
		}

		if err := m.Redo(lr); err != nil {
			return errors.Wrapf(err, "replay aborted at lsn %d", lr.Lsn)
		}
		n++
	}

	logger.Log.Infof("multixact replay applied %d records, next multixact id %d", n, m.state.NextMXact())
	return nil
}

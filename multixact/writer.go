package multixact

import (
	"mxact/slru"
	"mxact/txid"
)

// RecordNewMultiXact writes one offset entry and the member records for a
// multixact whose id, starting offset and members are already decided. No
// log record is written here; a caller needing crash safety appends the
// create record itself before calling. Members must arrive in ascending
// slot order within one call, so each member page is acquired at most once.
func (m *Manager) RecordNewMultiXact(id txid.MultiXactID, offset txid.MultiXactOffset, members []txid.Member) error {
	if err := m.writeOffsetFor(id, offset); err != nil {
		return err
	}

	m.memMu.Lock()
	defer m.memMu.Unlock()

	prevPageNo := int64(-1)
	var slot *slru.Slot
	var err error

	for i, member := range members {
		slotOffset := offset + txid.MultiXactOffset(i)
		pageNo := memberPageNo(slotOffset)

		if pageNo != prevPageNo {
			if slot != nil {
				m.members.Release(slot)
			}
			slot, err = m.members.ReadPage(pageNo)
			if err != nil {
				return err
			}
			prevPageNo = pageNo
		}

		encodeMember(slot.Data(), slotOffset, member)
		m.members.MarkDirty(slot)
	}
	if slot != nil {
		m.members.Release(slot)
	}

	return nil
}

func (m *Manager) writeOffsetFor(id txid.MultiXactID, offset txid.MultiXactOffset) error {
	m.offMu.Lock()
	defer m.offMu.Unlock()

	slot, err := m.offsets.ReadPage(offsetPageNo(id))
	if err != nil {
		return err
	}
	defer m.offsets.Release(slot)

	writeOffsetEntry(slot.Data(), offsetEntryNo(id), offset)
	m.offsets.MarkDirty(slot)
	return nil
}

package multixact

import (
	"encoding/binary"

	"mxact/txid"
)

// encodeMember packs one member into its slot of a member table page. The
// flag word is read, the 8 bits owned by this slot are cleared, the new
// status is OR'ed into place and the word written back; the xid goes to its
// own fixed-width slot. Status always fits the 8-bit field by construction.
func encodeMember(page []byte, offset txid.MultiXactOffset, m txid.Member) {
	flagsOff := memberFlagsOffset(offset)
	bshift := memberFlagsBitShift(offset)
	xidOff := memberXidOffset(offset)

	flags := binary.LittleEndian.Uint32(page[flagsOff:])
	flags &^= uint32(memberXactBitmask) << bshift
	flags |= uint32(m.Status) << bshift
	binary.LittleEndian.PutUint32(page[flagsOff:], flags)

	binary.LittleEndian.PutUint32(page[xidOff:], uint32(m.XID))
}

// decodeMember is the mirror read of encodeMember.
func decodeMember(page []byte, offset txid.MultiXactOffset) txid.Member {
	flagsOff := memberFlagsOffset(offset)
	bshift := memberFlagsBitShift(offset)
	xidOff := memberXidOffset(offset)

	flags := binary.LittleEndian.Uint32(page[flagsOff:])

	return txid.Member{
		XID:    txid.TransactionID(binary.LittleEndian.Uint32(page[xidOff:])),
		Status: txid.MemberStatus((flags >> bshift) & memberXactBitmask),
	}
}

// readOffsetEntry returns the starting member offset stored for the given
// slot of an offset table page.
func readOffsetEntry(page []byte, entryNo int) txid.MultiXactOffset {
	return txid.MultiXactOffset(binary.LittleEndian.Uint32(page[entryNo*offsetEntrySize:]))
}

func writeOffsetEntry(page []byte, entryNo int, offset txid.MultiXactOffset) {
	binary.LittleEndian.PutUint32(page[entryNo*offsetEntrySize:], uint32(offset))
}

// Package multixact implements the paged indirection that lets a row's
// visibility metadata reference a set of transaction ids through one compact
// MultiXactID. Two parallel tables back it: the offset table maps a
// multixact id to the starting offset of its members, and the member table
// holds the (transaction id, status) pairs themselves in packed groups.
package multixact

import (
	"mxact/disk"
	"mxact/txid"
)

// On-disk layout constants. These are fixed for the life of a store and are
// never renegotiated at runtime; every address below derives from them with
// pure integer arithmetic.
const (
	offsetEntrySize = 4

	// OffsetsPerPage is the capacity of one offset table page.
	OffsetsPerPage = disk.PageSize / offsetEntrySize

	memberBitsPerXact = 8
	memberXactBitmask = (1 << memberBitsPerXact) - 1

	// one status byte per member, four members per group
	flagBytesPerGroup = 4
	membersPerGroup   = flagBytesPerGroup

	memberGroupSize = flagBytesPerGroup + membersPerGroup*4

	groupsPerPage = disk.PageSize / memberGroupSize

	// MembersPerPage is the capacity of one member table page.
	MembersPerPage = groupsPerPage * membersPerGroup
)

// offsetPageNo returns the offset table page holding the entry for id.
func offsetPageNo(id txid.MultiXactID) int64 {
	return int64(uint32(id) / OffsetsPerPage)
}

// offsetEntryNo returns the slot of id within its offset table page.
func offsetEntryNo(id txid.MultiXactID) int {
	return int(uint32(id) % OffsetsPerPage)
}

// memberPageNo returns the member table page holding the given member slot.
func memberPageNo(offset txid.MultiXactOffset) int64 {
	return int64(uint32(offset) / MembersPerPage)
}

// memberFlagsOffset returns the byte offset, within the page, of the flag
// block of the group owning the given member slot.
func memberFlagsOffset(offset txid.MultiXactOffset) int {
	return int((uint32(offset)/membersPerGroup)%groupsPerPage) * memberGroupSize
}

// memberFlagsBitShift returns the bit position of the slot's status field
// inside the group's flag word.
func memberFlagsBitShift(offset txid.MultiXactOffset) uint {
	return uint(uint32(offset)%membersPerGroup) * memberBitsPerXact
}

// memberXidOffset returns the byte offset, within the page, of the slot's
// transaction id.
func memberXidOffset(offset txid.MultiXactOffset) int {
	return memberFlagsOffset(offset) + flagBytesPerGroup +
		int(uint32(offset)%membersPerGroup)*4
}

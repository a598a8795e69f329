package txid

// TransactionID is a 32-bit cyclic transaction counter. Values below
// FirstNormalTransactionID are permanent and never handed out by the
// allocator; they compare by plain magnitude instead of modulo-2^32.
type TransactionID uint32

const (
	InvalidTransactionID     TransactionID = 0
	BootstrapTransactionID   TransactionID = 1
	FrozenTransactionID      TransactionID = 2
	FirstNormalTransactionID TransactionID = 3
	MaxTransactionID         TransactionID = 0xFFFFFFFF
)

func (id TransactionID) IsValid() bool {
	return id != InvalidTransactionID
}

func (id TransactionID) IsNormal() bool {
	return id >= FirstNormalTransactionID
}

// Advance returns the next transaction id, skipping the permanent range
// after the counter wraps.
func (id TransactionID) Advance() TransactionID {
	id++
	if id < FirstNormalTransactionID {
		id = FirstNormalTransactionID
	}
	return id
}

// Precedes reports whether id logically precedes other. Only meaningful when
// both normal operands are within 2^31 of each other; that precondition is
// the caller's to keep, it cannot be checked here.
func (id TransactionID) Precedes(other TransactionID) bool {
	if !id.IsNormal() || !other.IsNormal() {
		return id < other
	}

	diff := int32(id - other)
	return diff < 0
}

func (id TransactionID) PrecedesOrEquals(other TransactionID) bool {
	if !id.IsNormal() || !other.IsNormal() {
		return id <= other
	}

	diff := int32(id - other)
	return diff <= 0
}

func (id TransactionID) Follows(other TransactionID) bool {
	if !id.IsNormal() || !other.IsNormal() {
		return id > other
	}

	diff := int32(id - other)
	return diff > 0
}

func (id TransactionID) FollowsOrEquals(other TransactionID) bool {
	if !id.IsNormal() || !other.IsNormal() {
		return id >= other
	}

	diff := int32(id - other)
	return diff >= 0
}

// MultiXactID names a set of member transactions through one indirect id.
// It is a 32-bit cyclic counter like TransactionID but has no permanent
// range; id 0 is simply invalid.
type MultiXactID uint32

const (
	InvalidMultiXactID MultiXactID = 0
	FirstMultiXactID   MultiXactID = 1
	MaxMultiXactID     MultiXactID = 0xFFFFFFFF
)

func (m MultiXactID) IsValid() bool {
	return m != InvalidMultiXactID
}

func (m MultiXactID) Advance() MultiXactID {
	m++
	if m < FirstMultiXactID {
		m = FirstMultiXactID
	}
	return m
}

func (m MultiXactID) Precedes(other MultiXactID) bool {
	diff := int32(m - other)
	return diff < 0
}

func (m MultiXactID) PrecedesOrEquals(other MultiXactID) bool {
	diff := int32(m - other)
	return diff <= 0
}

func (m MultiXactID) Follows(other MultiXactID) bool {
	diff := int32(m - other)
	return diff > 0
}

func (m MultiXactID) FollowsOrEquals(other MultiXactID) bool {
	diff := int32(m - other)
	return diff >= 0
}

// MultiXactOffset is a cursor into the member table marking where a
// multixact's members begin. Same cyclic comparison rules as MultiXactID.
type MultiXactOffset uint32

func (o MultiXactOffset) Precedes(other MultiXactOffset) bool {
	diff := int32(o - other)
	return diff < 0
}

func (o MultiXactOffset) PrecedesOrEquals(other MultiXactOffset) bool {
	diff := int32(o - other)
	return diff <= 0
}

func (o MultiXactOffset) FollowsOrEquals(other MultiXactOffset) bool {
	diff := int32(o - other)
	return diff >= 0
}

// MemberStatus describes the kind of interest a member transaction holds.
// It is stored in an 8-bit flag field in the member table.
type MemberStatus uint8

const (
	StatusForKeyShare MemberStatus = iota
	StatusForShare
	StatusForNoKeyUpdate
	StatusForUpdate
	StatusNoKeyUpdate
	StatusUpdate

	MaxMemberStatus = StatusUpdate
)

// Member is one participant of a multixact.
type Member struct {
	XID    TransactionID
	Status MemberStatus
}

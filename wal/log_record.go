package wal

import "mxact/txid"

type LogRecordType uint8

const (
	TypeInvalid LogRecordType = iota
	TypeZeroOffsetPage
	TypeZeroMemberPage
	TypeCreateMultiXact
)

// LSN is the position of a record in the log stream.
type LSN uint64

// LogRecord is one replayable unit. Every field carries absolute addresses
// and absolute values, never deltas, so applying a record twice produces the
// same page bytes as applying it once.
type LogRecord struct {
	T   LogRecordType
	Lsn LSN

	// for zero-page records
	PageNo int64

	// for create records
	MultiID     txid.MultiXactID
	StartOffset txid.MultiXactOffset
	Members     []txid.Member
}

func (l *LogRecord) Type() LogRecordType {
	return l.T
}

func NewZeroOffsetPageLogRecord(pageNo int64) *LogRecord {
	return &LogRecord{T: TypeZeroOffsetPage, PageNo: pageNo}
}

func NewZeroMemberPageLogRecord(pageNo int64) *LogRecord {
	return &LogRecord{T: TypeZeroMemberPage, PageNo: pageNo}
}

func NewCreateMultiXactLogRecord(id txid.MultiXactID, startOffset txid.MultiXactOffset, members []txid.Member) *LogRecord {
	return &LogRecord{T: TypeCreateMultiXact, MultiID: id, StartOffset: startOffset, Members: members}
}

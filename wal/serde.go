package wal

import (
	"encoding/binary"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"mxact/txid"
)

// ErrCorruptRecord marks a log record that cannot be decoded. Replay must
// abort on it; skipping could leave the two tables mutually inconsistent.
var ErrCorruptRecord = errors.New("corrupt log record")

type BinarySerDe struct{}

func NewBinarySerDe() *BinarySerDe {
	return &BinarySerDe{}
}

func (b *BinarySerDe) Serialize(lr *LogRecord) []byte {
	res := make([]byte, 0, 64)
	res = append(res, byte(lr.T))
	res = binary.AppendUvarint(res, uint64(lr.Lsn))
	res = binary.AppendUvarint(res, uint64(lr.PageNo))
	res = binary.AppendUvarint(res, uint64(lr.MultiID))
	res = binary.AppendUvarint(res, uint64(lr.StartOffset))

	res = binary.AppendUvarint(res, uint64(len(lr.Members)))
	for _, m := range lr.Members {
		res = binary.AppendUvarint(res, uint64(m.XID))
		res = append(res, byte(m.Status))
	}

	return snappy.Encode(nil, res)
}

func (b *BinarySerDe) Deserialize(d []byte, lr *LogRecord) error {
	data, err := snappy.Decode(nil, d)
	if err != nil {
		return errors.Wrap(ErrCorruptRecord, err.Error())
	}
	if len(data) < 1 {
		return errors.Wrap(ErrCorruptRecord, "empty record")
	}

	lr.T = LogRecordType(data[0])
	offset := 1

	bad := false
	uvarint := func() uint64 {
		res, n := binary.Uvarint(data[offset:])
		if n <= 0 {
			bad = true
			return 0
		}
		offset += n
		return res
	}

	lr.Lsn = LSN(uvarint())
	lr.PageNo = int64(uvarint())
	lr.MultiID = txid.MultiXactID(uvarint())
	lr.StartOffset = txid.MultiXactOffset(uvarint())

	nmembers := uvarint()
	if bad || nmembers > uint64(len(data)) {
		return errors.Wrap(ErrCorruptRecord, "truncated header")
	}

	lr.Members = make([]txid.Member, nmembers)
	for i := range lr.Members {
		lr.Members[i].XID = txid.TransactionID(uvarint())
		if bad || offset >= len(data) {
			return errors.Wrap(ErrCorruptRecord, "truncated member list")
		}
		lr.Members[i].Status = txid.MemberStatus(data[offset])
		offset++
	}
	if bad {
		return errors.Wrap(ErrCorruptRecord, "truncated member list")
	}
	if nmembers == 0 {
		lr.Members = nil
	}

	return nil
}

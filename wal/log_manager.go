package wal

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// LogManager appends records to an underlying writer as length-prefixed
// frames. Records are replayed strictly in append order; there is no
// batching across record boundaries.
type LogManager struct {
	serde   *BinarySerDe
	currLsn LSN

	mu sync.Mutex
	w  io.Writer
}

func NewLogManager(w io.Writer) *LogManager {
	return &LogManager{
		serde: NewBinarySerDe(),
		w:     w,
	}
}

// AppendLog assigns the record its lsn and writes it out. A failed append is
// fatal for the operation that needed it; there is no retry.
func (l *LogManager) AppendLog(lr *LogRecord) (LSN, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currLsn++
	lr.Lsn = l.currLsn

	payload := l.serde.Serialize(lr)

	var frame [4]byte
	binary.LittleEndian.PutUint32(frame[:], uint32(len(payload)))
	if _, err := l.w.Write(frame[:]); err != nil {
		return 0, errors.Wrap(err, "cannot append log record")
	}
	if _, err := l.w.Write(payload); err != nil {
		return 0, errors.Wrap(err, "cannot append log record")
	}

	return lr.Lsn, nil
}

package wal

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// LogIter walks a log stream front to back, delivering records one at a
// time in their original append order.
type LogIter struct {
	r     *bufio.Reader
	serde *BinarySerDe
}

func NewLogIter(r io.Reader) *LogIter {
	return &LogIter{
		r:     bufio.NewReader(r),
		serde: NewBinarySerDe(),
	}
}

// Next returns the next record, or io.EOF when the stream is exhausted. A
// frame that ends mid-record is corrupt, not an end of stream.
func (it *LogIter) Next() (*LogRecord, error) {
	var frame [4]byte
	if _, err := io.ReadFull(it.r, frame[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(ErrCorruptRecord, "truncated frame header")
	}

	payload := make([]byte, binary.LittleEndian.Uint32(frame[:]))
	if _, err := io.ReadFull(it.r, payload); err != nil {
		return nil, errors.Wrap(ErrCorruptRecord, "truncated frame body")
	}

	lr := &LogRecord{}
	if err := it.serde.Deserialize(payload, lr); err != nil {
		return nil, err
	}
	return lr, nil
}

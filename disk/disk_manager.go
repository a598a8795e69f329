package disk

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"mxact/logger"
)

const PageSize = 4096

// Manager performs page-granular I/O on one backing file. Each table of the
// multixact store gets its own Manager with an independent page-number space
// starting from 0.
type Manager struct {
	file     *os.File
	filename string
	noSync   bool
	mu       sync.Mutex
}

func NewManager(file string, noSync bool) (*Manager, error) {
	f, err := os.OpenFile(file, os.O_CREATE|os.O_RDWR, 0640)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open page file %s", file)
	}

	stats, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat failed on page file")
	}
	if stats.Size() == 0 {
		logger.Log.Debugf("initialized empty page file %s", file)
	}

	return &Manager{file: f, filename: file, noSync: noSync}, nil
}

// ReadPage reads the page into buf, which must be PageSize bytes. A page
// past the end of the file reads as all zeroes: a page may have been logged
// as zero-filled without its first write ever reaching the file, and replay
// must still be able to proceed.
func (d *Manager) ReadPage(pageNo int64, buf []byte) error {
	if len(buf) != PageSize {
		panic("page buffer size does not match page size")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.file.ReadAt(buf, pageNo*PageSize)
	if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
		for i := n; i < PageSize; i++ {
			buf[i] = 0
		}
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "cannot read page %d of %s", pageNo, d.filename)
	}

	return nil
}

func (d *Manager) WritePage(buf []byte, pageNo int64) error {
	if len(buf) != PageSize {
		panic("page buffer size does not match page size")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.file.WriteAt(buf, pageNo*PageSize)
	if err != nil {
		return errors.Wrapf(err, "cannot write page %d of %s", pageNo, d.filename)
	}
	if n != PageSize {
		panic("written bytes are not equal to page size")
	}

	if !d.noSync {
		if err := d.file.Sync(); err != nil {
			return errors.Wrapf(err, "fsync failed on %s", d.filename)
		}
	}

	return nil
}

func (d *Manager) Close() error {
	return d.file.Close()
}

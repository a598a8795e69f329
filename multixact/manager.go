package multixact

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"mxact/conf"
	"mxact/disk"
	"mxact/logger"
	"mxact/slru"
	"mxact/txid"
	"mxact/wal"
)

var ErrNoSuchMultiXact = errors.New("multixact does not exist")
var ErrNoMembers = errors.New("a multixact must have at least one member")
var ErrBadMemberStatus = errors.New("member status out of range")

// Manager owns one multixact store: the offset table, the member table, the
// log stream feeding recovery and the watermark state. It is the explicit
// instance object threaded through every operation, so independent stores
// can coexist in one process.
type Manager struct {
	offsets *slru.Ctl
	members *slru.Ctl
	log     *wal.LogManager
	state   *State

	// genMu serializes id/offset assignment together with the zero-page
	// log appends for any page the new range enters, so a page's zero
	// record precedes, in log order, every create record touching it
	genMu sync.Mutex

	// each table is guarded across address computation, page acquisition
	// and encoding; the table-writer call is the unit of atomicity
	offMu sync.Mutex
	memMu sync.Mutex

	closers []func() error
}

// NewManager opens a disk-backed store under cfg.DataDir, creating the page
// files and the log on first use.
func NewManager(cfg *conf.Config) (*Manager, error) {
	logger.SetLevel(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, errors.Wrapf(err, "cannot create data dir %s", cfg.DataDir)
	}

	offDm, err := disk.NewManager(filepath.Join(cfg.DataDir, "offsets"), cfg.NoSync)
	if err != nil {
		return nil, err
	}
	memDm, err := disk.NewManager(filepath.Join(cfg.DataDir, "members"), cfg.NoSync)
	if err != nil {
		_ = offDm.Close()
		return nil, err
	}
	walFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "mxact.wal"), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0640)
	if err != nil {
		_ = memDm.Close()
		_ = offDm.Close()
		return nil, errors.Wrap(err, "cannot open log file")
	}

	m := NewManagerWith(
		slru.NewCtl("offsets", offDm, cfg.OffsetBuffers),
		slru.NewCtl("members", memDm, cfg.MemberBuffers),
		wal.NewLogManager(walFile),
		nil,
	)
	m.closers = []func() error{walFile.Close, memDm.Close, offDm.Close}

	logger.Log.Infof("multixact store opened at %s", cfg.DataDir)
	return m, nil
}

// NewManagerWith assembles a store from externally built collaborators.
// Used by tests and by engines that own the page cache wiring themselves.
func NewManagerWith(offsets, members *slru.Ctl, log *wal.LogManager, p WatermarkPersister) *Manager {
	return &Manager{
		offsets: offsets,
		members: members,
		log:     log,
		state:   NewState(p),
	}
}

// Bootstrap zero-fills and persists the first page of both tables. Called
// exactly once, when a store is created from nothing; no log records are
// written since there is nothing earlier to replay over.
func (m *Manager) Bootstrap() error {
	slot, err := m.offsets.ZeroPage(0)
	if err != nil {
		return err
	}
	if err := m.offsets.WritePage(slot); err != nil {
		return err
	}
	m.offsets.Release(slot)

	slot, err = m.members.ZeroPage(0)
	if err != nil {
		return err
	}
	if err := m.members.WritePage(slot); err != nil {
		return err
	}
	m.members.Release(slot)

	return nil
}

// Startup installs control-file state before any allocation or replay.
func (m *Manager) Startup(nextMXact txid.MultiXactID, nextOffset txid.MultiXactOffset, nextXid txid.TransactionID) {
	m.state.Startup(nextMXact, nextOffset, nextXid)
}

func (m *Manager) State() *State {
	return m.state
}

// Shutdown flushes both tables and closes the backing files.
func (m *Manager) Shutdown() error {
	if err := m.offsets.Flush(); err != nil {
		return err
	}
	if err := m.members.Flush(); err != nil {
		return err
	}

	for _, c := range m.closers {
		if err := c(); err != nil {
			return err
		}
	}

	logger.Log.Info("multixact store shut down")
	return nil
}

// CreateMultiXact assigns the next multixact id, logs the creation and
// writes both tables. The log record carries the id, the starting offset
// and the full member array, so replay reproduces identical page state.
func (m *Manager) CreateMultiXact(members []txid.Member) (txid.MultiXactID, error) {
	if len(members) == 0 {
		return txid.InvalidMultiXactID, ErrNoMembers
	}
	for _, mem := range members {
		if mem.Status > txid.MaxMemberStatus {
			return txid.InvalidMultiXactID, errors.Wrapf(ErrBadMemberStatus, "status %d", mem.Status)
		}
	}

	id, offset, err := m.assignAndExtend(len(members))
	if err != nil {
		return txid.InvalidMultiXactID, err
	}

	// log first, then apply; a crash between the two replays the record
	if _, err := m.log.AppendLog(wal.NewCreateMultiXactLogRecord(id, offset, members)); err != nil {
		return txid.InvalidMultiXactID, err
	}

	if err := m.RecordNewMultiXact(id, offset, members); err != nil {
		return txid.InvalidMultiXactID, err
	}

	return id, nil
}

// assignAndExtend hands out the next id and starting offset and zero-fills
// any table page the new range enters first. Assignment and the zero-page
// log appends share one critical section: ranges are assigned in log order
// of their zero records, so no create record can ever precede the zeroing
// of a page it writes to.
func (m *Manager) assignAndExtend(nmembers int) (txid.MultiXactID, txid.MultiXactOffset, error) {
	m.genMu.Lock()
	defer m.genMu.Unlock()

	id, offset := m.state.Assign(nmembers)

	if err := m.extendOffsets(id); err != nil {
		return txid.InvalidMultiXactID, 0, err
	}
	if err := m.extendMembers(offset, nmembers); err != nil {
		return txid.InvalidMultiXactID, 0, err
	}
	return id, offset, nil
}

// GetMembers returns the member list of a previously created multixact, in
// creation order. The member count is the distance to the next multixact's
// starting offset, or to the next free offset for the newest multixact.
func (m *Manager) GetMembers(id txid.MultiXactID) ([]txid.Member, error) {
	nextMXact, nextOffset := m.state.Snapshot()
	if !id.IsValid() || !id.Precedes(nextMXact) {
		return nil, errors.Wrapf(ErrNoSuchMultiXact, "id %d", id)
	}

	start, err := m.readOffsetFor(id)
	if err != nil {
		return nil, err
	}

	var end txid.MultiXactOffset
	if id.Advance() == nextMXact {
		end = nextOffset
	} else {
		end, err = m.waitOffsetFor(id.Advance())
		if err != nil {
			return nil, err
		}
	}

	if end.Precedes(start) {
		return nil, errors.Errorf("multixact %d has an inconsistent offset range [%d, %d)", id, start, end)
	}
	n := uint32(end - start)
	members := make([]txid.Member, 0, n)

	m.memMu.Lock()
	defer m.memMu.Unlock()

	prevPageNo := int64(-1)
	var slot *slru.Slot
	for i := uint32(0); i < n; i++ {
		offset := start + txid.MultiXactOffset(i)
		pageNo := memberPageNo(offset)

		if pageNo != prevPageNo {
			if slot != nil {
				m.members.Release(slot)
			}
			slot, err = m.members.ReadPage(pageNo)
			if err != nil {
				return nil, err
			}
			prevPageNo = pageNo
		}

		members = append(members, decodeMember(slot.Data(), offset))
	}
	if slot != nil {
		m.members.Release(slot)
	}

	return members, nil
}

// waitOffsetFor reads the offset entry of a multixact known to be assigned,
// retrying while the entry is still zero: the creator holds the id but has
// not written its offset yet. A later multixact can never legitimately
// start at offset zero while its predecessor exists, so zero unambiguously
// means the creation is in flight.
func (m *Manager) waitOffsetFor(id txid.MultiXactID) (txid.MultiXactOffset, error) {
	for {
		offset, err := m.readOffsetFor(id)
		if err != nil {
			return 0, err
		}
		if offset != 0 {
			return offset, nil
		}
		time.Sleep(time.Millisecond)
	}
}

func (m *Manager) readOffsetFor(id txid.MultiXactID) (txid.MultiXactOffset, error) {
	m.offMu.Lock()
	defer m.offMu.Unlock()

	slot, err := m.offsets.ReadPage(offsetPageNo(id))
	if err != nil {
		return 0, err
	}
	defer m.offsets.Release(slot)

	return readOffsetEntry(slot.Data(), offsetEntryNo(id)), nil
}

// extendOffsets zero-fills the offset table page for id when id is the
// first entry to land on it, logging the zeroing so it replays on its own.
func (m *Manager) extendOffsets(id txid.MultiXactID) error {
	if offsetEntryNo(id) != 0 {
		return nil
	}
	return m.zeroOffsetPage(offsetPageNo(id), true)
}

// extendMembers zero-fills every member table page the slot range
// [offset, offset+nmembers) enters for the first time.
func (m *Manager) extendMembers(offset txid.MultiXactOffset, nmembers int) error {
	for nmembers > 0 {
		inPage := uint32(offset) % MembersPerPage
		if inPage == 0 {
			if err := m.zeroMemberPage(memberPageNo(offset), true); err != nil {
				return err
			}
		}

		step := int(MembersPerPage - inPage)
		if step > nmembers {
			step = nmembers
		}
		nmembers -= step
		offset += txid.MultiXactOffset(step)
	}
	return nil
}

func (m *Manager) zeroOffsetPage(pageNo int64, writeLog bool) error {
	if writeLog {
		if _, err := m.log.AppendLog(wal.NewZeroOffsetPageLogRecord(pageNo)); err != nil {
			return err
		}
	}

	slot, err := m.offsets.ZeroPage(pageNo)
	if err != nil {
		return err
	}
	m.offsets.Release(slot)
	return nil
}

func (m *Manager) zeroMemberPage(pageNo int64, writeLog bool) error {
	if writeLog {
		if _, err := m.log.AppendLog(wal.NewZeroMemberPageLogRecord(pageNo)); err != nil {
			return err
		}
	}

	slot, err := m.members.ZeroPage(pageNo)
	if err != nil {
		return err
	}
	m.members.Release(slot)
	return nil
}

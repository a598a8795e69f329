package slru

import (
	"sync"

	"github.com/pkg/errors"

	"mxact/disk"
	"mxact/logger"
)

// Slot is one resident page of a table. The byte buffer is owned by the Ctl;
// callers mutate it only between acquisition and Release.
type Slot struct {
	pageNo int64
	data   []byte
	dirty  bool
	pin    int
}

func (s *Slot) Data() []byte {
	return s.data
}

func (s *Slot) PageNo() int64 {
	return s.pageNo
}

func (s *Slot) IsDirty() bool {
	return s.dirty
}

// Ctl is a small page cache over one append-mostly table stored as
// fixed-size pages. The offset table and the member table each get their own
// Ctl with an independent page-number space.
type Ctl struct {
	name   string
	dm     *disk.Manager
	frames []*Slot
	// pageMap maps a physical page number to the frame index holding it
	pageMap  map[int64]int
	empty    []int
	replacer *clockReplacer
	lock     sync.Mutex
}

func NewCtl(name string, dm *disk.Manager, bufs int) *Ctl {
	empty := make([]int, bufs)
	for i := range empty {
		empty[i] = i
	}

	return &Ctl{
		name:     name,
		dm:       dm,
		frames:   make([]*Slot, bufs),
		pageMap:  map[int64]int{},
		empty:    empty,
		replacer: newClockReplacer(bufs),
	}
}

// ZeroPage makes the addressed page resident as all zeroes and marks it
// dirty. The zeroed content is not persisted until the slot is written or
// flushed. Any previous content of the page is discarded.
func (c *Ctl) ZeroPage(pageNo int64) (*Slot, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	slot, _, err := c.grabFrame(pageNo)
	if err != nil {
		return nil, err
	}

	for i := range slot.data {
		slot.data[i] = 0
	}
	slot.dirty = true
	return slot, nil
}

// ReadPage returns a resident slot for the page, faulting it in from the
// backing file if absent. The slot comes back pinned; callers must Release
// it when done.
func (c *Ctl) ReadPage(pageNo int64) (*Slot, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	slot, faulted, err := c.grabFrame(pageNo)
	if err != nil {
		return nil, err
	}

	if faulted {
		if err := c.dm.ReadPage(pageNo, slot.data); err != nil {
			c.dropSlot(slot)
			return nil, err
		}
	}

	return slot, nil
}

func (c *Ctl) MarkDirty(s *Slot) {
	c.lock.Lock()
	defer c.lock.Unlock()

	s.dirty = true
}

func (c *Ctl) Release(s *Slot) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.unpinSlot(s)
}

// WritePage synchronously persists the slot and clears its dirty flag.
func (c *Ctl) WritePage(s *Slot) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.writeSlot(s)
}

// Flush persists every dirty resident page. It blocks until all of them are
// on their way to the backing file.
func (c *Ctl) Flush() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	n := 0
	for _, frameIdx := range c.pageMap {
		slot := c.frames[frameIdx]
		if !slot.dirty {
			continue
		}
		if err := c.writeSlot(slot); err != nil {
			return err
		}
		n++
	}

	if n > 0 {
		logger.Log.Debugf("%s: flushed %d dirty pages", c.name, n)
	}
	return nil
}

func (c *Ctl) writeSlot(s *Slot) error {
	if err := c.dm.WritePage(s.data, s.pageNo); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// grabFrame returns a pinned slot bound to pageNo. The second return value
// reports whether the frame was newly bound, in which case its content is
// stale and must be filled by the caller. Called with c.lock held.
func (c *Ctl) grabFrame(pageNo int64) (*Slot, bool, error) {
	if frameIdx, ok := c.pageMap[pageNo]; ok {
		slot := c.frames[frameIdx]
		slot.pin++
		c.replacer.pin(frameIdx)
		return slot, false, nil
	}

	if len(c.empty) > 0 {
		frameIdx := c.empty[0]
		c.empty = c.empty[1:]
		if c.frames[frameIdx] == nil {
			c.frames[frameIdx] = &Slot{data: make([]byte, disk.PageSize)}
		}

		slot := c.frames[frameIdx]
		slot.pageNo = pageNo
		slot.dirty = false
		slot.pin = 1
		c.pageMap[pageNo] = frameIdx
		c.replacer.pin(frameIdx)
		return slot, true, nil
	}

	frameIdx, err := c.replacer.chooseVictim()
	if err != nil {
		return nil, false, errors.Wrapf(err, "%s: cannot evict", c.name)
	}

	victim := c.frames[frameIdx]
	if victim.pin != 0 {
		panic("replacer chose a pinned frame as victim")
	}
	if victim.dirty {
		if err := c.writeSlot(victim); err != nil {
			return nil, false, err
		}
	}
	delete(c.pageMap, victim.pageNo)

	victim.pageNo = pageNo
	victim.dirty = false
	victim.pin = 1
	c.pageMap[pageNo] = frameIdx
	c.replacer.pin(frameIdx)
	return victim, true, nil
}

// dropSlot unbinds a freshly grabbed frame after a failed fault-in.
// Called with c.lock held.
func (c *Ctl) dropSlot(s *Slot) {
	frameIdx, ok := c.pageMap[s.pageNo]
	if !ok {
		panic("dropping a slot which is not in the page map")
	}

	delete(c.pageMap, s.pageNo)
	s.pin = 0
	s.dirty = false
	c.replacer.unpin(frameIdx)
	c.empty = append(c.empty, frameIdx)
}

// unpinSlot decrements the pin count and makes the frame evictable when it
// reaches zero. Called with c.lock held.
func (c *Ctl) unpinSlot(s *Slot) {
	frameIdx, ok := c.pageMap[s.pageNo]
	if !ok {
		panic("releasing a slot which is not in the page map")
	}
	if s.pin <= 0 {
		panic("releasing a slot whose pin count is already zero")
	}

	s.pin--
	if s.pin == 0 {
		c.replacer.unpin(frameIdx)
	}
}

package slru

import "github.com/pkg/errors"

var ErrAllFramesPinned = errors.New("every frame is pinned, nothing to evict")

// clockReplacer picks eviction victims with a second-chance sweep over the
// frame array. A frame becomes a candidate only while unpinned.
type clockReplacer struct {
	pinned []bool
	ref    []bool
	hand   int
}

func newClockReplacer(size int) *clockReplacer {
	return &clockReplacer{
		pinned: make([]bool, size),
		ref:    make([]bool, size),
	}
}

func (c *clockReplacer) pin(frameIdx int) {
	c.pinned[frameIdx] = true
	c.ref[frameIdx] = true
}

func (c *clockReplacer) unpin(frameIdx int) {
	if !c.pinned[frameIdx] {
		panic("unpinning a frame which is not pinned")
	}
	c.pinned[frameIdx] = false
}

func (c *clockReplacer) chooseVictim() (int, error) {
	// two full sweeps: the first may only clear reference bits
	for i := 0; i < 2*len(c.pinned); i++ {
		idx := c.hand
		c.hand = (c.hand + 1) % len(c.pinned)

		if c.pinned[idx] {
			continue
		}
		if c.ref[idx] {
			c.ref[idx] = false
			continue
		}
		return idx, nil
	}

	return 0, ErrAllFramesPinned
}

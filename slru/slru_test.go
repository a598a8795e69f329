package slru

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mxact/disk"
)

func newTestCtl(t *testing.T, bufs int) *Ctl {
	t.Helper()
	dm, err := disk.NewManager(filepath.Join(t.TempDir(), uuid.NewString()), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	return NewCtl("test", dm, bufs)
}

func TestCtl_Should_Keep_Writes_Visible_Through_Eviction(t *testing.T) {
	c := newTestCtl(t, 2)

	// dirty more pages than the pool holds
	for pageNo := int64(0); pageNo < 10; pageNo++ {
		slot, err := c.ZeroPage(pageNo)
		require.NoError(t, err)
		slot.Data()[0] = byte(pageNo + 1)
		slot.Data()[disk.PageSize-1] = byte(pageNo + 1)
		c.Release(slot)
	}

	for pageNo := int64(0); pageNo < 10; pageNo++ {
		slot, err := c.ReadPage(pageNo)
		require.NoError(t, err)
		assert.Equal(t, byte(pageNo+1), slot.Data()[0])
		assert.Equal(t, byte(pageNo+1), slot.Data()[disk.PageSize-1])
		c.Release(slot)
	}
}

func TestCtl_ZeroPage_Discards_Previous_Content(t *testing.T) {
	c := newTestCtl(t, 4)

	slot, err := c.ZeroPage(0)
	require.NoError(t, err)
	slot.Data()[100] = 0xCC
	c.MarkDirty(slot)
	require.NoError(t, c.WritePage(slot))
	c.Release(slot)

	slot, err = c.ZeroPage(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0), slot.Data()[100])
	assert.True(t, slot.IsDirty())
	c.Release(slot)
}

func TestCtl_WritePage_Clears_Dirty_Flag(t *testing.T) {
	c := newTestCtl(t, 4)

	slot, err := c.ZeroPage(7)
	require.NoError(t, err)
	require.True(t, slot.IsDirty())
	require.NoError(t, c.WritePage(slot))
	assert.False(t, slot.IsDirty())
	c.Release(slot)
}

func TestCtl_Flush_Persists_All_Dirty_Pages(t *testing.T) {
	dm, err := disk.NewManager(filepath.Join(t.TempDir(), uuid.NewString()), true)
	require.NoError(t, err)
	defer dm.Close()

	c := NewCtl("test", dm, 4)
	for pageNo := int64(0); pageNo < 3; pageNo++ {
		slot, err := c.ZeroPage(pageNo)
		require.NoError(t, err)
		slot.Data()[0] = byte(0xA0 + pageNo)
		c.Release(slot)
	}
	require.NoError(t, c.Flush())

	// bypass the cache and read the backing file directly
	buf := make([]byte, disk.PageSize)
	for pageNo := int64(0); pageNo < 3; pageNo++ {
		require.NoError(t, dm.ReadPage(pageNo, buf))
		assert.Equal(t, byte(0xA0+pageNo), buf[0])
	}
}

func TestCtl_Should_Fail_When_Every_Frame_Is_Pinned(t *testing.T) {
	c := newTestCtl(t, 2)

	s0, err := c.ZeroPage(0)
	require.NoError(t, err)
	s1, err := c.ZeroPage(1)
	require.NoError(t, err)

	_, err = c.ZeroPage(2)
	assert.ErrorIs(t, err, ErrAllFramesPinned)

	c.Release(s0)
	c.Release(s1)

	s2, err := c.ZeroPage(2)
	require.NoError(t, err)
	c.Release(s2)
}

package dsp_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/dsp"
)

func TestBufferMemory(t *testing.T) {
	mem := dsp.NewBufferMemory(16)
	assert.Equal(t, 16, mem.Size())

	require.NoError(t, mem.Write32(0, 0xdeadbeef))
	require.NoError(t, mem.Write32(15, 0x1))
	assert.Equal(t, 2, mem.Writes())

	v, err := mem.Read32(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v)

	assert.Error(t, mem.Write32(16, 0))
	_, err = mem.Read32(16)
	assert.Error(t, err)
	assert.Equal(t, 2, mem.Writes(), "failed writes are not counted")

	snap := mem.Snapshot()
	snap[0] = 0
	v, err = mem.Read32(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v, "snapshot must be a copy")

	var nilMem *dsp.BufferMemory
	assert.Error(t, nilMem.Write32(0, 0))
	assert.Equal(t, 0, nilMem.Size())
	assert.Nil(t, nilMem.Snapshot())
}

func TestBlockAccess(t *testing.T) {
	mem := dsp.NewBufferMemory(8)
	words := []uint32{1, 2, 3, 4}

	require.NoError(t, dsp.WriteBlock(mem, 2, words))

	got, err := dsp.ReadBlock(mem, 2, len(words))
	require.NoError(t, err)
	assert.Equal(t, words, got)
	assert.Equal(t, []uint32{0, 0, 1, 2, 3, 4, 0, 0}, mem.Snapshot())

	err = dsp.WriteBlock(mem, 6, words)
	assert.Error(t, err, "block running past the end must fail")
	assert.Equal(t, uint32(1), mem.Snapshot()[6], "words before the failure are written")

	_, err = dsp.ReadBlock(mem, 6, 4)
	assert.Error(t, err)

	assert.Error(t, dsp.WriteBlock(nil, 0, words))
	_, err = dsp.ReadBlock(nil, 0, 1)
	assert.Error(t, err)
}

func TestMmapMemory(t *testing.T) {
	const words = 1024

	path := filepath.Join(t.TempDir(), "resource1")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(words*4))
	require.NoError(t, f.Close())

	mem, err := dsp.MmapOpen(path, words)
	require.NoError(t, err)
	require.True(t, mem.IsReady())
	assert.Equal(t, words, mem.Size())

	require.NoError(t, mem.Write32(0x200, 0x00a00000))
	v, err := mem.Read32(0x200)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00a00000), v)

	assert.Error(t, mem.Write32(words, 0))
	_, err = mem.Read32(words)
	assert.Error(t, err)

	// Addresses whose byte offset does not fit an int on 32-bit platforms.
	for _, addr := range []uint32{0x40000000, 0x60000000, 0xffffffff} {
		assert.Error(t, mem.Write32(addr, 0xdead), "write at 0x%x", addr)

		_, err = mem.Read32(addr)
		assert.Error(t, err, "read at 0x%x", addr)
	}

	v, err = mem.Read32(0)
	require.NoError(t, err)
	assert.Zero(t, v, "out of range writes must not land on word 0")

	t.Run("GraphOnMapping", func(t *testing.T) {
		symbols, err := dsp.NewSymbolTable(dsp.DefaultSymbols()...)
		require.NoError(t, err)

		g, err := dsp.Open(mem, symbols, nil)
		require.NoError(t, err)

		tm, err := g.CreateTimingMasterSCB("TimingMasterSCB", dsp.TIMINGMASTER_SCB_ADDR, nil)
		require.NoError(t, err)
		require.NoError(t, g.Verify())

		require.NoError(t, g.Remove(tm))
		require.NoError(t, g.Close())
	})

	require.NoError(t, mem.Close())
	assert.False(t, mem.IsReady())
	assert.NoError(t, mem.Close(), "closing twice is a no-op")

	_, err = mem.Read32(0)
	assert.Error(t, err)

	// The mapping is shared, so writes must have reached the file.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00a00000), binary.LittleEndian.Uint32(data[0x200*4:]))
}

func TestMmapOpenInvalid(t *testing.T) {
	_, err := dsp.MmapOpen(filepath.Join(t.TempDir(), "missing"), 16)
	assert.Error(t, err)

	_, err = dsp.MmapOpen(filepath.Join(t.TempDir(), "missing"), 0)
	assert.Error(t, err)
}

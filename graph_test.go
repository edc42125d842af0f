package dsp_test

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/dsp"
)

// TestGraphInvalidParameters checks that nil handles never panic.
func TestGraphInvalidParameters(t *testing.T) {
	var nilGraph *dsp.Graph
	var nilSCB *dsp.SCB

	assert.NotPanics(t, func() {
		assert.NoError(t, nilGraph.Close())
	}, "Close on nil graph should not panic")

	assert.Equal(t, 0, nilGraph.Count())
	assert.Nil(t, nilGraph.Null())
	assert.Nil(t, nilGraph.SCBs())
	assert.Nil(t, nilGraph.Lookup("x"))
	assert.Equal(t, "", nilGraph.String())
	assert.Error(t, nilGraph.Remove(nil))
	assert.Error(t, nilGraph.Check())

	_, err := nilGraph.SCBAt(0)
	assert.Error(t, err)

	_, err = nilGraph.CreateTimingMasterSCB("tm", dsp.TIMINGMASTER_SCB_ADDR, nil)
	assert.Error(t, err)

	assert.Equal(t, "", nilSCB.Name())
	assert.Equal(t, -1, nilSCB.Index())
	assert.Nil(t, nilSCB.Child())
	assert.Nil(t, nilSCB.Sibling())
	assert.Nil(t, nilSCB.Parent())
	assert.False(t, nilSCB.IsRoot())
	assert.False(t, nilSCB.IsNull())
	assert.Equal(t, "<nil>", nilSCB.String())

	_, err = dsp.Open(nil, nil, nil)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	t.Run("WritesNullSCB", func(t *testing.T) {
		g, mem := newGraph(t)

		null := g.Null()
		require.NotNil(t, null)
		assert.True(t, null.IsNull())
		assert.Equal(t, uint32(dsp.NULL_SCB_ADDR), null.Address())
		assert.Equal(t, 0, g.Count(), "the null SCB is not counted")
		assert.Equal(t, link(dsp.NULL_SCB_ADDR, dsp.NULL_SCB_ADDR), linkWord(t, mem, null))
		assert.NoError(t, g.Verify())
	})

	t.Run("MissingNullTask", func(t *testing.T) {
		symbols, err := dsp.NewSymbolTable(dsp.Symbol{Name: dsp.TaskMixer, Address: 0xa0, Kind: dsp.SYMBOL_CODE})
		require.NoError(t, err)

		_, err = dsp.Open(dsp.NewBufferMemory(memoryWords), symbols, nil)
		assert.ErrorIs(t, err, dsp.ErrSymbolNotFound)
	})

	t.Run("NullAddressOutOfRange", func(t *testing.T) {
		symbols, err := dsp.NewSymbolTable(dsp.DefaultSymbols()...)
		require.NoError(t, err)

		_, err = dsp.Open(dsp.NewBufferMemory(0x100), symbols, &dsp.Config{NullAddress: 0x200})
		assert.Error(t, err)
	})

	t.Run("DefaultConfig", func(t *testing.T) {
		symbols, err := dsp.NewSymbolTable(dsp.DefaultSymbols()...)
		require.NoError(t, err)

		g, err := dsp.Open(dsp.NewBufferMemory(memoryWords), symbols, nil)
		require.NoError(t, err)
		defer g.Close()

		assert.Equal(t, dsp.DefaultConfig(), g.Config())
		assert.Same(t, symbols, g.Symbols())
	})
}

// buildScenario creates a timing master root with a codec output child and a mixer as the codec output's sibling.
func buildScenario(t *testing.T, g *dsp.Graph) (tm, codecOut, mixer *dsp.SCB) {
	t.Helper()

	tm, err := g.CreateTimingMasterSCB("TimingMasterSCB", dsp.TIMINGMASTER_SCB_ADDR, nil)
	require.NoError(t, err)

	codecOut, err = g.CreateCodecOutputSCB("CodecOutSCB_I", dsp.CODECOUT_SCB_ADDR, nil, tm, dsp.AsChild)
	require.NoError(t, err)

	mixer, err = g.CreateMixerOnlySCB("MasterMixerSCB", dsp.MASTERMIX_SCB_ADDR, nil, codecOut, dsp.AsSibling)
	require.NoError(t, err)

	return tm, codecOut, mixer
}

func TestGraphScenario(t *testing.T) {
	g, mem := newGraph(t)
	tm, codecOut, mixer := buildScenario(t, g)

	t.Run("Build", func(t *testing.T) {
		assert.Equal(t, 3, g.Count())
		assert.Same(t, codecOut, tm.Child())
		assert.Nil(t, tm.Sibling())
		assert.Same(t, mixer, codecOut.Sibling())
		assert.Nil(t, codecOut.Child())
		assert.Nil(t, mixer.Sibling())
		assert.Nil(t, mixer.Child())
		assert.Same(t, tm, codecOut.Parent())
		assert.Same(t, codecOut, mixer.Parent())
		assert.Equal(t, []*dsp.SCB{tm}, g.Roots())

		assert.Equal(t, link(dsp.CODECOUT_SCB_ADDR, dsp.NULL_SCB_ADDR), linkWord(t, mem, tm))
		assert.Equal(t, link(dsp.NULL_SCB_ADDR, dsp.MASTERMIX_SCB_ADDR), linkWord(t, mem, codecOut))
		assert.Equal(t, link(dsp.NULL_SCB_ADDR, dsp.NULL_SCB_ADDR), linkWord(t, mem, mixer))
		assert.NoError(t, g.Verify())
		requireDense(t, g)
	})

	t.Run("RemoveRootWithChildren", func(t *testing.T) {
		before := mem.Snapshot()

		err := g.Remove(tm)
		require.ErrorIs(t, err, dsp.ErrHasChildren)

		assert.Equal(t, 3, g.Count())
		assert.Same(t, codecOut, tm.Child())
		assert.Equal(t, before, mem.Snapshot(), "a rejected removal must not touch DSP memory")
	})

	t.Run("RemoveLeafMixer", func(t *testing.T) {
		require.NoError(t, g.Remove(mixer))

		assert.Equal(t, 2, g.Count())
		assert.Nil(t, codecOut.Sibling())
		assert.Equal(t, link(dsp.NULL_SCB_ADDR, dsp.NULL_SCB_ADDR), linkWord(t, mem, codecOut))
		assert.Equal(t, 0, tm.Index())
		assert.Equal(t, 1, codecOut.Index())
		assert.Equal(t, -1, mixer.Index())
		requireDense(t, g)
		assert.NoError(t, g.Verify())
	})

	t.Run("RemoveTwice", func(t *testing.T) {
		assert.ErrorIs(t, g.Remove(mixer), dsp.ErrInvalidSCB)
		assert.Equal(t, 2, g.Count())
	})

	t.Run("TearDown", func(t *testing.T) {
		require.NoError(t, g.Remove(codecOut))
		assert.Equal(t, link(dsp.NULL_SCB_ADDR, dsp.NULL_SCB_ADDR), linkWord(t, mem, tm))
		require.NoError(t, g.Remove(tm))
		assert.Equal(t, 0, g.Count())
	})
}

func TestRemoveCompactsIndices(t *testing.T) {
	g, _ := newGraph(t)
	tm, codecOut, mixer := buildScenario(t, g)

	// A leaf under the mixer.
	src, err := g.CreateSRCTaskSCB("SrcTaskSCB", dsp.SRCTASK_SCB_ADDR, &dsp.SRCParams{Format: format(2, 44100)}, mixer, dsp.AsChild)
	require.NoError(t, err)

	addresses := map[*dsp.SCB]uint32{}
	for _, s := range g.SCBs() {
		addresses[s] = s.Address()
	}

	// Remove the SRC (index 3), then the mixer (index 2): the others keep their addresses and links.
	require.NoError(t, g.Remove(src))
	require.NoError(t, g.Remove(mixer))

	assert.Equal(t, 2, g.Count())
	requireDense(t, g)

	for _, s := range g.SCBs() {
		assert.Equal(t, addresses[s], s.Address())
	}

	assert.Same(t, codecOut, tm.Child())
}

func TestRemoveMiddleIndexShiftsDown(t *testing.T) {
	g, _ := newGraph(t)

	a, err := g.CreateTimingMasterSCB("a", 0x100, nil)
	require.NoError(t, err)
	b, err := g.CreateTimingMasterSCB("b", 0x200, nil)
	require.NoError(t, err)
	c, err := g.CreateTimingMasterSCB("c", 0x300, nil)
	require.NoError(t, err)

	require.NoError(t, g.Remove(b))

	assert.Equal(t, 0, a.Index())
	assert.Equal(t, 1, c.Index())
	assert.Equal(t, uint32(0x300), c.Address())

	got, err := g.SCBAt(1)
	require.NoError(t, err)
	assert.Same(t, c, got)
	requireDense(t, g)
}

func TestAttachOccupiedSlot(t *testing.T) {
	g, mem := newGraph(t)
	tm, codecOut, _ := buildScenario(t, g)

	before := mem.Snapshot()
	count := g.Count()

	_, err := g.CreateCodecInputSCB("CodecInSCB", dsp.CODECIN_SCB_ADDR, nil, tm, dsp.AsChild)
	require.ErrorIs(t, err, dsp.ErrSlotOccupied)

	assert.Same(t, codecOut, tm.Child(), "the existing link must be kept")
	assert.Equal(t, count, g.Count(), "nothing may be allocated")
	assert.Equal(t, before, mem.Snapshot(), "nothing may be written")
	assert.Nil(t, g.Lookup("CodecInSCB"))

	// Chaining through the occupant works.
	ci, err := g.CreateCodecInputSCB("CodecInSCB", dsp.CODECIN_SCB_ADDR, nil, tm, dsp.AsSibling)
	require.NoError(t, err)
	assert.Same(t, ci, tm.Sibling())
}

func TestCreateUnknownSymbol(t *testing.T) {
	symbols, err := dsp.NewSymbolTable(
		dsp.Symbol{Name: dsp.TaskNull, Address: 0x0, Kind: dsp.SYMBOL_CODE},
		dsp.Symbol{Name: dsp.TaskTimingMaster, Address: 0x10, Kind: dsp.SYMBOL_CODE},
		dsp.Symbol{Name: "SOMEPARAM", Address: 0x800, Kind: dsp.SYMBOL_PARAMETER},
	)
	require.NoError(t, err)

	mem := dsp.NewBufferMemory(memoryWords)
	g, err := dsp.Open(mem, symbols, &dsp.Config{Paranoid: true})
	require.NoError(t, err)
	defer g.Close()

	tm, err := g.CreateTimingMasterSCB("TimingMasterSCB", dsp.TIMINGMASTER_SCB_ADDR, nil)
	require.NoError(t, err)

	before := mem.Snapshot()

	_, err = g.CreateMixerOnlySCB("MasterMixerSCB", dsp.MASTERMIX_SCB_ADDR, nil, tm, dsp.AsChild)
	require.ErrorIs(t, err, dsp.ErrSymbolNotFound)

	assert.Equal(t, 1, g.Count())
	assert.Nil(t, tm.Child())
	assert.Equal(t, before, mem.Snapshot())

	// A symbol of the wrong kind does not resolve either.
	_, err = g.CreateGenericSCB("param", "SOMEPARAM", 0x200, make(dsp.Payload, dsp.SCBMinWords), nil, dsp.AsChild)
	assert.ErrorIs(t, err, dsp.ErrSymbolNotFound)
}

func TestCreateRemoveRoundTrip(t *testing.T) {
	g, mem := newGraph(t)
	tm, codecOut, mixer := buildScenario(t, g)

	scbsBefore := g.SCBs()
	indices := []int{tm.Index(), codecOut.Index(), mixer.Index()}
	linksBefore := []uint32{linkWord(t, mem, tm), linkWord(t, mem, codecOut), linkWord(t, mem, mixer)}

	src, err := g.CreateSRCTaskSCB("SrcTaskSCB", dsp.SRCTASK_SCB_ADDR, &dsp.SRCParams{Format: format(2, 22050)}, mixer, dsp.AsChild)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Count())

	require.NoError(t, g.Remove(src))

	assert.Equal(t, scbsBefore, g.SCBs())
	assert.Equal(t, indices, []int{tm.Index(), codecOut.Index(), mixer.Index()})
	assert.Equal(t, linksBefore, []uint32{linkWord(t, mem, tm), linkWord(t, mem, codecOut), linkWord(t, mem, mixer)})
	assert.NoError(t, g.Verify())
}

func TestCreateAddressConflicts(t *testing.T) {
	g, _ := newGraph(t)
	tm, _, _ := buildScenario(t, g)

	t.Run("SameAddress", func(t *testing.T) {
		_, err := g.CreateTimingMasterSCB("dup", dsp.CODECOUT_SCB_ADDR, nil)
		assert.ErrorIs(t, err, dsp.ErrAddressInUse)
	})

	t.Run("Overlap", func(t *testing.T) {
		_, err := g.CreateTimingMasterSCB("overlap", dsp.CODECOUT_SCB_ADDR+4, nil)
		assert.ErrorIs(t, err, dsp.ErrAddressInUse)
	})

	t.Run("NullSCB", func(t *testing.T) {
		_, err := g.CreateTimingMasterSCB("null", dsp.NULL_SCB_ADDR, nil)
		assert.ErrorIs(t, err, dsp.ErrAddressInUse)
	})

	t.Run("NullParent", func(t *testing.T) {
		_, err := g.CreateMixerOnlySCB("m", 0x300, nil, g.Null(), dsp.AsChild)
		assert.ErrorIs(t, err, dsp.ErrInvalidSCB)
	})

	t.Run("InvalidSlot", func(t *testing.T) {
		_, err := g.CreateMixerOnlySCB("m", 0x300, nil, tm, dsp.Slot(7))
		assert.ErrorIs(t, err, dsp.ErrInvalidParams)
	})

	assert.Equal(t, 3, g.Count())
	requireDense(t, g)
}

func TestCreateBeyondLinkRange(t *testing.T) {
	symbols, err := dsp.NewSymbolTable(dsp.DefaultSymbols()...)
	require.NoError(t, err)

	// Large enough that every write would succeed.
	mem := dsp.NewBufferMemory(0x20000)
	g, err := dsp.Open(mem, symbols, &dsp.Config{Paranoid: true})
	require.NoError(t, err)
	defer g.Close()

	_, codecOut, _ := buildScenario(t, g)
	before := mem.Snapshot()
	writes := mem.Writes()

	testCases := []struct {
		name    string
		address uint32
	}{
		{"AliasesTimingMaster", 0x10010},
		{"StraddlesLimit", dsp.SCBAddressLimit - 8},
		{"Wraps", 0xfffffff8},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := g.CreateMixerOnlySCB("far", tc.address, nil, codecOut, dsp.AsChild)
			assert.ErrorIs(t, err, dsp.ErrInvalidParams)
			assert.Nil(t, s)
			assert.Nil(t, codecOut.Child())
			assert.Equal(t, 3, g.Count())
			assert.Equal(t, writes, mem.Writes(), "nothing may be written")
			assert.Equal(t, before, mem.Snapshot())
		})
	}

	t.Run("EndsAtLimit", func(t *testing.T) {
		s, err := g.CreateMixerOnlySCB("last", dsp.SCBAddressLimit-dsp.SCBMinWords, nil, codecOut, dsp.AsChild)
		require.NoError(t, err)
		assert.Equal(t, link(s.Address(), dsp.MASTERMIX_SCB_ADDR), linkWord(t, mem, codecOut))
		require.NoError(t, g.Verify())
	})
}

func TestOpenNullBeyondLinkRange(t *testing.T) {
	symbols, err := dsp.NewSymbolTable(dsp.DefaultSymbols()...)
	require.NoError(t, err)

	for _, addr := range []uint32{dsp.SCBAddressLimit, dsp.SCBAddressLimit - 4, 0xfffffff8} {
		mem := dsp.NewBufferMemory(0x20000)

		g, err := dsp.Open(mem, symbols, &dsp.Config{NullAddress: addr})
		assert.ErrorIs(t, err, dsp.ErrInvalidParams, "null SCB at 0x%x", addr)
		assert.Nil(t, g)
		assert.Zero(t, mem.Writes())
	}
}

func TestArenaExhausted(t *testing.T) {
	symbols, err := dsp.NewSymbolTable(dsp.DefaultSymbols()...)
	require.NoError(t, err)

	g, err := dsp.Open(dsp.NewBufferMemory(memoryWords), symbols, &dsp.Config{MaxSCBs: 2})
	require.NoError(t, err)
	defer g.Close()

	_, err = g.CreateTimingMasterSCB("a", 0x100, nil)
	require.NoError(t, err)
	_, err = g.CreateTimingMasterSCB("b", 0x200, nil)
	require.NoError(t, err)

	_, err = g.CreateTimingMasterSCB("c", 0x300, nil)
	assert.ErrorIs(t, err, dsp.ErrArenaExhausted)
	assert.Equal(t, 2, g.Count())
}

// failingMemory rejects writes to one address.
type failingMemory struct {
	*dsp.BufferMemory
	fail uint32
}

func (m *failingMemory) Write32(addr, value uint32) error {
	if addr == m.fail {
		return errors.New("bus error")
	}

	return m.BufferMemory.Write32(addr, value)
}

func TestCreateRollsBackOnWriteFailure(t *testing.T) {
	symbols, err := dsp.NewSymbolTable(dsp.DefaultSymbols()...)
	require.NoError(t, err)

	t.Run("PayloadWrite", func(t *testing.T) {
		mem := &failingMemory{BufferMemory: dsp.NewBufferMemory(memoryWords), fail: 0x205}
		g, err := dsp.Open(mem, symbols, &dsp.Config{Paranoid: true})
		require.NoError(t, err)

		_, err = g.CreateTimingMasterSCB("bad", 0x200, nil)
		require.Error(t, err)
		assert.Equal(t, 0, g.Count())

		for i := uint32(0); i < 5; i++ {
			w, err := mem.Read32(0x200 + i)
			require.NoError(t, err)
			assert.Zero(t, w, "partial payload must be scrubbed")
		}
	})

	t.Run("ParentLinkWrite", func(t *testing.T) {
		mem := &failingMemory{BufferMemory: dsp.NewBufferMemory(memoryWords), fail: 0x100 + dsp.SCBsubListPtr}
		g, err := dsp.Open(mem, symbols, &dsp.Config{Paranoid: true})
		require.NoError(t, err)

		// The parent's own payload covers the failing word, so let its creation through first.
		mem.fail = 0xffff
		parent, err := g.CreateMixerOnlySCB("parent", 0x100, nil, nil, dsp.AsChild)
		require.NoError(t, err)
		mem.fail = 0x100 + dsp.SCBsubListPtr

		_, err = g.CreateMixerOnlySCB("child", 0x200, nil, parent, dsp.AsChild)
		require.Error(t, err)

		assert.Equal(t, 1, g.Count())
		assert.Nil(t, parent.Child())
		assert.NoError(t, g.Check())
		assert.NoError(t, g.Verify())
	})

	t.Run("OutOfRange", func(t *testing.T) {
		g, err := dsp.Open(dsp.NewBufferMemory(0x100), symbols, nil)
		require.NoError(t, err)

		_, err = g.CreateTimingMasterSCB("far", 0x1000, nil)
		require.Error(t, err)
		assert.Equal(t, 0, g.Count())
	})
}

func TestRemoveRestoresParentOnWriteFailure(t *testing.T) {
	symbols, err := dsp.NewSymbolTable(dsp.DefaultSymbols()...)
	require.NoError(t, err)

	mem := &failingMemory{BufferMemory: dsp.NewBufferMemory(memoryWords), fail: 0xffff}
	g, err := dsp.Open(mem, symbols, &dsp.Config{Paranoid: true})
	require.NoError(t, err)

	tm, codecOut, _ := buildScenario(t, g)
	mixer := codecOut.Sibling()

	mem.fail = codecOut.Address() + dsp.SCBsubListPtr
	require.Error(t, g.Remove(mixer))

	assert.Equal(t, 3, g.Count())
	assert.Same(t, mixer, codecOut.Sibling())
	assert.Same(t, codecOut, tm.Child())
	assert.NoError(t, g.Check())
}

func TestClose(t *testing.T) {
	g, mem := newGraph(t)
	tm, _, _ := buildScenario(t, g)

	require.NoError(t, g.Close())
	assert.Equal(t, 0, g.Count())
	assert.Equal(t, link(dsp.NULL_SCB_ADDR, dsp.NULL_SCB_ADDR), linkWord(t, mem, tm))

	_, err := g.CreateTimingMasterSCB("late", 0x200, nil)
	assert.ErrorIs(t, err, dsp.ErrClosed)
	assert.ErrorIs(t, g.Remove(tm), dsp.ErrClosed)
	assert.NoError(t, g.Close(), "closing twice is a no-op")
}

func TestForeignSCB(t *testing.T) {
	g1, _ := newGraph(t)
	g2, _ := newGraph(t)

	tm, err := g1.CreateTimingMasterSCB("tm", dsp.TIMINGMASTER_SCB_ADDR, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, g2.Remove(tm), dsp.ErrInvalidSCB)

	_, err = g2.CreateMixerOnlySCB("m", dsp.MASTERMIX_SCB_ADDR, nil, tm, dsp.AsChild)
	assert.ErrorIs(t, err, dsp.ErrInvalidSCB)
	assert.Equal(t, 0, g2.Count())
}

func TestGraphString(t *testing.T) {
	g, _ := newGraph(t)
	tm, _, mixer := buildScenario(t, g)

	_, err := g.CreateSRCTaskSCB("SrcTaskSCB", dsp.SRCTASK_SCB_ADDR, &dsp.SRCParams{Format: format(2, 44100)}, mixer, dsp.AsChild)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(g.String()), "\n")
	require.Len(t, lines, 5)

	assert.Contains(t, lines[0], "4 SCBs")
	assert.True(t, strings.HasPrefix(lines[1], "   0: TimingMasterSCB"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "     1: CodecOutSCB_I"), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "     2: MasterMixerSCB"), lines[3])
	assert.True(t, strings.HasPrefix(lines[4], "       3: SrcTaskSCB"), lines[4])
	assert.Same(t, tm, g.Lookup("TimingMasterSCB"))

	var sb strings.Builder
	n, err := g.WriteTo(&sb)
	require.NoError(t, err)
	assert.Equal(t, int64(sb.Len()), n)
}

func TestVerifyDetectsDrift(t *testing.T) {
	g, mem := newGraph(t)
	_, codecOut, _ := buildScenario(t, g)

	require.NoError(t, mem.Write32(codecOut.Address()+dsp.SCBsubListPtr, 0xdeadbeef))
	assert.ErrorIs(t, g.Verify(), dsp.ErrOutOfSync)
}

// TestRandomOperations drives random create/remove sequences and checks the invariants after every step.
func TestRandomOperations(t *testing.T) {
	g, mem := newGraph(t)
	rng := rand.New(rand.NewSource(1))

	next := uint32(0x100)
	for step := 0; step < 500; step++ {
		scbs := g.SCBs()

		if len(scbs) == 0 || rng.Intn(3) > 0 {
			var parent *dsp.SCB
			slot := dsp.Slot(rng.Intn(2))
			if len(scbs) > 0 && rng.Intn(4) > 0 {
				parent = scbs[rng.Intn(len(scbs))]
			}

			count := g.Count()
			_, err := g.CreateMixerOnlySCB("mixer", next, nil, parent, slot)
			if err != nil {
				require.True(t, errors.Is(err, dsp.ErrSlotOccupied) || errors.Is(err, dsp.ErrArenaExhausted), "unexpected error: %v", err)
				require.Equal(t, count, g.Count())
			} else {
				next += dsp.SCBMinWords
			}
		} else {
			s := scbs[rng.Intn(len(scbs))]
			count := g.Count()

			err := g.Remove(s)
			if s.Child() != nil || s.Sibling() != nil {
				require.ErrorIs(t, err, dsp.ErrHasChildren)
				require.Equal(t, count, g.Count())
			} else if err != nil {
				t.Fatalf("removing leaf %s: %v", s.Name(), err)
			} else {
				require.Equal(t, count-1, g.Count())
			}
		}

		requireDense(t, g)

		live := map[uint32]bool{g.Null().Address(): true}
		for _, s := range g.SCBs() {
			live[s.Address()] = true
		}

		for _, s := range g.SCBs() {
			w := linkWord(t, mem, s)
			assert.True(t, live[w>>16], "child link of %s dangles", s.Name())
			assert.True(t, live[w&0xffff], "sibling link of %s dangles", s.Name())
			assert.True(t, s.IsRoot() || s.Parent().Child() == s || s.Parent().Sibling() == s)
		}
	}

	require.NoError(t, g.Verify())
}

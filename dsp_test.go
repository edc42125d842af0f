package dsp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gen2brain/dsp"
)

// memoryWords is the size of the simulated DSP memory used by the tests.
const memoryWords = 0x4000

// newGraph opens a paranoid graph on a fresh simulated DSP memory with the stock symbols.
func newGraph(t *testing.T) (*dsp.Graph, *dsp.BufferMemory) {
	t.Helper()

	symbols, err := dsp.NewSymbolTable(dsp.DefaultSymbols()...)
	require.NoError(t, err)

	mem := dsp.NewBufferMemory(memoryWords)
	g, err := dsp.Open(mem, symbols, &dsp.Config{Paranoid: true})
	require.NoError(t, err)

	t.Cleanup(func() { _ = g.Close() })

	return g, mem
}

// requireDense checks that the live SCB indices are exactly 0..count-1.
func requireDense(t *testing.T, g *dsp.Graph) {
	t.Helper()

	for i, s := range g.SCBs() {
		require.Equal(t, i, s.Index(), "SCB %s has a gap in its index", s.Name())
	}

	require.NoError(t, g.Check())
}

// linkWord reads the link word of s from DSP memory.
func linkWord(t *testing.T, mem dsp.Memory, s *dsp.SCB) uint32 {
	t.Helper()

	w, err := mem.Read32(s.Address() + dsp.SCBsubListPtr)
	require.NoError(t, err)

	return w
}

// link encodes a link word the way the DSP expects it.
func link(child, sibling uint32) uint32 {
	return child<<16 | sibling
}

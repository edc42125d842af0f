package dsp

import (
	"fmt"
)

// Memory is raw access to DSP task memory.
// Addresses are DSP-local word addresses, not host memory addresses.
type Memory interface {
	Read32(addr uint32) (uint32, error)
	Write32(addr uint32, value uint32) error
}

// WriteBlock writes consecutive words starting at addr.
func WriteBlock(mem Memory, addr uint32, words []uint32) error {
	if mem == nil {
		return fmt.Errorf("memory is nil")
	}

	for i, w := range words {
		if err := mem.Write32(addr+uint32(i), w); err != nil {
			return fmt.Errorf("block write at 0x%04x failed: %w", addr+uint32(i), err)
		}
	}

	return nil
}

// ReadBlock reads n consecutive words starting at addr.
func ReadBlock(mem Memory, addr uint32, n int) ([]uint32, error) {
	if mem == nil {
		return nil, fmt.Errorf("memory is nil")
	}

	words := make([]uint32, n)
	for i := range words {
		w, err := mem.Read32(addr + uint32(i))
		if err != nil {
			return nil, fmt.Errorf("block read at 0x%04x failed: %w", addr+uint32(i), err)
		}

		words[i] = w
	}

	return words, nil
}

// BufferMemory is DSP task memory backed by a host slice.
// It is used for dry runs and tests, and counts the writes it receives.
type BufferMemory struct {
	words  []uint32
	writes int
}

// NewBufferMemory allocates a zeroed memory image of the given size in words.
func NewBufferMemory(words int) *BufferMemory {
	return &BufferMemory{words: make([]uint32, words)}
}

// Read32 returns the word at addr.
func (m *BufferMemory) Read32(addr uint32) (uint32, error) {
	if m == nil {
		return 0, fmt.Errorf("memory is nil")
	}

	if addr >= uint32(len(m.words)) {
		return 0, fmt.Errorf("address 0x%04x out of range (size 0x%04x)", addr, len(m.words))
	}

	return m.words[addr], nil
}

// Write32 stores value at addr.
func (m *BufferMemory) Write32(addr uint32, value uint32) error {
	if m == nil {
		return fmt.Errorf("memory is nil")
	}

	if addr >= uint32(len(m.words)) {
		return fmt.Errorf("address 0x%04x out of range (size 0x%04x)", addr, len(m.words))
	}

	m.words[addr] = value
	m.writes++

	return nil
}

// Size returns the size of the memory image in words.
func (m *BufferMemory) Size() int {
	if m == nil {
		return 0
	}

	return len(m.words)
}

// Writes returns the number of Write32 calls that succeeded.
func (m *BufferMemory) Writes() int {
	if m == nil {
		return 0
	}

	return m.writes
}

// Snapshot returns a copy of the memory image.
func (m *BufferMemory) Snapshot() []uint32 {
	if m == nil {
		return nil
	}

	out := make([]uint32, len(m.words))
	copy(out, m.words)

	return out
}

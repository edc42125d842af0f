package dsp

import (
	"fmt"
)

// Payload is the parameter block of a task as laid out in DSP memory, one element per DSP word.
// Apart from the link word and the entry word, its layout is owned by the task type.
type Payload []uint32

// Clone returns a copy of the payload.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}

	out := make(Payload, len(p))
	copy(out, p)

	return out
}

// SCB is the host-side descriptor of one Stream Control Block running on the DSP.
type SCB struct {
	name    string
	index   int
	address uint32
	entry   Symbol
	parent  *SCB
	child   *SCB
	sibling *SCB
	payload Payload
	volume  int // Word offset of the volume word, or -1
	graph   *Graph
	removed bool
}

// Name returns the debugging label of the SCB.
func (s *SCB) Name() string {
	if s == nil {
		return ""
	}

	return s.name
}

// Index returns the position of the SCB in the arena.
// Indices are dense and change when lower-indexed SCBs are removed.
func (s *SCB) Index() int {
	if s == nil {
		return -1
	}

	return s.index
}

// Address returns the DSP task memory address of the SCB.
func (s *SCB) Address() uint32 {
	if s == nil {
		return ^uint32(0)
	}

	return s.address
}

// Entry returns the resolved task entry point.
func (s *SCB) Entry() Symbol {
	if s == nil {
		return Symbol{}
	}

	return s.entry
}

// Parent returns the SCB this one is attached to, or nil for a root.
func (s *SCB) Parent() *SCB {
	if s == nil {
		return nil
	}

	return s.parent
}

// Child returns the first SCB on the sub-list, or nil.
func (s *SCB) Child() *SCB {
	if s == nil {
		return nil
	}

	return s.child
}

// Sibling returns the next SCB at the same level, or nil.
func (s *SCB) Sibling() *SCB {
	if s == nil {
		return nil
	}

	return s.sibling
}

// Payload returns a copy of the SCB's parameter block as last written to the DSP.
func (s *SCB) Payload() Payload {
	if s == nil {
		return nil
	}

	return s.payload.Clone()
}

// IsRoot reports whether the SCB has no parent.
func (s *SCB) IsRoot() bool {
	return s != nil && s.parent == nil
}

// IsLeaf reports whether nothing is attached to the SCB.
func (s *SCB) IsLeaf() bool {
	return s != nil && s.child == nil && s.sibling == nil
}

// IsNull reports whether the SCB is the graph's null SCB.
func (s *SCB) IsNull() bool {
	return s != nil && s.graph != nil && s.graph.null == s
}

// String returns a human-readable representation of the SCB.
func (s *SCB) String() string {
	if s == nil {
		return "<nil>"
	}

	return fmt.Sprintf("%s [0x%04x] %s@0x%04x", s.name, s.address, s.entry.Name, s.entry.Address)
}

func (s *SCB) setLink(slot Slot, target *SCB) {
	if slot == AsChild {
		s.child = target
	} else {
		s.sibling = target
	}
}

func (s *SCB) link(slot Slot) *SCB {
	if slot == AsChild {
		return s.child
	}

	return s.sibling
}

// end returns the first address past the SCB's payload.
func (s *SCB) end() uint32 {
	return s.address + uint32(len(s.payload))
}

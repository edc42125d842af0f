package dsp

import (
	"fmt"
	"io"
	"strings"
)

// Config holds the limits of an SCB graph.
type Config struct {
	MaxSCBs     int    // Maximum number of live SCBs, excluding the null SCB
	MaxSCBWords int    // Maximum payload size of a single SCB in words
	NullAddress uint32 // DSP address of the null SCB
	Paranoid    bool   // Run Check after every structural change
}

// DefaultConfig returns the limits used when Open is called with a nil config.
func DefaultConfig() Config {
	return Config{
		MaxSCBs:     defaultMaxSCBs,
		MaxSCBWords: defaultMaxSCBWords,
		NullAddress: NULL_SCB_ADDR,
	}
}

// Graph is the host-side mirror of the SCB task graph of one DSP.
//
// Graph performs no locking. All structural operations (create, remove, close) must be serialized by the caller,
// typically under the per-card lock; the whole graph is a single critical resource.
type Graph struct {
	mem     Memory
	symbols *SymbolTable
	config  Config
	arena   *arena
	null    *SCB
	closed  bool
}

// Open initializes an SCB graph on the given DSP memory.
// It creates the null SCB, whose address encodes "no child" and "no sibling" in every link word, and writes it to the DSP.
func Open(mem Memory, symbols *SymbolTable, config *Config) (*Graph, error) {
	if mem == nil {
		return nil, fmt.Errorf("memory is nil")
	}

	if symbols == nil {
		return nil, fmt.Errorf("symbol table is nil")
	}

	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
		if cfg.MaxSCBs <= 0 {
			cfg.MaxSCBs = defaultMaxSCBs
		}

		if cfg.MaxSCBWords < SCBMinWords {
			cfg.MaxSCBWords = defaultMaxSCBWords
		}
	}

	if err := inRange("nullSCB", cfg.NullAddress, SCBMinWords); err != nil {
		return nil, fmt.Errorf("invalid null SCB address: %w", err)
	}

	entry, err := symbols.Lookup(TaskNull, SYMBOL_CODE)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve null task: %w", err)
	}

	g := &Graph{
		mem:     mem,
		symbols: symbols,
		config:  cfg,
		arena:   newArena(cfg.MaxSCBs),
	}

	null := &SCB{
		name:    "nullSCB",
		index:   -1,
		address: cfg.NullAddress,
		entry:   entry,
		payload: make(Payload, SCBMinWords),
		volume:  -1,
		graph:   g,
	}

	null.payload[SCBsubListPtr] = null.address<<16 | null.address
	null.payload[SCBfuncEntryPtr] = entry.Address & 0xffff

	if err := WriteBlock(mem, null.address, null.payload); err != nil {
		return nil, fmt.Errorf("failed to write null SCB: %w", err)
	}

	g.null = null
	g.arena.reserved = null

	return g, nil
}

// Close removes every remaining SCB leaf-first and releases the graph.
// The null SCB is left in DSP memory so that any stale link still resolves.
func (g *Graph) Close() error {
	if g == nil || g.closed {
		return nil
	}

	for g.arena.count() > 0 {
		var leaf *SCB
		for i := g.arena.count() - 1; i >= 0; i-- {
			if s := g.arena.scbs[i]; s.IsLeaf() {
				leaf = s

				break
			}
		}

		if leaf == nil {
			return scbErrorf(ErrHasChildren, "", "no removable SCB among %d", g.arena.count())
		}

		if err := g.detach(leaf); err != nil {
			return fmt.Errorf("failed to remove %s: %w", leaf.name, err)
		}
	}

	g.closed = true

	return nil
}

// Null returns the null SCB.
func (g *Graph) Null() *SCB {
	if g == nil {
		return nil
	}

	return g.null
}

// Config returns a copy of the graph's configuration.
func (g *Graph) Config() Config {
	if g == nil {
		return Config{}
	}

	return g.config
}

// Symbols returns the symbol table the graph resolves task entry points with.
func (g *Graph) Symbols() *SymbolTable {
	if g == nil {
		return nil
	}

	return g.symbols
}

// Count returns the number of live SCBs, not counting the null SCB.
func (g *Graph) Count() int {
	if g == nil {
		return 0
	}

	return g.arena.count()
}

// SCBAt returns the SCB at the given arena index.
func (g *Graph) SCBAt(index int) (*SCB, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is nil")
	}

	if index < 0 || index >= g.arena.count() {
		return nil, fmt.Errorf("index %d is out of bounds (number of SCBs: %d)", index, g.arena.count())
	}

	return g.arena.scbs[index], nil
}

// SCBs returns the live SCBs in index order.
func (g *Graph) SCBs() []*SCB {
	if g == nil {
		return nil
	}

	out := make([]*SCB, g.arena.count())
	copy(out, g.arena.scbs)

	return out
}

// Lookup returns the first live SCB with the given name, or nil.
func (g *Graph) Lookup(name string) *SCB {
	if g == nil {
		return nil
	}

	for _, s := range g.arena.scbs {
		if s.name == name {
			return s
		}
	}

	return nil
}

// Roots returns the SCBs that have no parent, in index order.
func (g *Graph) Roots() []*SCB {
	if g == nil {
		return nil
	}

	var roots []*SCB
	for _, s := range g.arena.scbs {
		if s.parent == nil {
			roots = append(roots, s)
		}
	}

	return roots
}

// Remove unlinks a leaf SCB from its parent, commits the parent's link word and drops the SCB from the arena.
// SCBs that still have a child or sibling attached are rejected with ErrHasChildren.
func (g *Graph) Remove(s *SCB) error {
	if err := g.usable(); err != nil {
		return err
	}

	if err := g.live(s); err != nil {
		return err
	}

	if err := g.detach(s); err != nil {
		return err
	}

	return g.paranoia()
}

// usable checks that the graph can be mutated.
func (g *Graph) usable() error {
	if g == nil {
		return fmt.Errorf("graph is nil")
	}

	if g.closed {
		return ErrClosed
	}

	return nil
}

// live checks that s is a live, non-null SCB of this graph.
func (g *Graph) live(s *SCB) error {
	if s == nil {
		return scbErrorf(ErrInvalidSCB, "", "scb is nil")
	}

	if s == g.null {
		return scbErrorf(ErrInvalidSCB, s.name, "the null SCB cannot be modified")
	}

	if s.graph != g || s.removed || !g.arena.contains(s) {
		return scbErrorf(ErrInvalidSCB, s.name, "not a live SCB of this graph")
	}

	return nil
}

// linkAddr returns the DSP address encoding of a link.
func (g *Graph) linkAddr(s *SCB) uint32 {
	if s == nil {
		return g.null.address
	}

	return s.address
}

// linkWord encodes the sub-list and next-SCB pointers of s as one DSP word.
func (g *Graph) linkWord(s *SCB) uint32 {
	return (g.linkAddr(s.child)&0xffff)<<16 | g.linkAddr(s.sibling)&0xffff
}

// commitLink writes the link word of s to the DSP in a single write and records it in the mirror.
func (g *Graph) commitLink(s *SCB) error {
	word := g.linkWord(s)
	if err := g.mem.Write32(s.address+SCBsubListPtr, word); err != nil {
		return fmt.Errorf("failed to write link word of %s: %w", s.name, err)
	}

	s.payload[SCBsubListPtr] = word

	return nil
}

// checkSlot verifies that the given slot of parent is free.
func (g *Graph) checkSlot(parent *SCB, slot Slot) error {
	if slot != AsChild && slot != AsSibling {
		return scbErrorf(ErrInvalidParams, parent.name, "unknown slot %d", slot)
	}

	if o := parent.link(slot); o != nil {
		return scbErrorf(ErrSlotOccupied, parent.name, "%s slot holds %s", slot, o.name)
	}

	return nil
}

// attach links child into the given slot of parent and commits the parent's link word.
// If the slot is occupied or the commit fails, neither SCB is changed.
func (g *Graph) attach(child, parent *SCB, slot Slot) error {
	if err := g.checkSlot(parent, slot); err != nil {
		return err
	}

	parent.setLink(slot, child)
	if err := g.commitLink(parent); err != nil {
		parent.setLink(slot, nil)

		return err
	}

	child.parent = parent

	return nil
}

// detach unlinks a leaf SCB from its parent and removes it from the arena.
func (g *Graph) detach(s *SCB) error {
	if s.child != nil || s.sibling != nil {
		return scbErrorf(ErrHasChildren, s.name, "child %s, sibling %s", s.child.Name(), s.sibling.Name())
	}

	if p := s.parent; p != nil {
		var slot Slot
		switch s {
		case p.child:
			slot = AsChild
		case p.sibling:
			slot = AsSibling
		default:
			return scbErrorf(ErrNotLinked, s.name, "parent %s does not point back", p.name)
		}

		p.setLink(slot, nil)
		if err := g.commitLink(p); err != nil {
			p.setLink(slot, s)

			return err
		}
	}

	if err := g.arena.remove(s); err != nil {
		return err
	}

	s.parent = nil
	s.removed = true

	return nil
}

// paranoia runs Check when the graph is configured to.
func (g *Graph) paranoia() error {
	if !g.config.Paranoid {
		return nil
	}

	return g.Check()
}

// Check verifies the structural invariants of the host mirror:
// the arena is dense, no two SCBs overlap, every link points at a live SCB or is empty,
// and every attached SCB is pointed at by its parent.
func (g *Graph) Check() error {
	if g == nil {
		return fmt.Errorf("graph is nil")
	}

	if err := g.arena.check(); err != nil {
		return err
	}

	for _, s := range g.arena.scbs {
		for _, l := range []*SCB{s.child, s.sibling} {
			if l == nil {
				continue
			}

			if !g.arena.contains(l) {
				return scbErrorf(ErrInvalidSCB, s.name, "dangling link to %s", l.name)
			}

			if l.parent != s {
				return scbErrorf(ErrNotLinked, l.name, "linked from %s but parent is %s", s.name, l.parent.Name())
			}
		}

		if p := s.parent; p != nil {
			if !g.arena.contains(p) {
				return scbErrorf(ErrInvalidSCB, s.name, "dangling parent %s", p.name)
			}

			if p.child != s && p.sibling != s {
				return scbErrorf(ErrNotLinked, s.name, "parent %s does not point back", p.name)
			}
		}

		// The parent chain must reach a root within count steps.
		steps := 0
		for p := s.parent; p != nil; p = p.parent {
			steps++
			if steps > g.arena.count() {
				return scbErrorf(ErrInvalidSCB, s.name, "parent cycle")
			}
		}

		if s.payload[SCBsubListPtr] != g.linkWord(s) {
			return scbErrorf(ErrOutOfSync, s.name, "stale link word 0x%08x", s.payload[SCBsubListPtr])
		}
	}

	return nil
}

// Verify reads the link and entry words of every SCB back from the DSP and compares them with the mirror.
func (g *Graph) Verify() error {
	if err := g.usable(); err != nil {
		return err
	}

	scbs := append([]*SCB{g.null}, g.arena.scbs...)
	for _, s := range scbs {
		for _, off := range []uint32{SCBsubListPtr, SCBfuncEntryPtr} {
			got, err := g.mem.Read32(s.address + off)
			if err != nil {
				return fmt.Errorf("failed to read back %s: %w", s.name, err)
			}

			if want := s.payload[off]; got != want {
				return scbErrorf(ErrOutOfSync, s.name, "word 0x%x is 0x%08x, want 0x%08x", off, got, want)
			}
		}
	}

	return nil
}

// WriteTo writes the task tree, one SCB per line. Children are indented below their parent,
// siblings are printed at the parent's level.
func (g *Graph) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, g.String())

	return int64(n), err
}

// String returns the task tree as printed by WriteTo.
func (g *Graph) String() string {
	if g == nil {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("SCB graph: %d SCBs, null SCB at 0x%04x\n", g.arena.count(), g.null.address))

	for _, root := range g.Roots() {
		g.dump(&sb, root, 1)
	}

	return sb.String()
}

func (g *Graph) dump(sb *strings.Builder, s *SCB, depth int) {
	for ; s != nil; s = s.sibling {
		sb.WriteString(fmt.Sprintf("%s%2d: %s\n", strings.Repeat("  ", depth), s.index, s))
		if s.child != nil {
			g.dump(sb, s.child, depth+1)
		}
	}
}

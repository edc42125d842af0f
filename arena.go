package dsp

// arena owns the dense list of live SCB descriptors.
// The null SCB is not part of the arena but its address range is reserved.
type arena struct {
	scbs     []*SCB
	max      int
	reserved *SCB
}

func newArena(limit int) *arena {
	return &arena{
		scbs: make([]*SCB, 0, limit),
		max:  limit,
	}
}

// count returns the number of live descriptors.
func (a *arena) count() int {
	return len(a.scbs)
}

// owner returns the SCB whose payload overlaps [address, address+words), if any.
func (a *arena) owner(address uint32, words int) *SCB {
	end := address + uint32(words)

	if r := a.reserved; r != nil && address < r.end() && r.address < end {
		return r
	}

	for _, s := range a.scbs {
		if address < s.end() && s.address < end {
			return s
		}
	}

	return nil
}

// inRange checks that [address, address+words) is addressable by a link word.
func inRange(name string, address uint32, words int) error {
	if words < 0 || uint64(address)+uint64(words) > SCBAddressLimit {
		return scbErrorf(ErrInvalidParams, name, "0x%04x+0x%x does not fit below 0x%x", address, words, SCBAddressLimit)
	}

	return nil
}

// reserve checks that a descriptor of the given size could be allocated at address.
func (a *arena) reserve(name string, address uint32, words int) error {
	if err := inRange(name, address, words); err != nil {
		return err
	}

	if len(a.scbs) >= a.max {
		return scbErrorf(ErrArenaExhausted, name, "%d descriptors in use", len(a.scbs))
	}

	if o := a.owner(address, words); o != nil {
		return scbErrorf(ErrAddressInUse, name, "0x%04x overlaps %s", address, o.name)
	}

	return nil
}

// allocate appends a new descriptor with the next free index.
func (a *arena) allocate(name string, address uint32, payload Payload) (*SCB, error) {
	if err := a.reserve(name, address, len(payload)); err != nil {
		return nil, err
	}

	s := &SCB{
		name:    name,
		index:   len(a.scbs),
		address: address,
		payload: payload,
		volume:  -1,
	}

	a.scbs = append(a.scbs, s)

	return s, nil
}

// remove deletes the descriptor and shifts every higher index down by one.
// Addresses and links are left untouched.
func (a *arena) remove(s *SCB) error {
	i := s.index
	if i < 0 || i >= len(a.scbs) || a.scbs[i] != s {
		return scbErrorf(ErrInvalidSCB, s.name, "not in arena")
	}

	copy(a.scbs[i:], a.scbs[i+1:])
	a.scbs[len(a.scbs)-1] = nil
	a.scbs = a.scbs[:len(a.scbs)-1]

	for j := i; j < len(a.scbs); j++ {
		a.scbs[j].index = j
	}

	s.index = -1

	return nil
}

// contains reports whether s is a live descriptor of this arena.
func (a *arena) contains(s *SCB) bool {
	return s != nil && s.index >= 0 && s.index < len(a.scbs) && a.scbs[s.index] == s
}

// check verifies density and that no two descriptors overlap.
func (a *arena) check() error {
	if len(a.scbs) > a.max {
		return scbErrorf(ErrArenaExhausted, "", "%d descriptors exceed limit %d", len(a.scbs), a.max)
	}

	for i, s := range a.scbs {
		if s == nil {
			return scbErrorf(ErrInvalidSCB, "", "hole at index %d", i)
		}

		if s.index != i {
			return scbErrorf(ErrInvalidSCB, s.name, "index %d stored at %d", s.index, i)
		}

		if r := a.reserved; r != nil && s.address < r.end() && r.address < s.end() {
			return scbErrorf(ErrAddressInUse, s.name, "overlaps %s", r.name)
		}

		for _, o := range a.scbs[i+1:] {
			if s.address < o.end() && o.address < s.end() {
				return scbErrorf(ErrAddressInUse, s.name, "overlaps %s", o.name)
			}
		}
	}

	return nil
}

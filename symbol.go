package dsp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Symbol is a resolved entry of the DSP symbol table.
type Symbol struct {
	Name    string
	Address uint32
	Kind    SymbolKind
}

// String returns a human-readable representation of the Symbol.
func (s Symbol) String() string {
	return fmt.Sprintf("0x%04x %-9s %s", s.Address, s.Kind, s.Name)
}

type symbolKey struct {
	name string
	kind SymbolKind
}

// SymbolTable maps task names to their entry points in DSP code memory.
// It is read-only once built and safe for concurrent use.
type SymbolTable struct {
	symbols []Symbol
	byKey   map[symbolKey]Symbol
}

// NewSymbolTable builds a symbol table from the given symbols.
// Empty names, names longer than the image format allows and duplicate (name, kind) pairs are rejected.
func NewSymbolTable(symbols ...Symbol) (*SymbolTable, error) {
	st := &SymbolTable{
		symbols: make([]Symbol, 0, len(symbols)),
		byKey:   make(map[symbolKey]Symbol, len(symbols)),
	}

	for _, sym := range symbols {
		if sym.Name == "" {
			return nil, fmt.Errorf("symbol at 0x%04x has no name", sym.Address)
		}

		if len(sym.Name) > maxSymbolName {
			return nil, fmt.Errorf("symbol name %q exceeds %d bytes", sym.Name, maxSymbolName)
		}

		key := symbolKey{name: sym.Name, kind: sym.Kind}
		if _, ok := st.byKey[key]; ok {
			return nil, fmt.Errorf("duplicate symbol %s (%s)", sym.Name, sym.Kind)
		}

		st.byKey[key] = sym
		st.symbols = append(st.symbols, sym)
	}

	sort.SliceStable(st.symbols, func(i, j int) bool {
		return st.symbols[i].Address < st.symbols[j].Address
	})

	return st, nil
}

// LoadSymbolTable reads the symbol section of a DSP image.
// The section is a sequence of little-endian records: address (uint32), kind (uint32), name ([20]byte, NUL padded).
func LoadSymbolTable(r io.Reader) (*SymbolTable, error) {
	var symbols []Symbol
	record := make([]byte, symbolRecordSize)

	for {
		_, err := io.ReadFull(r, record)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read symbol record %d: %w", len(symbols), err)
		}

		sym := Symbol{
			Address: binary.LittleEndian.Uint32(record[0:4]),
			Kind:    SymbolKind(binary.LittleEndian.Uint32(record[4:8])),
			Name:    cString(record[8:]),
		}

		symbols = append(symbols, sym)
	}

	return NewSymbolTable(symbols...)
}

// WriteSymbolTable writes symbols in the format read by LoadSymbolTable.
func WriteSymbolTable(w io.Writer, symbols []Symbol) error {
	record := make([]byte, symbolRecordSize)

	for _, sym := range symbols {
		if len(sym.Name) > maxSymbolName {
			return fmt.Errorf("symbol name %q exceeds %d bytes", sym.Name, maxSymbolName)
		}

		clear(record)
		binary.LittleEndian.PutUint32(record[0:4], sym.Address)
		binary.LittleEndian.PutUint32(record[4:8], uint32(sym.Kind))
		copy(record[8:], sym.Name)

		if _, err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write symbol %s: %w", sym.Name, err)
		}
	}

	return nil
}

// Lookup resolves a symbol by name and kind.
func (st *SymbolTable) Lookup(name string, kind SymbolKind) (Symbol, error) {
	if st == nil {
		return Symbol{}, scbErrorf(ErrSymbolNotFound, "", "%s: symbol table is nil", name)
	}

	sym, ok := st.byKey[symbolKey{name: name, kind: kind}]
	if !ok {
		return Symbol{}, scbErrorf(ErrSymbolNotFound, "", "%s (%s)", name, kind)
	}

	return sym, nil
}

// Symbols returns a copy of all symbols ordered by address.
func (st *SymbolTable) Symbols() []Symbol {
	if st == nil {
		return nil
	}

	out := make([]Symbol, len(st.symbols))
	copy(out, st.symbols)

	return out
}

// Len returns the number of symbols in the table.
func (st *SymbolTable) Len() int {
	if st == nil {
		return 0
	}

	return len(st.symbols)
}

// String returns a listing of the symbol table.
func (st *SymbolTable) String() string {
	var sb strings.Builder

	for _, sym := range st.Symbols() {
		sb.WriteString(sym.String() + "\n")
	}

	return sb.String()
}

// DefaultSymbols returns the task entry points of the stock SPOS image.
// Images with a different layout should be loaded with LoadSymbolTable.
func DefaultSymbols() []Symbol {
	return []Symbol{
		{Name: TaskNull, Address: 0x0000, Kind: SYMBOL_CODE},
		{Name: TaskTimingMaster, Address: 0x0010, Kind: SYMBOL_CODE},
		{Name: TaskCodecOutput, Address: 0x0030, Kind: SYMBOL_CODE},
		{Name: TaskCodecInput, Address: 0x0040, Kind: SYMBOL_CODE},
		{Name: TaskPCMReader, Address: 0x0060, Kind: SYMBOL_CODE},
		{Name: TaskSRC, Address: 0x0080, Kind: SYMBOL_CODE},
		{Name: TaskMixer, Address: 0x00a0, Kind: SYMBOL_CODE},
		{Name: TaskMixToOStream, Address: 0x00b0, Kind: SYMBOL_CODE},
		{Name: TaskVariDecimate, Address: 0x00c0, Kind: SYMBOL_CODE},
		{Name: TaskPCMSerialInput, Address: 0x00e0, Kind: SYMBOL_CODE},
		{Name: TaskAsyncFGTx, Address: 0x0100, Kind: SYMBOL_CODE},
		{Name: TaskAsyncFGRx, Address: 0x0120, Kind: SYMBOL_CODE},
		{Name: TaskOutputSnoop, Address: 0x0140, Kind: SYMBOL_CODE},
		{Name: TaskSPIOWrite, Address: 0x0150, Kind: SYMBOL_CODE},
		{Name: TaskMagicSnoop, Address: 0x0160, Kind: SYMBOL_CODE},
	}
}

// cString converts a C-style null-terminated byte array to a Go string.
func cString(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i == -1 {
		return string(b)
	}

	return string(b[:i])
}

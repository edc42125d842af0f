package dsp

import (
	"errors"
	"fmt"
)

var (
	// ErrSymbolNotFound is returned when a task type has no entry point in the DSP image.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrSlotOccupied is returned when attaching into a parent link that already holds a task.
	ErrSlotOccupied = errors.New("slot occupied")
	// ErrHasChildren is returned when removing an SCB that still has a child or sibling attached.
	ErrHasChildren = errors.New("scb has children")
	// ErrArenaExhausted is returned when no more SCB descriptors can be allocated.
	ErrArenaExhausted = errors.New("scb arena exhausted")
	// ErrAddressInUse is returned when a DSP address is already owned by a live SCB.
	ErrAddressInUse = errors.New("scb address in use")
	// ErrNotLinked is returned when an SCB's parent no longer points back at it.
	ErrNotLinked = errors.New("scb not linked to its parent")
	// ErrInvalidSCB is returned for nil, removed or foreign descriptors.
	ErrInvalidSCB = errors.New("invalid scb")
	// ErrInvalidParams is returned when task parameters cannot be encoded.
	ErrInvalidParams = errors.New("invalid task parameters")
	// ErrOutOfSync is returned when DSP memory does not match the host mirror.
	ErrOutOfSync = errors.New("dsp memory out of sync")
	// ErrClosed is returned for operations on a closed graph.
	ErrClosed = errors.New("scb graph is closed")
)

// SCBError describes a failed graph operation.
type SCBError struct {
	Kind error
	SCB  string // Name of the SCB involved, if any
	Msg  string
}

func (e *SCBError) Error() string {
	if e == nil {
		return ""
	}

	s := e.Kind.Error()
	if e.SCB != "" {
		s = fmt.Sprintf("%s: %s", e.SCB, s)
	}

	if e.Msg != "" {
		s = fmt.Sprintf("%s: %s", s, e.Msg)
	}

	return s
}

func (e *SCBError) Unwrap() error { return e.Kind }

func scbErrorf(kind error, scb string, format string, args ...any) error {
	return &SCBError{Kind: kind, SCB: scb, Msg: fmt.Sprintf(format, args...)}
}

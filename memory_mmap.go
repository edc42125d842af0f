package dsp

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MmapMemory is DSP task memory accessed through a memory-mapped PCI resource.
// On CS46xx cards this is the BA1 region, exposed by sysfs as resourceN of the PCI device.
type MmapMemory struct {
	file *os.File
	buf  []byte
}

// MmapOpen maps size words of the resource file at path, starting at byte offset 0.
func MmapOpen(path string, size int) (*MmapMemory, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid mapping size %d", size)
	}

	file, err := os.OpenFile(path, os.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open DSP memory %s: %w", path, err)
	}

	buf, err := unix.Mmap(int(file.Fd()), 0, size*4, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("mmap of %s failed: %w", path, err)
	}

	return &MmapMemory{file: file, buf: buf}, nil
}

// IsReady checks if the mapping is valid.
func (m *MmapMemory) IsReady() bool {
	return m != nil && m.buf != nil
}

// Close unmaps the memory and closes the resource file.
func (m *MmapMemory) Close() error {
	if !m.IsReady() {
		return nil
	}

	err := unix.Munmap(m.buf)
	m.buf = nil

	if cerr := m.file.Close(); err == nil {
		err = cerr
	}

	m.file = nil

	return err
}

// Size returns the size of the mapping in words.
func (m *MmapMemory) Size() int {
	if !m.IsReady() {
		return 0
	}

	return len(m.buf) / 4
}

// Read32 reads the word at addr.
func (m *MmapMemory) Read32(addr uint32) (uint32, error) {
	off, err := m.offset(addr)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(m.buf[off : off+4]), nil
}

// Write32 writes value at addr.
func (m *MmapMemory) Write32(addr uint32, value uint32) error {
	off, err := m.offset(addr)
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(m.buf[off:off+4], value)

	return nil
}

// offset converts a DSP word address to a byte offset into the mapping.
func (m *MmapMemory) offset(addr uint32) (int, error) {
	if !m.IsReady() {
		return 0, fmt.Errorf("memory is not mapped")
	}

	if uint64(addr)*4+4 > uint64(len(m.buf)) {
		return 0, fmt.Errorf("address 0x%04x out of range (size 0x%04x)", addr, len(m.buf)/4)
	}

	return int(addr) * 4, nil
}

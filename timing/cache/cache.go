// Package cache provides the paged memory model: a flat backing store with
// a single page-wide cache window in front of it. Both the instruction and
// the data memory are built on PagedMemory.
package cache

import (
	"encoding/binary"
	"fmt"
)

// Config holds paged memory configuration parameters.
type Config struct {
	// Size in elements
	Size int
	// BlockSize in elements per page
	BlockSize int
	// ElemSize in bytes per element (1 or 2)
	ElemSize int
	// SwapLatency in cycles charged per page swap
	SwapLatency uint64
}

// DefaultDataConfig returns the data memory configuration: 256 bytes in
// 64-byte pages. The last page holds the data stack.
func DefaultDataConfig() Config {
	return Config{
		Size:        256,
		BlockSize:   64,
		ElemSize:    1,
		SwapLatency: 4,
	}
}

// DefaultInstructionConfig returns the instruction memory configuration:
// 2048 little-endian words in 32-word pages.
func DefaultInstructionConfig() Config {
	return Config{
		Size:        2048,
		BlockSize:   32,
		ElemSize:    2,
		SwapLatency: 4,
	}
}

// NumPages returns the number of pages.
func (c Config) NumPages() int {
	return c.Size / c.BlockSize
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Size <= 0 || c.BlockSize <= 0 {
		return fmt.Errorf("size and block size must be positive: %d/%d",
			c.Size, c.BlockSize)
	}
	if c.Size%c.BlockSize != 0 {
		return fmt.Errorf("size %d is not a multiple of block size %d",
			c.Size, c.BlockSize)
	}
	if c.ElemSize != 1 && c.ElemSize != 2 {
		return fmt.Errorf("element size must be 1 or 2, got %d", c.ElemSize)
	}
	return nil
}

func mustValidate(config Config) {
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid paged memory config: %v", err))
	}
}

// AddressError reports an address or page index outside the memory.
type AddressError struct {
	Addr int
	Size int
	Page bool
}

func (e *AddressError) Error() string {
	if e.Page {
		return fmt.Sprintf("page %d out of range [0,%d)", e.Addr, e.Size)
	}
	return fmt.Sprintf("address %d out of range [0,%d)", e.Addr, e.Size)
}

// SizeMismatchError reports a memory image of the wrong length.
type SizeMismatchError struct {
	Got  int
	Want int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("image has %d elements, memory holds %d", e.Got, e.Want)
}

// Statistics holds paged memory statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	PageSwaps  uint64
	Writebacks uint64
	SwapCycles uint64
}

// PagedMemory is a backing store with one resident page. Accesses outside
// the active page switch pages, writing the window back first.
type PagedMemory struct {
	config  Config
	backing BackingStore

	window     []byte
	activePage int

	stats Statistics
}

// NewPagedMemory creates a paged memory over a fresh Akita storage. It
// panics if the configuration does not validate.
func NewPagedMemory(config Config) *PagedMemory {
	mustValidate(config)
	capacity := uint64(config.Size * config.ElemSize)
	return NewPagedMemoryWithBacking(config, NewStorageBacking(capacity))
}

// NewPagedMemoryWithBacking creates a paged memory over the given store.
// The window starts on page 0. It panics if the configuration does not
// validate.
func NewPagedMemoryWithBacking(config Config, backing BackingStore) *PagedMemory {
	mustValidate(config)
	return &PagedMemory{
		config:  config,
		backing: backing,
		window:  make([]byte, config.BlockSize*config.ElemSize),
	}
}

// Config returns the memory configuration.
func (m *PagedMemory) Config() Config {
	return m.config
}

// Stats returns memory statistics.
func (m *PagedMemory) Stats() Statistics {
	s := m.stats
	s.SwapCycles = s.PageSwaps * m.config.SwapLatency
	return s
}

// ResetStats clears memory statistics.
func (m *PagedMemory) ResetStats() {
	m.stats = Statistics{}
}

// ActivePage returns the index of the resident page.
func (m *PagedMemory) ActivePage() int {
	return m.activePage
}

func (m *PagedMemory) pageBytes() int {
	return m.config.BlockSize * m.config.ElemSize
}

// SwitchPage writes the window back to the active page and loads page n.
func (m *PagedMemory) SwitchPage(n int) error {
	if n < 0 || n >= m.config.NumPages() {
		return &AddressError{Addr: n, Size: m.config.NumPages(), Page: true}
	}

	pb := m.pageBytes()

	err := m.backing.Write(uint64(m.activePage*pb), m.window)
	if err != nil {
		return fmt.Errorf("failed to write back page %d: %w", m.activePage, err)
	}
	m.stats.Writebacks++

	data, err := m.backing.Read(uint64(n*pb), pb)
	if err != nil {
		return fmt.Errorf("failed to load page %d: %w", n, err)
	}
	copy(m.window, data)

	m.activePage = n
	m.stats.PageSwaps++

	return nil
}

// locate maps addr to a window offset, switching pages if needed.
func (m *PagedMemory) locate(addr int) (int, error) {
	if addr < 0 || addr >= m.config.Size {
		return 0, &AddressError{Addr: addr, Size: m.config.Size}
	}

	page := addr / m.config.BlockSize
	if page != m.activePage {
		if err := m.SwitchPage(page); err != nil {
			return 0, err
		}
	} else {
		m.stats.Hits++
	}

	return (addr % m.config.BlockSize) * m.config.ElemSize, nil
}

func (m *PagedMemory) decode(b []byte) uint16 {
	if m.config.ElemSize == 2 {
		return binary.LittleEndian.Uint16(b)
	}
	return uint16(b[0])
}

func (m *PagedMemory) encode(b []byte, v uint16) {
	if m.config.ElemSize == 2 {
		binary.LittleEndian.PutUint16(b, v)
		return
	}
	b[0] = uint8(v)
}

// ReadElem reads the element at addr.
func (m *PagedMemory) ReadElem(addr int) (uint16, error) {
	m.stats.Reads++

	off, err := m.locate(addr)
	if err != nil {
		return 0, err
	}

	return m.decode(m.window[off:]), nil
}

// WriteElem writes the element at addr into the window.
func (m *PagedMemory) WriteElem(addr int, v uint16) error {
	m.stats.Writes++

	off, err := m.locate(addr)
	if err != nil {
		return err
	}

	m.encode(m.window[off:], v)
	return nil
}

// Flash replaces the whole backing store with data and resets the window
// to page 0. The length is checked before anything changes.
func (m *PagedMemory) Flash(data []uint16) error {
	if len(data) != m.config.Size {
		return &SizeMismatchError{Got: len(data), Want: m.config.Size}
	}

	raw := make([]byte, m.config.Size*m.config.ElemSize)
	for i, v := range data {
		m.encode(raw[i*m.config.ElemSize:], v)
	}

	if err := m.backing.Write(0, raw); err != nil {
		return fmt.Errorf("failed to flash image: %w", err)
	}

	copy(m.window, raw[:m.pageBytes()])
	m.activePage = 0

	return nil
}

// Window returns a copy of the resident page.
func (m *PagedMemory) Window() []uint16 {
	out := make([]uint16, m.config.BlockSize)
	for i := range out {
		out[i] = m.decode(m.window[i*m.config.ElemSize:])
	}
	return out
}

// Contents returns the full memory as seen by a reader: the backing store
// with the window overlaid on the active page. It does not switch pages.
func (m *PagedMemory) Contents() ([]uint16, error) {
	raw, err := m.backing.Read(0, m.config.Size*m.config.ElemSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read backing store: %w", err)
	}

	view := make([]byte, len(raw))
	copy(view, raw)
	copy(view[m.activePage*m.pageBytes():], m.window)
	raw = view

	out := make([]uint16, m.config.Size)
	for i := range out {
		out[i] = m.decode(raw[i*m.config.ElemSize:])
	}
	return out, nil
}

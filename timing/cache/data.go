package cache

// DataMemory is the byte-addressed data memory.
type DataMemory struct {
	paged *PagedMemory
}

// NewDataMemory creates a data memory with the given configuration.
func NewDataMemory(config Config) *DataMemory {
	return &DataMemory{paged: NewPagedMemory(config)}
}

// Paged returns the underlying paged memory.
func (d *DataMemory) Paged() *PagedMemory {
	return d.paged
}

// Stats returns memory statistics.
func (d *DataMemory) Stats() Statistics {
	return d.paged.Stats()
}

// Read reads the byte at addr.
func (d *DataMemory) Read(addr uint16) (uint8, error) {
	v, err := d.paged.ReadElem(int(addr))
	return uint8(v), err
}

// Write writes the byte at addr.
func (d *DataMemory) Write(addr uint16, value uint8) error {
	return d.paged.WriteElem(int(addr), uint16(value))
}

// Load replaces the memory contents. data must cover the whole memory.
func (d *DataMemory) Load(data []byte) error {
	words := make([]uint16, len(data))
	for i, b := range data {
		words[i] = uint16(b)
	}
	return d.paged.Flash(words)
}

// Bytes returns a copy of the whole memory without switching pages.
func (d *DataMemory) Bytes() ([]byte, error) {
	words, err := d.paged.Contents()
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(words))
	for i, w := range words {
		out[i] = uint8(w)
	}
	return out, nil
}

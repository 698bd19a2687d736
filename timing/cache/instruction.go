package cache

// InstructionMemory is the word-addressed instruction memory. It is
// read-only at runtime; Flash is the only way to change its contents.
type InstructionMemory struct {
	paged *PagedMemory
}

// NewInstructionMemory creates an instruction memory with the given
// configuration.
func NewInstructionMemory(config Config) *InstructionMemory {
	return &InstructionMemory{paged: NewPagedMemory(config)}
}

// ActivePage returns the resident page index.
func (im *InstructionMemory) ActivePage() int {
	return im.paged.ActivePage()
}

// Stats returns memory statistics.
func (im *InstructionMemory) Stats() Statistics {
	return im.paged.Stats()
}

// Size returns the number of words the memory holds.
func (im *InstructionMemory) Size() int {
	return im.paged.Config().Size
}

// ReadInstruction reads the word at addr.
func (im *InstructionMemory) ReadInstruction(addr uint16) (uint16, error) {
	return im.paged.ReadElem(int(addr))
}

// Flash loads a full memory image and resets to page 0.
func (im *InstructionMemory) Flash(words []uint16) error {
	return im.paged.Flash(words)
}

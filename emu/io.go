package emu

// IOBus is the memory-mapped I/O seam used by INP, OUT and OPI.
type IOBus interface {
	Read(port uint16) uint8
	Write(port uint16, value uint8)
}

// Coprocessor receives CPC commands.
type Coprocessor interface {
	Command(cmd uint16)
}

// NumPorts is the number of addressable ports (9-bit port field).
const NumPorts = 512

// PortWrite records a single write to a port.
type PortWrite struct {
	Port  uint16
	Value uint8
}

// PortBus is an in-memory IOBus. Reads return the last value written to
// or set on the port.
type PortBus struct {
	ports  [NumPorts]uint8
	writes []PortWrite
}

// NewPortBus creates an empty port bus.
func NewPortBus() *PortBus {
	return &PortBus{}
}

// Read returns the value latched on a port.
func (b *PortBus) Read(port uint16) uint8 {
	return b.ports[port%NumPorts]
}

// Write latches a value on a port and records it.
func (b *PortBus) Write(port uint16, value uint8) {
	port %= NumPorts
	b.ports[port] = value
	b.writes = append(b.writes, PortWrite{Port: port, Value: value})
}

// Set latches an input value without recording a write.
func (b *PortBus) Set(port uint16, value uint8) {
	b.ports[port%NumPorts] = value
}

// Writes returns the writes seen so far, oldest first.
func (b *PortBus) Writes() []PortWrite {
	return b.writes
}

// CommandLog is a Coprocessor that records commands.
type CommandLog struct {
	Commands []uint16
}

// Command records cmd.
func (l *CommandLog) Command(cmd uint16) {
	l.Commands = append(l.Commands, cmd)
}

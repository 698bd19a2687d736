package emu

import (
	"fmt"

	"github.com/sarchlab/p8sim/insts"
)

// Data stack layout. The stack lives in the last 64-byte page of data
// memory and SP indexes into that page.
const (
	StackBase       = 192
	StackPointerMin = 31
	StackPointerMax = 63
	StackPageSize   = 64
)

// CallStackDepth is the number of return addresses the call stack holds.
const CallStackDepth = 32

// Control register bits.
const (
	ControlInterruptEnable uint8 = 0x01
	ControlKernel          uint8 = 0x02
	ControlHaltOnError     uint8 = 0x04
	ControlDebug           uint8 = 0x08
	ControlCoprocessor     uint8 = 0x40
)

// StackError reports a call stack or data stack overflow or underflow.
type StackError struct {
	Stack string // "call" or "data"
	Op    string // "overflow", "underflow" or "offset"
	SP    int
}

func (e *StackError) Error() string {
	return fmt.Sprintf("%s stack %s (sp=%d)", e.Stack, e.Op, e.SP)
}

// DataMemory is the byte-addressed data memory seen by the executor.
type DataMemory interface {
	Read(addr uint16) (uint8, error)
	Write(addr uint16, value uint8) error
}

// InstructionMemory is the word-addressed instruction memory.
type InstructionMemory interface {
	ReadInstruction(addr uint16) (uint16, error)
}

// CallStack is a bounded stack of return addresses.
type CallStack struct {
	entries [CallStackDepth]uint16
	depth   int
}

// Push pushes a return address.
func (s *CallStack) Push(addr uint16) error {
	if s.depth == CallStackDepth {
		return &StackError{Stack: "call", Op: "overflow", SP: s.depth}
	}
	s.entries[s.depth] = addr
	s.depth++
	return nil
}

// Pop pops the most recent return address.
func (s *CallStack) Pop() (uint16, error) {
	if s.depth == 0 {
		return 0, &StackError{Stack: "call", Op: "underflow", SP: 0}
	}
	s.depth--
	return s.entries[s.depth], nil
}

// Unwind returns the oldest return address and empties the stack.
func (s *CallStack) Unwind() (uint16, error) {
	if s.depth == 0 {
		return 0, &StackError{Stack: "call", Op: "underflow", SP: 0}
	}
	addr := s.entries[0]
	s.depth = 0
	return addr, nil
}

// Depth returns the number of live entries.
func (s *CallStack) Depth() int {
	return s.depth
}

// Clear empties the stack.
func (s *CallStack) Clear() {
	s.depth = 0
}

// Machine is the architectural state shared by the executor, the
// emulator and the timing pipeline. The flags register is owned here and
// passed explicitly to every unit that needs it.
type Machine struct {
	Regs  RegFile
	Flags StatusRegister
	Calls CallStack

	AP uint8 // address pointer
	SP uint8 // data stack pointer
	LP uint8 // loop pointer
	BO uint8 // branch offset

	Control             uint8
	AlternateConditions bool
}

// NewMachine creates a machine in its reset state.
func NewMachine() *Machine {
	m := &Machine{}
	m.Reset()
	return m
}

// Reset restores the power-on state.
func (m *Machine) Reset() {
	*m = Machine{SP: StackPointerMin}
}

// ReadSpecial reads a special register. pc supplies the PC halves.
func (m *Machine) ReadSpecial(r insts.SpecialReg, pc uint16) uint8 {
	switch r & 0x7 {
	case insts.SpecialAddressPointer:
		return m.AP
	case insts.SpecialStackPointer:
		return m.SP
	case insts.SpecialLoopPointer:
		return m.LP
	case insts.SpecialFlags:
		return m.Flags.Byte()
	case insts.SpecialBranchOffset:
		return m.BO
	case insts.SpecialPCLow:
		return uint8(pc)
	case insts.SpecialPCHigh:
		return uint8(pc >> 8)
	default:
		return 0
	}
}

// WriteSpecial writes a special register. The PC halves and the reserved
// register ignore writes.
func (m *Machine) WriteSpecial(r insts.SpecialReg, v uint8) error {
	switch r & 0x7 {
	case insts.SpecialAddressPointer:
		m.AP = v
	case insts.SpecialStackPointer:
		if v < StackPointerMin || v > StackPointerMax {
			return &StackError{Stack: "data", Op: "overflow", SP: int(v)}
		}
		m.SP = v
	case insts.SpecialLoopPointer:
		m.LP = v
	case insts.SpecialFlags:
		m.Flags.Set(v)
	case insts.SpecialBranchOffset:
		m.BO = v
	}
	return nil
}

func stackAddr(index int, sp int) (uint16, error) {
	if index < 0 || index >= StackPageSize {
		return 0, &StackError{Stack: "data", Op: "offset", SP: sp}
	}
	return uint16(StackBase + index), nil
}

// Push writes v at SP+off in the stack page and increments SP.
func (m *Machine) Push(mem DataMemory, v uint8, off int8) error {
	if m.SP >= StackPointerMax {
		return &StackError{Stack: "data", Op: "overflow", SP: int(m.SP)}
	}

	addr, err := stackAddr(int(m.SP)+int(off), int(m.SP))
	if err != nil {
		return err
	}

	if err := mem.Write(addr, v); err != nil {
		return err
	}

	m.SP++
	return nil
}

// Poke writes v at SP+off without moving SP.
func (m *Machine) Poke(mem DataMemory, v uint8, off int8) error {
	addr, err := stackAddr(int(m.SP)+int(off), int(m.SP))
	if err != nil {
		return err
	}
	return mem.Write(addr, v)
}

// Pop decrements SP and reads the byte at SP+off.
func (m *Machine) Pop(mem DataMemory, off int8) (uint8, error) {
	if m.SP <= StackPointerMin {
		return 0, &StackError{Stack: "data", Op: "underflow", SP: int(m.SP)}
	}

	addr, err := stackAddr(int(m.SP)-1+int(off), int(m.SP))
	if err != nil {
		return 0, err
	}

	v, err := mem.Read(addr)
	if err != nil {
		return 0, err
	}

	m.SP--
	return v, nil
}

// Peek reads the byte at SP-1+off, the top of stack when off is 0,
// without moving SP.
func (m *Machine) Peek(mem DataMemory, off int8) (uint8, error) {
	addr, err := stackAddr(int(m.SP)-1+int(off), int(m.SP))
	if err != nil {
		return 0, err
	}
	return mem.Read(addr)
}

// IncrementSP moves SP up by one.
func (m *Machine) IncrementSP() error {
	if m.SP >= StackPointerMax {
		return &StackError{Stack: "data", Op: "overflow", SP: int(m.SP)}
	}
	m.SP++
	return nil
}

// DecrementSP moves SP down by one.
func (m *Machine) DecrementSP() error {
	if m.SP <= StackPointerMin {
		return &StackError{Stack: "data", Op: "underflow", SP: int(m.SP)}
	}
	m.SP--
	return nil
}

// State is a plain snapshot of the machine, for comparison and dumps.
type State struct {
	Regs                [NumRegs]uint8
	Flags               uint8
	AP, SP, LP, BO      uint8
	Control             uint8
	AlternateConditions bool
	CallDepth           int
}

// State returns a snapshot of the architectural state.
func (m *Machine) State() State {
	return State{
		Regs:                m.Regs.R,
		Flags:               m.Flags.Byte(),
		AP:                  m.AP,
		SP:                  m.SP,
		LP:                  m.LP,
		BO:                  m.BO,
		Control:             m.Control,
		AlternateConditions: m.AlternateConditions,
		CallDepth:           m.Calls.Depth(),
	}
}

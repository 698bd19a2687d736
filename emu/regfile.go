// Package emu provides functional P8 emulation.
//
// It holds the architectural state of the machine (register file, flags,
// special registers, call stack), the pure execution units, the per-class
// Executor shared with the timing pipeline, and a one-instruction-per-step
// Emulator used as the reference model.
package emu

// NumRegs is the number of general registers.
const NumRegs = 8

// RegFile represents the P8 register file.
// R[0] is hardwired to zero: it always reads as 0 and ignores writes.
type RegFile struct {
	R [NumRegs]uint8
}

// ReadReg reads a register value. The index is masked to 3 bits.
func (r *RegFile) ReadReg(reg uint8) uint8 {
	reg &= 0x7
	if reg == 0 {
		return 0
	}
	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint8) {
	reg &= 0x7
	if reg == 0 {
		return
	}
	r.R[reg] = value
}

// Clear zeroes every register.
func (r *RegFile) Clear() {
	r.R = [NumRegs]uint8{}
}

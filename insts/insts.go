// Package insts provides P8 instruction definitions and decoding.
//
// A P8 instruction is a fixed 16-bit word. The opcode class lives in bits
// [15:11]; the operand fields of each class keep their fixed offsets, so a
// field that starts at bit 11 shares its high bit with the class LSB.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x8214) // LDI R1, #0x14
//	fmt.Printf("Class: %v, Rd: %d, Imm: %d\n", inst.Class, inst.Rd, inst.Imm)
package insts

import "fmt"

// Class is the opcode class of an instruction word. It is the tag of the
// decoded variant.
type Class uint8

// Opcode classes.
const (
	ClassNOP Class = iota // No operation
	ClassHLT              // Halt / exit
	ClassSYS              // System setting
	ClassCLI              // Conditional load immediate
	ClassJMP              // Jump
	ClassBRA              // Branch
	ClassCAL              // Call
	ClassRET              // Return
	ClassINP              // Input from port
	ClassOUT              // Output to port
	ClassSLD              // Special register load
	ClassSST              // Special register store
	ClassPOP              // Pop stack
	ClassPSH              // Push stack
	ClassMLD              // Memory load
	ClassMST              // Memory store
	ClassLDI              // Load immediate
	ClassMOV              // Move
	ClassADI              // Add immediate
	ClassANI              // And immediate
	ClassCPI              // Compare immediate
	ClassTSI              // Test immediate
	ClassADD              // Add (register)
	ClassSUB              // Subtract (register)
	ClassBIT              // Bitwise (register)
	ClassBNT              // Inverse bitwise (register)
	ClassBSH              // Barrel shift (register amount)
	ClassBSI              // Barrel shift (immediate amount)
	ClassMUL              // Multiply / divide
	ClassBTC              // Bit count
	ClassOPI              // Output immediate
	ClassCPC              // Coprocessor command

	// NumClasses is the number of opcode classes.
	NumClasses = 32
)

var classNames = [NumClasses]string{
	"NOP", "HLT", "SYS", "CLI", "JMP", "BRA", "CAL", "RET",
	"INP", "OUT", "SLD", "SST", "POP", "PSH", "MLD", "MST",
	"LDI", "MOV", "ADI", "ANI", "CPI", "TSI", "ADD", "SUB",
	"BIT", "BNT", "BSH", "BSI", "MUL", "BTC", "OPI", "CPC",
}

// String returns the mnemonic of the class.
func (c Class) String() string {
	if int(c) < NumClasses {
		return classNames[c]
	}
	return fmt.Sprintf("Class(%d)", uint8(c))
}

// Group is the coarse grouping of opcode classes.
type Group uint8

// Class groups.
const (
	GroupControlFlow  Group = iota // classes 0-7
	GroupMemoryIO                  // classes 8-15
	GroupDataMovement              // classes 16-17
	GroupImmediate                 // classes 18-21
	GroupArithmetic                // classes 22-27
	GroupComplex                   // classes 28-31
)

// Group returns the group the class belongs to.
func (c Class) Group() Group {
	switch {
	case c <= ClassRET:
		return GroupControlFlow
	case c <= ClassMST:
		return GroupMemoryIO
	case c <= ClassMOV:
		return GroupDataMovement
	case c <= ClassTSI:
		return GroupImmediate
	case c <= ClassBSI:
		return GroupArithmetic
	default:
		return GroupComplex
	}
}

// Cond is a 3-bit branch condition. The meaning depends on whether the
// machine is in alternate-condition mode.
type Cond uint8

// Branch conditions (normal mode).
const (
	CondEQ Cond = 0 // Z
	CondNE Cond = 1 // !Z
	CondLO Cond = 2 // !C
	CondHI Cond = 3 // C && !Z
	CondLS Cond = 4 // !C || Z
	CondHS Cond = 5 // C
	CondEV Cond = 6 // parity even
	CondAL Cond = 7 // always
)

// Branch conditions (alternate mode).
const (
	CondVS Cond = 0 // V
	CondVC Cond = 1 // !V
	CondLT Cond = 2 // N != V
	CondGT Cond = 3 // N == V && !Z
	CondLE Cond = 4 // N != V || Z
	CondGE Cond = 5 // N == V
	CondOD Cond = 6 // parity odd
)

// BranchType is the 2-bit prediction hint of a branch.
type BranchType uint8

// Branch types.
const (
	BranchAssumeNothing  BranchType = 0 // BRA
	BranchAssumeNotTaken BranchType = 1 // BRN
	BranchAssumeTaken    BranchType = 2 // BRT
	BranchToPointer      BranchType = 3 // BRP
)

// StackType selects the POP variant.
type StackType uint8

// POP variants.
const (
	StackPop         StackType = 0 // POP
	StackPeek        StackType = 1 // PEEK
	StackPopFlags    StackType = 2 // POPF
	StackDecrementSP StackType = 3 // DSP
)

// PushType selects the PSH variant.
type PushType uint8

// PSH variants.
const (
	PushPush        PushType = 0 // PSH
	PushPoke        PushType = 1 // POKE
	PushFlags       PushType = 2 // PSHF
	PushIncrementSP PushType = 3 // ISP
)

// SpecialReg is the 3-bit index of a special register.
type SpecialReg uint8

// Special registers.
const (
	SpecialAddressPointer SpecialReg = 0
	SpecialStackPointer   SpecialReg = 1
	SpecialLoopPointer    SpecialReg = 2
	SpecialFlags          SpecialReg = 3
	SpecialReserved       SpecialReg = 4
	SpecialBranchOffset   SpecialReg = 5
	SpecialPCLow          SpecialReg = 6
	SpecialPCHigh         SpecialReg = 7
)

// AddType selects the ADD variant.
type AddType uint8

// ADD variants.
const (
	AddPlain       AddType = 0 // ADD
	AddWithCarry   AddType = 1 // ADDC
	AddVector      AddType = 2 // ADDV
	AddVectorCarry AddType = 3 // ADDVC
)

// SubType selects the SUB variant.
type SubType uint8

// SUB variants.
const (
	SubPlain        SubType = 0 // SUB
	SubWithBorrow   SubType = 1 // SUBB
	SubVector       SubType = 2 // SUBV
	SubVectorBorrow SubType = 3 // SUBVB
)

// BitwiseType selects the BIT variant.
type BitwiseType uint8

// BIT variants.
const (
	BitwiseOr      BitwiseType = 0
	BitwiseAnd     BitwiseType = 1
	BitwiseXor     BitwiseType = 2
	BitwiseImplies BitwiseType = 3
)

// InvBitwiseType selects the BNT variant.
type InvBitwiseType uint8

// BNT variants.
const (
	InvBitwiseNor        InvBitwiseType = 0
	InvBitwiseNand       InvBitwiseType = 1
	InvBitwiseXnor       InvBitwiseType = 2
	InvBitwiseNotImplies InvBitwiseType = 3
)

// ShiftType selects the barrel shifter operation. BSH and BSI decode only
// the low two type bits, so ROL, RCL, RCR and Pass are reachable through
// the shifter but have no encoding.
type ShiftType uint8

// Shift types.
const (
	ShiftLSL  ShiftType = 0 // Logical shift left
	ShiftLSR  ShiftType = 1 // Logical shift right
	ShiftROR  ShiftType = 2 // Rotate right
	ShiftASR  ShiftType = 3 // Arithmetic shift right
	ShiftROL  ShiftType = 4 // Rotate left
	ShiftRCL  ShiftType = 5 // Rotate left through carry
	ShiftRCR  ShiftType = 6 // Rotate right through carry
	ShiftPass ShiftType = 7 // No shift, flags refreshed
)

// MulDivType selects the MUL variant.
type MulDivType uint8

// MUL variants.
const (
	MulLow  MulDivType = 0 // MUL
	MulHigh MulDivType = 1 // MULU
	MulDiv  MulDivType = 2 // DIV
	MulMod  MulDivType = 3 // MOD
)

// BitCountType selects the BTC variant.
type BitCountType uint8

// BTC variants.
const (
	BitCountSqrt BitCountType = 0 // SQRT
	BitCountCLZ  BitCountType = 1 // CLZ
	BitCountCTZ  BitCountType = 2 // CTZ
	BitCountOnes BitCountType = 3 // CTO / POPCNT
)

// Instruction represents a decoded P8 instruction. Exactly one class is
// active; fields that the class does not use are zero.
type Instruction struct {
	Class Class  // Opcode class
	Raw   uint16 // Raw instruction word

	Rd uint8 // Destination register
	Rs uint8 // Source register A
	Rt uint8 // Source register B

	Imm    uint8  // Immediate (3, 6, or 8 bits depending on class)
	Addr   uint16 // Address field (4, 7, 9, or 12 bits depending on class)
	Offset int8   // Signed 7-bit stack offset

	// Type is the raw sub-operation field. Use the typed accessors below.
	Type uint8

	Cond       Cond
	BranchType BranchType
	Special    SpecialReg
	Setting    uint8  // SYS setting
	Exit       bool   // HLT exit flag
	Break      bool   // RET break flag
	CoprocCmd  uint16 // CPC payload

	// Control metadata.
	WritesToRegister bool
	UpdatesFlags     bool
	HaltsExecution   bool
	ExecuteCycles    int
}

// AddType returns the ADD variant.
func (i *Instruction) AddType() AddType { return AddType(i.Type & 0x3) }

// SubType returns the SUB variant.
func (i *Instruction) SubType() SubType { return SubType(i.Type & 0x3) }

// BitwiseType returns the BIT variant.
func (i *Instruction) BitwiseType() BitwiseType { return BitwiseType(i.Type & 0x3) }

// InvBitwiseType returns the BNT variant.
func (i *Instruction) InvBitwiseType() InvBitwiseType { return InvBitwiseType(i.Type & 0x3) }

// ShiftType returns the barrel shift type. Type bit 2 is ignored.
func (i *Instruction) ShiftType() ShiftType { return ShiftType(i.Type & 0x3) }

// MulDivType returns the MUL variant.
func (i *Instruction) MulDivType() MulDivType { return MulDivType(i.Type & 0x3) }

// BitCountType returns the BTC variant.
func (i *Instruction) BitCountType() BitCountType { return BitCountType(i.Type & 0x3) }

// StackType returns the POP variant.
func (i *Instruction) StackType() StackType { return StackType(i.Type & 0x3) }

// PushType returns the PSH variant.
func (i *Instruction) PushType() PushType { return PushType(i.Type & 0x3) }

// IsNop reports whether the instruction does nothing.
func (i *Instruction) IsNop() bool {
	return i == nil || i.Class == ClassNOP
}

// IsControlFlow reports whether the instruction transfers control.
func (i *Instruction) IsControlFlow() bool {
	switch i.Class {
	case ClassJMP, ClassBRA, ClassCAL, ClassRET:
		return true
	}
	return false
}

// IsBranchOrJump reports whether the instruction is a BRA or JMP. These are
// the instructions whose presence in decode invalidates the fetch slot.
func (i *Instruction) IsBranchOrJump() bool {
	return i.Class == ClassBRA || i.Class == ClassJMP
}

// ReadsRs reports whether the instruction reads source register A.
func (i *Instruction) ReadsRs() bool {
	switch i.Class {
	case ClassPSH:
		return i.PushType() == PushPush || i.PushType() == PushPoke
	case ClassOUT, ClassSST, ClassMST, ClassMOV, ClassADI, ClassANI,
		ClassCPI, ClassTSI, ClassADD, ClassSUB, ClassBIT, ClassBNT, ClassBSH,
		ClassBSI, ClassMUL, ClassBTC:
		return true
	}
	return false
}

// ReadsRt reports whether the instruction reads source register B.
func (i *Instruction) ReadsRt() bool {
	switch i.Class {
	case ClassADD, ClassSUB, ClassBIT, ClassBNT, ClassBSH, ClassMUL:
		return true
	}
	return false
}

// ReadsRegister reports whether the instruction reads general register r as
// an operand. Register 0 is hardwired to zero and is never reported.
func (i *Instruction) ReadsRegister(r uint8) bool {
	r &= 0x7
	if r == 0 || i == nil {
		return false
	}
	if i.ReadsRs() && i.Rs == r {
		return true
	}
	return i.ReadsRt() && i.Rt == r
}

// String returns a short assembly-like rendering of the instruction.
func (i *Instruction) String() string {
	switch i.Class {
	case ClassNOP, ClassRET, ClassHLT:
		return i.Class.String()
	case ClassJMP, ClassCAL:
		return fmt.Sprintf("%s 0x%03X", i.Class, i.Addr)
	case ClassBRA:
		return fmt.Sprintf("BRA c%d t%d 0x%02X", i.Cond, i.BranchType, i.Addr)
	case ClassLDI:
		return fmt.Sprintf("LDI R%d, #0x%02X", i.Rd, i.Imm)
	case ClassADD, ClassSUB, ClassBIT, ClassBNT, ClassBSH, ClassMUL:
		return fmt.Sprintf("%s.%d R%d, R%d, R%d", i.Class, i.Type, i.Rd, i.Rs, i.Rt)
	}
	return fmt.Sprintf("%s 0x%04X", i.Class, i.Raw)
}

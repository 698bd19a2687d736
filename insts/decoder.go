package insts

type decodeFunc func(word uint16, inst *Instruction)

// Decoder decodes P8 machine words into instructions.
type Decoder struct {
	table [NumClasses]decodeFunc
}

// NewDecoder creates a new P8 instruction decoder.
func NewDecoder() *Decoder {
	d := &Decoder{}

	d.table = [NumClasses]decodeFunc{
		ClassNOP: decodeNOP,
		ClassHLT: decodeHLT,
		ClassSYS: decodeSYS,
		ClassCLI: decodeCLI,
		ClassJMP: decodeAddr12,
		ClassBRA: decodeBRA,
		ClassCAL: decodeAddr12,
		ClassRET: decodeRET,
		ClassINP: decodeRdAddr9,
		ClassOUT: decodeRsAddr9,
		ClassSLD: decodeSLD,
		ClassSST: decodeSST,
		ClassPOP: decodePOP,
		ClassPSH: decodePSH,
		ClassMLD: decodeRdAddr9,
		ClassMST: decodeRsAddr9,
		ClassLDI: decodeLDI,
		ClassMOV: decodeMOV,
		ClassADI: decodeADI,
		ClassANI: decodeANI,
		ClassCPI: decodeRsImm8,
		ClassTSI: decodeRsImm8,
		ClassADD: decodeThreeReg,
		ClassSUB: decodeThreeReg,
		ClassBIT: decodeThreeReg,
		ClassBNT: decodeThreeReg,
		ClassBSH: decodeThreeReg,
		ClassBSI: decodeBSI,
		ClassMUL: decodeMUL,
		ClassBTC: decodeBTC,
		ClassOPI: decodeOPI,
		ClassCPC: decodeCPC,
	}

	return d
}

// Decode decodes a 16-bit P8 instruction word. Decode is total: every word
// yields an instruction, and an unhandled class degrades to a NOP.
func (d *Decoder) Decode(word uint16) *Instruction {
	class := Class(word >> 11) // bits [15:11]

	inst := &Instruction{Class: class, Raw: word, ExecuteCycles: 1}

	fn := d.table[class]
	if fn == nil {
		return &Instruction{Class: ClassNOP, Raw: word, ExecuteCycles: 1}
	}

	fn(word, inst)
	setMetadata(inst)

	return inst
}

// Field extraction. Offsets are fixed per class.

// bits [11:9]
func rdField(word uint16) uint8 { return uint8(word>>9) & 0x7 }

// bits [8:6]
func rsMid(word uint16) uint8 { return uint8(word>>6) & 0x7 }

// bits [5:3]
func typeField(word uint16) uint8 { return uint8(word>>3) & 0x7 }

// bits [2:0]
func rtField(word uint16) uint8 { return uint8(word) & 0x7 }

func decodeNOP(_ uint16, _ *Instruction) {}

func decodeHLT(word uint16, inst *Instruction) {
	inst.Exit = (word>>8)&0x1 == 1 // bit 8
}

func decodeSYS(word uint16, inst *Instruction) {
	inst.Setting = uint8(word>>8) & 0x7 // bits [10:8]
	inst.Imm = uint8(word)              // bits [7:0]
}

func decodeCLI(word uint16, inst *Instruction) {
	inst.Rd = rdField(word)
	inst.Cond = Cond(word>>6) & 0x7 // bits [8:6]
	inst.Imm = uint8(word) & 0x3F   // bits [5:0]
}

func decodeAddr12(word uint16, inst *Instruction) {
	inst.Addr = word & 0xFFF // bits [11:0]
}

func decodeBRA(word uint16, inst *Instruction) {
	inst.Cond = Cond(word>>9) & 0x7             // bits [11:9]
	inst.BranchType = BranchType(word>>7) & 0x3 // bits [8:7]
	inst.Type = uint8(inst.BranchType)
	inst.Addr = word & 0x7F // bits [6:0]
}

func decodeRET(word uint16, inst *Instruction) {
	inst.Break = (word>>8)&0x1 == 1 // bit 8
}

func decodeRdAddr9(word uint16, inst *Instruction) {
	inst.Rd = rdField(word)
	inst.Addr = word & 0x1FF // bits [8:0]
}

func decodeRsAddr9(word uint16, inst *Instruction) {
	inst.Rs = rdField(word)
	inst.Addr = word & 0x1FF // bits [8:0]
}

func decodeSLD(word uint16, inst *Instruction) {
	inst.Rd = rdField(word)
	inst.Special = SpecialReg(word) & 0x7 // bits [2:0]
}

func decodeSST(word uint16, inst *Instruction) {
	inst.Special = SpecialReg(word>>9) & 0x7 // bits [11:9]
	inst.Rs = rsMid(word)
}

// signExtend7 sign-extends a 7-bit field from bit 6.
func signExtend7(v uint16) int8 {
	v &= 0x7F
	if v&0x40 != 0 {
		return int8(v | 0xFF80)
	}
	return int8(v)
}

func decodePOP(word uint16, inst *Instruction) {
	inst.Rd = rdField(word)
	inst.Type = uint8(word>>7) & 0x3 // bits [8:7]
	inst.Offset = signExtend7(word)  // bits [6:0]
}

func decodePSH(word uint16, inst *Instruction) {
	inst.Rs = rdField(word)
	inst.Type = uint8(word>>7) & 0x3 // bits [8:7]
	inst.Offset = signExtend7(word)  // bits [6:0]
}

func decodeLDI(word uint16, inst *Instruction) {
	inst.Rd = rdField(word)
	inst.Imm = uint8(word) // bits [7:0]
}

func decodeMOV(word uint16, inst *Instruction) {
	inst.Rd = rdField(word)
	inst.Rs = rsMid(word)
}

func decodeADI(word uint16, inst *Instruction) {
	inst.Rd = rdField(word)
	inst.Rs = rsMid(word)
	inst.Imm = uint8(word) & 0x3F // bits [5:0]
}

func decodeANI(word uint16, inst *Instruction) {
	inst.Rd = rdField(word)
	inst.Rs = inst.Rd
	inst.Imm = uint8(word) // bits [7:0]
}

func decodeRsImm8(word uint16, inst *Instruction) {
	inst.Rs = rdField(word)
	inst.Imm = uint8(word) // bits [7:0]
}

func decodeThreeReg(word uint16, inst *Instruction) {
	inst.Rd = rdField(word)
	inst.Rs = rsMid(word)
	inst.Type = typeField(word)
	inst.Rt = rtField(word)
}

func decodeBSI(word uint16, inst *Instruction) {
	inst.Rd = rdField(word)
	inst.Rs = rsMid(word)
	inst.Type = typeField(word)
	inst.Imm = uint8(word) & 0x7 // bits [2:0]
}

func decodeMUL(word uint16, inst *Instruction) {
	decodeThreeReg(word, inst)

	switch inst.MulDivType() {
	case MulLow, MulHigh:
		inst.ExecuteCycles = 4
	case MulDiv, MulMod:
		inst.ExecuteCycles = 8
	}
}

func decodeBTC(word uint16, inst *Instruction) {
	inst.Rd = rdField(word)
	inst.Rs = rsMid(word)
	inst.Type = typeField(word)

	switch inst.BitCountType() {
	case BitCountSqrt:
		inst.ExecuteCycles = 8
	case BitCountCLZ, BitCountCTZ:
		inst.ExecuteCycles = 2
	case BitCountOnes:
		inst.ExecuteCycles = 3
	}
}

func decodeOPI(word uint16, inst *Instruction) {
	inst.Addr = (word >> 8) & 0xF // bits [11:8]
	inst.Imm = uint8(word)        // bits [7:0]
}

func decodeCPC(word uint16, inst *Instruction) {
	inst.CoprocCmd = word & 0xFFF // bits [11:0]
}

// setMetadata fills in the per-class control metadata.
func setMetadata(inst *Instruction) {
	switch inst.Class {
	case ClassHLT, ClassJMP, ClassCAL, ClassRET, ClassPSH, ClassMST, ClassCPC:
		inst.HaltsExecution = true
	case ClassCLI, ClassLDI, ClassSLD:
		inst.WritesToRegister = true
	case ClassINP, ClassMLD:
		inst.WritesToRegister = true
		inst.HaltsExecution = true
	case ClassPOP:
		inst.WritesToRegister = inst.StackType() != StackDecrementSP
		inst.HaltsExecution = true
	case ClassMOV, ClassADI, ClassANI, ClassADD, ClassSUB, ClassBIT, ClassBNT,
		ClassBSH, ClassBSI:
		inst.WritesToRegister = true
		inst.UpdatesFlags = true
	case ClassCPI, ClassTSI:
		inst.UpdatesFlags = true
	case ClassMUL, ClassBTC:
		inst.WritesToRegister = true
		inst.UpdatesFlags = true
		inst.HaltsExecution = true
	}
}

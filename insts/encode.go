package insts

import (
	"errors"
	"fmt"
)

// Encoding errors.
var (
	// ErrEncodingConflict means a field's bit 11 disagrees with the class LSB.
	ErrEncodingConflict = errors.New("field conflicts with opcode class bit 11")

	// ErrFieldRange means a field value does not fit its width.
	ErrFieldRange = errors.New("field out of range")
)

// encode assembles a word from a class and a 12-bit body. When the class
// layout places a field at bit 11, that bit must match the class LSB.
func encode(class Class, body uint16, usesBit11 bool) (uint16, error) {
	if body > 0xFFF {
		return 0, fmt.Errorf("%s body 0x%X: %w", class, body, ErrFieldRange)
	}

	classBit := uint16(class) & 0x1
	if usesBit11 && (body>>11)&0x1 != classBit {
		return 0, fmt.Errorf("%s body 0x%03X: %w", class, body, ErrEncodingConflict)
	}

	return uint16(class)<<11 | body&0x7FF, nil
}

func checkWidth(name string, v uint16, width uint) error {
	if v >= 1<<width {
		return fmt.Errorf("%s=%d exceeds %d bits: %w", name, v, width, ErrFieldRange)
	}
	return nil
}

func checkAll(checks ...error) error {
	return errors.Join(checks...)
}

// MustEncode panics if err is non-nil and returns word otherwise. It is
// meant for fixed programs and test fixtures.
func MustEncode(word uint16, err error) uint16 {
	if err != nil {
		panic(err)
	}
	return word
}

// EncodeNOP encodes a NOP.
func EncodeNOP() uint16 {
	return 0
}

// EncodeHLT encodes a HLT. With exit set the machine reports an exit.
func EncodeHLT(exit bool) uint16 {
	w := uint16(ClassHLT) << 11
	if exit {
		w |= 1 << 8
	}
	return w
}

// EncodeSYS encodes a SYS with a 3-bit setting and an 8-bit immediate.
func EncodeSYS(setting, imm uint8) (uint16, error) {
	if err := checkWidth("setting", uint16(setting), 3); err != nil {
		return 0, err
	}
	return encode(ClassSYS, uint16(setting)<<8|uint16(imm), false)
}

// EncodeCLI encodes a conditional load of a 6-bit immediate.
func EncodeCLI(rd uint8, cond Cond, imm6 uint8) (uint16, error) {
	if err := checkAll(
		checkWidth("rd", uint16(rd), 3),
		checkWidth("cond", uint16(cond), 3),
		checkWidth("imm6", uint16(imm6), 6),
	); err != nil {
		return 0, err
	}
	return encode(ClassCLI, uint16(rd)<<9|uint16(cond)<<6|uint16(imm6), true)
}

// EncodeJMP encodes an absolute jump.
func EncodeJMP(addr uint16) (uint16, error) {
	if err := checkWidth("addr", addr, 12); err != nil {
		return 0, err
	}
	return encode(ClassJMP, addr, true)
}

// EncodeCAL encodes a call.
func EncodeCAL(addr uint16) (uint16, error) {
	if err := checkWidth("addr", addr, 12); err != nil {
		return 0, err
	}
	return encode(ClassCAL, addr, true)
}

// EncodeBRA encodes a branch within the current 128-word region.
func EncodeBRA(cond Cond, typ BranchType, addr7 uint16) (uint16, error) {
	if err := checkAll(
		checkWidth("cond", uint16(cond), 3),
		checkWidth("type", uint16(typ), 2),
		checkWidth("addr", addr7, 7),
	); err != nil {
		return 0, err
	}
	return encode(ClassBRA, uint16(cond)<<9|uint16(typ)<<7|addr7, true)
}

// EncodeRET encodes a return. With brk set it returns to the oldest frame.
func EncodeRET(brk bool) uint16 {
	w := uint16(ClassRET) << 11
	if brk {
		w |= 1 << 8
	}
	return w
}

func encodeRegAddr9(class Class, r uint8, addr uint16) (uint16, error) {
	if err := checkAll(
		checkWidth("reg", uint16(r), 3),
		checkWidth("addr", addr, 9),
	); err != nil {
		return 0, err
	}
	return encode(class, uint16(r)<<9|addr, true)
}

// EncodeINP encodes a port read into rd.
func EncodeINP(rd uint8, port uint16) (uint16, error) {
	return encodeRegAddr9(ClassINP, rd, port)
}

// EncodeOUT encodes a port write from rs.
func EncodeOUT(rs uint8, port uint16) (uint16, error) {
	return encodeRegAddr9(ClassOUT, rs, port)
}

// EncodeMLD encodes a data memory load at AP+addr.
func EncodeMLD(rd uint8, addr uint16) (uint16, error) {
	return encodeRegAddr9(ClassMLD, rd, addr)
}

// EncodeMST encodes a data memory store at AP+addr.
func EncodeMST(rs uint8, addr uint16) (uint16, error) {
	return encodeRegAddr9(ClassMST, rs, addr)
}

// EncodeSLD encodes a special register load.
func EncodeSLD(rd uint8, sr SpecialReg) (uint16, error) {
	if err := checkAll(
		checkWidth("rd", uint16(rd), 3),
		checkWidth("special", uint16(sr), 3),
	); err != nil {
		return 0, err
	}
	return encode(ClassSLD, uint16(rd)<<9|uint16(sr), true)
}

// EncodeSST encodes a special register store.
func EncodeSST(sr SpecialReg, rs uint8) (uint16, error) {
	if err := checkAll(
		checkWidth("special", uint16(sr), 3),
		checkWidth("rs", uint16(rs), 3),
	); err != nil {
		return 0, err
	}
	return encode(ClassSST, uint16(sr)<<9|uint16(rs)<<6, true)
}

func encodeStack(class Class, r, typ uint8, off int8) (uint16, error) {
	if off < -64 || off > 63 {
		return 0, fmt.Errorf("offset=%d exceeds 7 bits: %w", off, ErrFieldRange)
	}
	if err := checkWidth("reg", uint16(r), 3); err != nil {
		return 0, err
	}
	body := uint16(r)<<9 | uint16(typ&0x3)<<7 | uint16(uint8(off))&0x7F
	return encode(class, body, true)
}

// EncodePOP encodes a stack read into rd.
func EncodePOP(rd uint8, typ StackType, off int8) (uint16, error) {
	if err := checkWidth("type", uint16(typ), 2); err != nil {
		return 0, err
	}
	return encodeStack(ClassPOP, rd, uint8(typ), off)
}

// EncodePSH encodes a stack write from rs.
func EncodePSH(rs uint8, typ PushType, off int8) (uint16, error) {
	if err := checkWidth("type", uint16(typ), 2); err != nil {
		return 0, err
	}
	return encodeStack(ClassPSH, rs, uint8(typ), off)
}

func encodeRegImm8(class Class, r, imm uint8) (uint16, error) {
	if err := checkWidth("reg", uint16(r), 3); err != nil {
		return 0, err
	}
	return encode(class, uint16(r)<<9|uint16(imm), true)
}

// EncodeLDI encodes a load immediate.
func EncodeLDI(rd, imm uint8) (uint16, error) {
	return encodeRegImm8(ClassLDI, rd, imm)
}

// EncodeANI encodes rd = rd & imm.
func EncodeANI(rd, imm uint8) (uint16, error) {
	return encodeRegImm8(ClassANI, rd, imm)
}

// EncodeCPI encodes a compare of rs against imm.
func EncodeCPI(rs, imm uint8) (uint16, error) {
	return encodeRegImm8(ClassCPI, rs, imm)
}

// EncodeTSI encodes a test of rs against imm.
func EncodeTSI(rs, imm uint8) (uint16, error) {
	return encodeRegImm8(ClassTSI, rs, imm)
}

// EncodeMOV encodes rd = rs.
func EncodeMOV(rd, rs uint8) (uint16, error) {
	if err := checkAll(
		checkWidth("rd", uint16(rd), 3),
		checkWidth("rs", uint16(rs), 3),
	); err != nil {
		return 0, err
	}
	return encode(ClassMOV, uint16(rd)<<9|uint16(rs)<<6, true)
}

// EncodeADI encodes rd = rs + imm6.
func EncodeADI(rd, rs, imm6 uint8) (uint16, error) {
	if err := checkAll(
		checkWidth("rd", uint16(rd), 3),
		checkWidth("rs", uint16(rs), 3),
		checkWidth("imm6", uint16(imm6), 6),
	); err != nil {
		return 0, err
	}
	return encode(ClassADI, uint16(rd)<<9|uint16(rs)<<6|uint16(imm6), true)
}

// EncodeRRR encodes a register-register class: ADD, SUB, BIT, BNT, BSH or
// MUL.
func EncodeRRR(class Class, rd, rs, typ, rt uint8) (uint16, error) {
	switch class {
	case ClassADD, ClassSUB, ClassBIT, ClassBNT, ClassBSH, ClassMUL:
	default:
		return 0, fmt.Errorf("%s is not a register-register class: %w",
			class, ErrFieldRange)
	}

	if err := checkAll(
		checkWidth("rd", uint16(rd), 3),
		checkWidth("rs", uint16(rs), 3),
		checkWidth("type", uint16(typ), 3),
		checkWidth("rt", uint16(rt), 3),
	); err != nil {
		return 0, err
	}

	body := uint16(rd)<<9 | uint16(rs)<<6 | uint16(typ)<<3 | uint16(rt)
	return encode(class, body, true)
}

// EncodeBSI encodes a shift of rs by a 3-bit immediate.
func EncodeBSI(rd, rs uint8, typ ShiftType, imm3 uint8) (uint16, error) {
	if err := checkAll(
		checkWidth("rd", uint16(rd), 3),
		checkWidth("rs", uint16(rs), 3),
		checkWidth("type", uint16(typ), 2),
		checkWidth("imm3", uint16(imm3), 3),
	); err != nil {
		return 0, err
	}
	body := uint16(rd)<<9 | uint16(rs)<<6 | uint16(typ)<<3 | uint16(imm3)
	return encode(ClassBSI, body, true)
}

// EncodeBTC encodes a bit-count operation.
func EncodeBTC(rd, rs uint8, typ BitCountType) (uint16, error) {
	if err := checkAll(
		checkWidth("rd", uint16(rd), 3),
		checkWidth("rs", uint16(rs), 3),
		checkWidth("type", uint16(typ), 3),
	); err != nil {
		return 0, err
	}
	return encode(ClassBTC, uint16(rd)<<9|uint16(rs)<<6|uint16(typ)<<3, true)
}

// EncodeOPI encodes an immediate write to a 4-bit port address.
func EncodeOPI(port uint8, imm uint8) (uint16, error) {
	if err := checkWidth("port", uint16(port), 4); err != nil {
		return 0, err
	}
	return encode(ClassOPI, uint16(port)<<8|uint16(imm), true)
}

// EncodeCPC encodes a coprocessor command.
func EncodeCPC(cmd uint16) (uint16, error) {
	if err := checkWidth("cmd", cmd, 12); err != nil {
		return 0, err
	}
	return encode(ClassCPC, cmd, true)
}

package emu

import (
	"fmt"

	"github.com/sarchlab/p8sim/insts"
)

// Outcome is the result of executing one instruction. Flags, special
// registers, memory and the call stack are updated during execution; the
// register write is returned so the caller decides when to commit it.
type Outcome struct {
	Rd       uint8
	Value    uint8
	WriteReg bool

	NextPC uint16
	Taken  bool // control transferred away from pc+1

	Halt bool
	Exit bool

	Err error
}

type handler func(x *Executor, inst *insts.Instruction, pc uint16, out *Outcome)

// handlers is indexed by opcode class.
var handlers = [insts.NumClasses]handler{
	insts.ClassNOP: execNOP,
	insts.ClassHLT: execHLT,
	insts.ClassSYS: execSYS,
	insts.ClassCLI: execCLI,
	insts.ClassJMP: execJMP,
	insts.ClassBRA: execBRA,
	insts.ClassCAL: execCAL,
	insts.ClassRET: execRET,
	insts.ClassINP: execINP,
	insts.ClassOUT: execOUT,
	insts.ClassSLD: execSLD,
	insts.ClassSST: execSST,
	insts.ClassPOP: execPOP,
	insts.ClassPSH: execPSH,
	insts.ClassMLD: execMLD,
	insts.ClassMST: execMST,
	insts.ClassLDI: execLDI,
	insts.ClassMOV: execMOV,
	insts.ClassADI: execADI,
	insts.ClassANI: execANI,
	insts.ClassCPI: execCPI,
	insts.ClassTSI: execTSI,
	insts.ClassADD: execADD,
	insts.ClassSUB: execSUB,
	insts.ClassBIT: execBIT,
	insts.ClassBNT: execBNT,
	insts.ClassBSH: execBSH,
	insts.ClassBSI: execBSI,
	insts.ClassMUL: execMUL,
	insts.ClassBTC: execBTC,
	insts.ClassOPI: execOPI,
	insts.ClassCPC: execCPC,
}

func init() {
	for class, h := range handlers {
		if h == nil {
			panic(fmt.Sprintf("emu: no handler for class %s", insts.Class(class)))
		}
	}
}

// Executor executes decoded instructions against a Machine.
type Executor struct {
	m      *Machine
	data   DataMemory
	io     IOBus
	coproc Coprocessor
}

// ExecutorOption is a functional option for configuring the Executor.
type ExecutorOption func(*Executor)

// WithIOBus attaches an I/O bus. Without one, inputs read 0 and outputs
// are dropped.
func WithIOBus(bus IOBus) ExecutorOption {
	return func(x *Executor) {
		x.io = bus
	}
}

// WithCoprocessor attaches a coprocessor command sink.
func WithCoprocessor(c Coprocessor) ExecutorOption {
	return func(x *Executor) {
		x.coproc = c
	}
}

// NewExecutor creates an executor over the given machine and data memory.
func NewExecutor(m *Machine, data DataMemory, opts ...ExecutorOption) *Executor {
	x := &Executor{m: m, data: data}

	for _, opt := range opts {
		opt(x)
	}

	return x
}

// Machine returns the machine the executor mutates.
func (x *Executor) Machine() *Machine {
	return x.m
}

// Execute runs inst fetched from pc. Register operands are read from the
// machine's register file at call time.
func (x *Executor) Execute(inst *insts.Instruction, pc uint16) Outcome {
	out := Outcome{NextPC: pc + 1}

	if inst == nil {
		return out
	}

	handlers[inst.Class](x, inst, pc, &out)

	return out
}

func (x *Executor) reg(r uint8) uint8 {
	return x.m.Regs.ReadReg(r)
}

// result writes r to rd and applies flags when the instruction updates them.
func (x *Executor) result(inst *insts.Instruction, out *Outcome, r Result) {
	if inst.UpdatesFlags {
		x.m.Flags.Apply(r)
	}
	out.Rd = inst.Rd
	out.Value = r.Value
	out.WriteReg = true
}

// flagsOnly applies flags without a register write.
func (x *Executor) flagsOnly(r Result) {
	x.m.Flags.Apply(r)
}

func execNOP(_ *Executor, _ *insts.Instruction, _ uint16, _ *Outcome) {}

func execHLT(_ *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	out.Halt = true
	out.Exit = inst.Exit
}

func execSYS(x *Executor, inst *insts.Instruction, _ uint16, _ *Outcome) {
	switch inst.Setting {
	case 0:
		x.m.AlternateConditions = inst.Imm&0x1 == 1
	case 1:
		x.m.Control = inst.Imm
	case 2:
		x.m.Flags.Clear()
	}
}

func execCLI(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	if ConditionHolds(inst.Cond, &x.m.Flags, x.m.AlternateConditions) {
		out.Rd = inst.Rd
		out.Value = inst.Imm
		out.WriteReg = true
	}
}

func execJMP(_ *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	out.NextPC = inst.Addr
	out.Taken = true
}

func execBRA(x *Executor, inst *insts.Instruction, pc uint16, out *Outcome) {
	if !ConditionHolds(inst.Cond, &x.m.Flags, x.m.AlternateConditions) {
		return
	}
	out.NextPC = BranchTarget(inst, pc, x.m.AP, x.m.BO)
	out.Taken = true
}

func execCAL(x *Executor, inst *insts.Instruction, pc uint16, out *Outcome) {
	if err := x.m.Calls.Push(pc + 1); err != nil {
		out.Err = err
		return
	}
	out.NextPC = inst.Addr
	out.Taken = true
}

func execRET(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	var (
		addr uint16
		err  error
	)

	if inst.Break {
		addr, err = x.m.Calls.Unwind()
	} else {
		addr, err = x.m.Calls.Pop()
	}

	if err != nil {
		out.Err = err
		return
	}

	out.NextPC = addr
	out.Taken = true
}

func execINP(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	var v uint8
	if x.io != nil {
		v = x.io.Read(inst.Addr)
	}
	out.Rd = inst.Rd
	out.Value = v
	out.WriteReg = true
}

func execOUT(x *Executor, inst *insts.Instruction, _ uint16, _ *Outcome) {
	if x.io != nil {
		x.io.Write(inst.Addr, x.reg(inst.Rs))
	}
}

func execOPI(x *Executor, inst *insts.Instruction, _ uint16, _ *Outcome) {
	if x.io != nil {
		x.io.Write(inst.Addr, inst.Imm)
	}
}

func execSLD(x *Executor, inst *insts.Instruction, pc uint16, out *Outcome) {
	out.Rd = inst.Rd
	out.Value = x.m.ReadSpecial(inst.Special, pc)
	out.WriteReg = true
}

func execSST(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	out.Err = x.m.WriteSpecial(inst.Special, x.reg(inst.Rs))
}

func execPOP(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	var (
		v   uint8
		err error
	)

	switch inst.StackType() {
	case insts.StackPop:
		v, err = x.m.Pop(x.data, inst.Offset)
	case insts.StackPeek:
		v, err = x.m.Peek(x.data, inst.Offset)
	case insts.StackPopFlags:
		v, err = x.m.Pop(x.data, inst.Offset)
		if err == nil {
			x.m.Flags.Set(v)
		}
	case insts.StackDecrementSP:
		out.Err = x.m.DecrementSP()
		return
	}

	if err != nil {
		out.Err = err
		return
	}

	out.Rd = inst.Rd
	out.Value = v
	out.WriteReg = true
}

func execPSH(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	switch inst.PushType() {
	case insts.PushPush:
		out.Err = x.m.Push(x.data, x.reg(inst.Rs), inst.Offset)
	case insts.PushPoke:
		out.Err = x.m.Poke(x.data, x.reg(inst.Rs), inst.Offset)
	case insts.PushFlags:
		out.Err = x.m.Push(x.data, x.m.Flags.Byte(), inst.Offset)
	case insts.PushIncrementSP:
		out.Err = x.m.IncrementSP()
	}
}

func (x *Executor) effectiveAddr(inst *insts.Instruction) uint16 {
	return uint16(x.m.AP) + inst.Addr
}

func execMLD(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	v, err := x.data.Read(x.effectiveAddr(inst))
	if err != nil {
		out.Err = err
		return
	}
	out.Rd = inst.Rd
	out.Value = v
	out.WriteReg = true
}

func execMST(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	out.Err = x.data.Write(x.effectiveAddr(inst), x.reg(inst.Rs))
}

func execLDI(_ *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	out.Rd = inst.Rd
	out.Value = inst.Imm
	out.WriteReg = true
}

func execMOV(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	x.result(inst, out, Result{Value: x.reg(inst.Rs)})
}

func execADI(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	x.result(inst, out, Add(x.reg(inst.Rs), inst.Imm))
}

func execANI(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	x.result(inst, out, And(x.reg(inst.Rs), inst.Imm))
}

func execCPI(x *Executor, inst *insts.Instruction, _ uint16, _ *Outcome) {
	x.flagsOnly(Sub(x.reg(inst.Rs), inst.Imm))
}

func execTSI(x *Executor, inst *insts.Instruction, _ uint16, _ *Outcome) {
	x.flagsOnly(And(x.reg(inst.Rs), inst.Imm))
}

func execADD(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	a, b, c := x.reg(inst.Rs), x.reg(inst.Rt), x.m.Flags.Carry()

	var r Result
	switch inst.AddType() {
	case insts.AddPlain:
		r = Add(a, b)
	case insts.AddWithCarry:
		r = AddWithCarry(a, b, c)
	case insts.AddVector:
		r = AddVector(a, b, false)
	case insts.AddVectorCarry:
		r = AddVector(a, b, c)
	}

	x.result(inst, out, r)
}

func execSUB(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	a, b, c := x.reg(inst.Rs), x.reg(inst.Rt), x.m.Flags.Carry()

	var r Result
	switch inst.SubType() {
	case insts.SubPlain:
		r = Sub(a, b)
	case insts.SubWithBorrow:
		r = SubWithBorrow(a, b, c)
	case insts.SubVector:
		r = SubVector(a, b, false)
	case insts.SubVectorBorrow:
		r = SubVector(a, b, c)
	}

	x.result(inst, out, r)
}

func execBIT(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	a, b := x.reg(inst.Rs), x.reg(inst.Rt)

	var r Result
	switch inst.BitwiseType() {
	case insts.BitwiseOr:
		r = Or(a, b)
	case insts.BitwiseAnd:
		r = And(a, b)
	case insts.BitwiseXor:
		r = Xor(a, b)
	case insts.BitwiseImplies:
		r = Implies(a, b)
	}

	x.result(inst, out, r)
}

func execBNT(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	a, b := x.reg(inst.Rs), x.reg(inst.Rt)

	var r Result
	switch inst.InvBitwiseType() {
	case insts.InvBitwiseNor:
		r = Nor(a, b)
	case insts.InvBitwiseNand:
		r = Nand(a, b)
	case insts.InvBitwiseXnor:
		r = Xnor(a, b)
	case insts.InvBitwiseNotImplies:
		r = NotImplies(a, b)
	}

	x.result(inst, out, r)
}

func execBSH(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	r := Shift(inst.ShiftType(), x.reg(inst.Rs), x.reg(inst.Rt), x.m.Flags.Carry())
	x.result(inst, out, r)
}

func execBSI(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	r := Shift(inst.ShiftType(), x.reg(inst.Rs), inst.Imm, x.m.Flags.Carry())
	x.result(inst, out, r)
}

func execMUL(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	a, b := x.reg(inst.Rs), x.reg(inst.Rt)

	var r Result
	switch inst.MulDivType() {
	case insts.MulLow:
		r = MultiplyLow(a, b)
	case insts.MulHigh:
		r = MultiplyHigh(a, b)
	case insts.MulDiv:
		r = Divide(a, b)
	case insts.MulMod:
		r = Modulo(a, b)
	}

	x.result(inst, out, r)
}

func execBTC(x *Executor, inst *insts.Instruction, _ uint16, out *Outcome) {
	a := x.reg(inst.Rs)

	var r Result
	switch inst.BitCountType() {
	case insts.BitCountSqrt:
		r = SquareRoot(a)
	case insts.BitCountCLZ:
		r = CountLeadingZeros(a)
	case insts.BitCountCTZ:
		r = CountTrailingZeros(a)
	case insts.BitCountOnes:
		r = CountOnes(a)
	}

	x.result(inst, out, r)
}

func execCPC(x *Executor, inst *insts.Instruction, _ uint16, _ *Outcome) {
	if x.coproc != nil {
		x.coproc.Command(inst.CoprocCmd)
	}
}

package benchmarks

import (
	"github.com/sarchlab/p8sim/insts"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each
// benchmark targets a specific pipeline characteristic and ends with an
// exiting HLT.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memoryStrided(),
		functionCalls(),
		branchTaken(),
		loopSimulation(),
		sumLoop(),
		complexMath(),
		stackRoundTrip(),
	}
}

// GetCoreBenchmarks returns a minimal set of benchmarks for quick
// validation: a loop, straight-line jumps and dependent arithmetic.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSimulation(),
		branchTaken(),
		dependencyChain(),
	}
}

func enc(word uint16, err error) uint16 {
	return insts.MustEncode(word, err)
}

func halt() uint16 {
	return insts.EncodeHLT(true)
}

// Independent ADIs rotating over three registers. A producer is three
// instructions ahead of its next consumer, so no stalls occur.
func arithmeticSequential() Benchmark {
	program := make([]uint16, 0, 19)
	for i := 0; i < 6; i++ {
		program = append(program,
			enc(insts.EncodeADI(1, 1, 1)),
			enc(insts.EncodeADI(2, 2, 1)),
			enc(insts.EncodeADI(3, 3, 1)),
		)
	}
	program = append(program, halt())

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "18 independent ADIs over three registers - measures ALU throughput",
		Program:     program,
		ResultReg:   1,
		Expected:    6,
	}
}

func dependencyChain() Benchmark {
	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent ADIs (R1 = R1 + 1) - measures RAW stall cost",
		Program:     buildDependencyChain(20),
		ResultReg:   1,
		Expected:    20,
	}
}

func buildDependencyChain(n int) []uint16 {
	program := make([]uint16, 0, n+1)
	for i := 0; i < n; i++ {
		program = append(program, enc(insts.EncodeADI(1, 1, 1)))
	}
	return append(program, halt())
}

// Store/load pairs that alternate between the three non-stack data pages.
// Each load is accumulated into R3.
func memoryStrided() Benchmark {
	program := []uint16{
		enc(insts.EncodeLDI(1, 42)),
		enc(insts.EncodeMOV(4, 1)),
	}
	for i := 0; i < 10; i++ {
		addr := uint16(i%3*64 + i)
		program = append(program,
			enc(insts.EncodeMST(4, addr)),
			enc(insts.EncodeMLD(2, addr)),
			enc(insts.EncodeRRR(insts.ClassADD, 3, 3, uint8(insts.AddPlain), 2)),
		)
	}
	program = append(program, halt())

	return Benchmark{
		Name:        "memory_strided",
		Description: "10 store/load pairs across data pages - measures page swap traffic",
		Program:     program,
		ResultReg:   3,
		Expected:    uint8(10 * 42 % 256),
	}
}

// subroutineAddr is on a different instruction page than the caller.
const subroutineAddr = 0x100

func functionCalls() Benchmark {
	program := make([]uint16, subroutineAddr+2)
	for i := 0; i < 5; i++ {
		program[i] = enc(insts.EncodeCAL(subroutineAddr))
	}
	program[5] = halt()
	program[subroutineAddr] = enc(insts.EncodeADI(1, 1, 1))
	program[subroutineAddr+1] = insts.EncodeRET(false)

	return Benchmark{
		Name:        "function_calls",
		Description: "5 calls to a subroutine on another instruction page - measures call/return flushes",
		Program:     program,
		ResultReg:   1,
		Expected:    5,
	}
}

// Each block jumps over a poisoning LDI to its increment.
func branchTaken() Benchmark {
	const blocks = 5

	program := make([]uint16, 0, 3*blocks+1)
	for i := 0; i < blocks; i++ {
		next := uint16(len(program) + 2)
		program = append(program,
			enc(insts.EncodeJMP(next)),
			enc(insts.EncodeLDI(1, 99)),
			enc(insts.EncodeADI(1, 1, 1)),
		)
	}
	program = append(program, halt())

	return Benchmark{
		Name:        "branch_taken",
		Description: "5 unconditional jumps - measures decode-time redirect cost",
		Program:     program,
		ResultReg:   1,
		Expected:    blocks,
	}
}

func loopSimulation() Benchmark {
	return Benchmark{
		Name:        "loop_simulation",
		Description: "Count to 10 with a backward conditional branch - measures predictor training",
		Program: []uint16{
			enc(insts.EncodeLDI(1, 0)),
			enc(insts.EncodeADI(1, 1, 1)),
			enc(insts.EncodeCPI(1, 10)),
			enc(insts.EncodeBRA(insts.CondHS, insts.BranchAssumeNothing, 1)),
			halt(),
		},
		ResultReg: 1,
		Expected:  10,
	}
}

func sumLoop() Benchmark {
	return Benchmark{
		Name:        "sum_loop",
		Description: "Sum 1..10 with register adds - mixes RAW stalls and a loop branch",
		Program: []uint16{
			enc(insts.EncodeLDI(1, 0)),
			enc(insts.EncodeLDI(2, 1)),
			enc(insts.EncodeLDI(3, 1)),
			enc(insts.EncodeRRR(insts.ClassADD, 1, 1, uint8(insts.AddPlain), 2)),
			enc(insts.EncodeRRR(insts.ClassADD, 2, 2, uint8(insts.AddPlain), 3)),
			enc(insts.EncodeCPI(2, 11)),
			enc(insts.EncodeBRA(insts.CondHS, insts.BranchAssumeNothing, 3)),
			halt(),
		},
		ResultReg: 1,
		Expected:  55,
	}
}

// 7*6 = 42, 42/6 = 7, popcount(42) = 3, sqrt(42) = 6, 3+6 = 9.
func complexMath() Benchmark {
	return Benchmark{
		Name:        "complex_math",
		Description: "Multiply, divide, square root and popcount - measures multi-cycle latency",
		Program: []uint16{
			enc(insts.EncodeLDI(1, 7)),
			enc(insts.EncodeLDI(2, 6)),
			enc(insts.EncodeRRR(insts.ClassMUL, 3, 1, uint8(insts.MulLow), 2)),
			enc(insts.EncodeRRR(insts.ClassMUL, 1, 3, uint8(insts.MulDiv), 2)),
			enc(insts.EncodeBTC(4, 3, insts.BitCountOnes)),
			enc(insts.EncodeBTC(5, 3, insts.BitCountSqrt)),
			enc(insts.EncodeRRR(insts.ClassADD, 2, 4, uint8(insts.AddPlain), 5)),
			halt(),
		},
		ResultReg: 2,
		Expected:  9,
	}
}

// Pushes 1..4 and pops them back into a running sum.
func stackRoundTrip() Benchmark {
	program := make([]uint16, 0, 20)
	for v := uint8(1); v <= 4; v++ {
		program = append(program,
			enc(insts.EncodeLDI(1, v)),
			enc(insts.EncodeMOV(4, 1)),
			enc(insts.EncodePSH(4, insts.PushPush, 0)),
		)
	}
	program = append(program,
		enc(insts.EncodePOP(1, insts.StackPop, 0)),
		enc(insts.EncodePOP(2, insts.StackPop, 0)),
		enc(insts.EncodeRRR(insts.ClassADD, 3, 1, uint8(insts.AddPlain), 2)),
		enc(insts.EncodePOP(1, insts.StackPop, 0)),
		enc(insts.EncodeRRR(insts.ClassADD, 3, 3, uint8(insts.AddPlain), 1)),
		enc(insts.EncodePOP(1, insts.StackPop, 0)),
		enc(insts.EncodeRRR(insts.ClassADD, 3, 3, uint8(insts.AddPlain), 1)),
		halt(),
	)

	return Benchmark{
		Name:        "stack_round_trip",
		Description: "4 pushes then 4 pops into a sum - measures stack page traffic",
		Program:     program,
		ResultReg:   3,
		Expected:    10,
	}
}

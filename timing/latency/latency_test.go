package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/p8sim/insts"
	"github.com/sarchlab/p8sim/timing/latency"
)

var _ = Describe("Latency", func() {
	var (
		table   *latency.Table
		decoder *insts.Decoder
	)

	decode := func(word uint16, err error) *insts.Instruction {
		return decoder.Decode(insts.MustEncode(word, err))
	}

	BeforeEach(func() {
		table = latency.NewTable()
		decoder = insts.NewDecoder()
	})

	Describe("Default Timing Values", func() {
		It("should have single-cycle simple groups", func() {
			config := table.Config()
			Expect(config.ALULatency).To(Equal(uint64(1)))
			Expect(config.BranchLatency).To(Equal(uint64(1)))
			Expect(config.LoadLatency).To(Equal(uint64(1)))
			Expect(config.StoreLatency).To(Equal(uint64(1)))
			Expect(config.IOLatency).To(Equal(uint64(1)))
		})

		It("should have a 4 cycle page swap", func() {
			Expect(table.Config().PageSwapLatency).To(Equal(uint64(4)))
		})
	})

	Describe("ALU Instruction Latencies", func() {
		It("should return 1 cycle for ADD", func() {
			inst := decode(insts.EncodeRRR(insts.ClassADD, 1, 2, 0, 3))
			Expect(table.GetLatency(inst)).To(Equal(uint64(1)))
		})

		It("should return 1 cycle for ADI", func() {
			inst := decode(insts.EncodeADI(1, 2, 5))
			Expect(table.GetLatency(inst)).To(Equal(uint64(1)))
		})

		It("should return 1 cycle for BSI", func() {
			inst := decode(insts.EncodeBSI(5, 1, insts.ShiftLSL, 2))
			Expect(table.GetLatency(inst)).To(Equal(uint64(1)))
		})
	})

	Describe("Complex Instruction Latencies", func() {
		DescribeTable("MUL",
			func(typ insts.MulDivType, want uint64) {
				inst := decode(insts.EncodeRRR(insts.ClassMUL, 1, 2, uint8(typ), 3))
				Expect(table.GetLatency(inst)).To(Equal(want))
			},
			Entry("low", insts.MulLow, uint64(4)),
			Entry("high", insts.MulHigh, uint64(4)),
			Entry("divide", insts.MulDiv, uint64(8)),
			Entry("modulo", insts.MulMod, uint64(8)),
		)

		DescribeTable("BTC",
			func(typ insts.BitCountType, want uint64) {
				inst := decode(insts.EncodeBTC(5, 6, typ))
				Expect(table.GetLatency(inst)).To(Equal(want))
			},
			Entry("sqrt", insts.BitCountSqrt, uint64(8)),
			Entry("clz", insts.BitCountCLZ, uint64(2)),
			Entry("ctz", insts.BitCountCTZ, uint64(2)),
			Entry("ones", insts.BitCountOnes, uint64(3)),
		)

		It("should agree with the decoder's cycle counts", func() {
			for word := 0; word < 1<<16; word += 7 {
				inst := decoder.Decode(uint16(word))
				if inst.Class != insts.ClassMUL && inst.Class != insts.ClassBTC {
					continue
				}
				Expect(table.GetLatency(inst)).To(
					Equal(uint64(inst.ExecuteCycles)), inst.String())
			}
		})
	})

	Describe("Instruction Type Detection", func() {
		It("should detect memory operations", func() {
			Expect(table.IsMemoryOp(decode(insts.EncodeMLD(1, 10)))).To(BeTrue())
			Expect(table.IsMemoryOp(decode(insts.EncodeMST(5, 10)))).To(BeTrue())
			Expect(table.IsMemoryOp(decode(insts.EncodePOP(1, insts.StackPop, 0)))).To(BeTrue())
			Expect(table.IsMemoryOp(decode(insts.EncodeLDI(1, 10)))).To(BeFalse())
		})

		It("should detect branch operations", func() {
			Expect(table.IsBranchOp(decode(insts.EncodeJMP(10)))).To(BeTrue())
			Expect(table.IsBranchOp(decode(insts.EncodeCAL(10)))).To(BeTrue())
			Expect(table.IsBranchOp(decoder.Decode(insts.EncodeRET(false)))).To(BeTrue())
			Expect(table.IsBranchOp(decoder.Decode(insts.EncodeHLT(true)))).To(BeFalse())
		})

		It("should flag multi-cycle operations", func() {
			Expect(table.IsMultiCycle(decode(insts.EncodeRRR(insts.ClassMUL, 1, 2, 0, 3)))).To(BeTrue())
			Expect(table.IsMultiCycle(decode(insts.EncodeLDI(1, 10)))).To(BeFalse())
		})
	})

	Describe("Nil Instruction Handling", func() {
		It("should return 1 for nil instruction", func() {
			Expect(table.GetLatency(nil)).To(Equal(uint64(1)))
		})

		It("should return false for nil instruction checks", func() {
			Expect(table.IsMemoryOp(nil)).To(BeFalse())
			Expect(table.IsBranchOp(nil)).To(BeFalse())
		})
	})

	Describe("Custom Configuration", func() {
		It("should use custom config values", func() {
			config := latency.DefaultTimingConfig()
			config.DivideLatency = 20
			config.LoadLatency = 3
			table = latency.NewTableWithConfig(config)

			div := decode(insts.EncodeRRR(insts.ClassMUL, 1, 2, uint8(insts.MulMod), 3))
			Expect(table.GetLatency(div)).To(Equal(uint64(20)))
			Expect(table.GetLatency(decode(insts.EncodeMLD(1, 0)))).To(Equal(uint64(3)))
		})
	})
})

var _ = Describe("TimingConfig", func() {
	Describe("Validation", func() {
		It("should accept the default config", func() {
			Expect(latency.DefaultTimingConfig().Validate()).To(Succeed())
		})

		It("should reject zero ALU latency", func() {
			config := latency.DefaultTimingConfig()
			config.ALULatency = 0
			Expect(config.Validate()).To(MatchError(ContainSubstring("alu_latency")))
		})

		It("should reject zero sqrt latency", func() {
			config := latency.DefaultTimingConfig()
			config.SqrtLatency = 0
			Expect(config.Validate()).To(MatchError(ContainSubstring("sqrt_latency")))
		})

		It("should reject a multiply slower than divide", func() {
			config := latency.DefaultTimingConfig()
			config.MultiplyLatency = 9
			Expect(config.Validate()).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			clone := original.Clone()
			clone.ALULatency = 100

			Expect(original.ALULatency).To(Equal(uint64(1)))
			Expect(clone.ALULatency).To(Equal(uint64(100)))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := latency.DefaultTimingConfig()
			original.DivideLatency = 12
			original.PageSwapLatency = 6

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for fields missing from the file", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"sqrt_latency": 16}`), 0644)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.SqrtLatency).To(Equal(uint64(16)))
			Expect(loaded.MultiplyLatency).To(Equal(uint64(4)))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})

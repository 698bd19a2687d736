package core_test

import (
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/p8sim/emu"
	"github.com/sarchlab/p8sim/insts"
	"github.com/sarchlab/p8sim/timing/cache"
	"github.com/sarchlab/p8sim/timing/core"
)

func flash(words ...uint16) *cache.InstructionMemory {
	im := cache.NewInstructionMemory(cache.DefaultInstructionConfig())
	image := make([]uint16, im.Size())
	copy(image, words)
	Expect(im.Flash(image)).To(Succeed())
	return im
}

var _ = Describe("Core", func() {
	var (
		machine *emu.Machine
		data    *cache.DataMemory
	)

	// Counts R1 up to 5.
	countLoop := func() *cache.InstructionMemory {
		return flash(
			insts.MustEncode(insts.EncodeLDI(1, 0)),
			insts.MustEncode(insts.EncodeADI(1, 1, 1)),
			insts.MustEncode(insts.EncodeCPI(1, 5)),
			insts.MustEncode(insts.EncodeBRA(insts.CondHS, insts.BranchAssumeNothing, 1)),
			insts.EncodeHLT(true),
		)
	}

	BeforeEach(func() {
		machine = emu.NewMachine()
		data = cache.NewDataMemory(cache.DefaultDataConfig())
	})

	It("should not be halted initially", func() {
		c := core.NewCore(machine, countLoop(), data)
		Expect(c.Halted()).To(BeFalse())
		Expect(c.Snapshot().PC).To(BeZero())
	})

	It("should execute instructions through Step", func() {
		c := core.NewCore(machine, flash(
			insts.MustEncode(insts.EncodeLDI(1, 42)),
			insts.EncodeHLT(true),
		), data)

		var err error
		for err == nil {
			err = c.Step()
		}

		Expect(err).To(MatchError(core.ErrHalted))
		Expect(c.Exited()).To(BeTrue())
		Expect(machine.Regs.ReadReg(1)).To(Equal(uint8(42)))
	})

	It("should return the fault from Step", func() {
		c := core.NewCore(machine, flash(
			insts.MustEncode(insts.EncodeMLD(1, 400)),
		), data)

		var err error
		for i := 0; i < 10 && err == nil; i++ {
			err = c.Step()
		}

		var addrErr *cache.AddressError
		Expect(errors.As(err, &addrErr)).To(BeTrue())
		Expect(c.Step()).To(MatchError(err))
	})

	It("should return stats", func() {
		c := core.NewCore(machine, countLoop(), data)
		Expect(c.Run()).To(Succeed())

		stats := c.Stats()
		Expect(stats.Cycles).To(BeNumerically(">", stats.Instructions))
		Expect(stats.Instructions).To(BeNumerically(">", 0))
		Expect(stats.CPI()).To(BeNumerically(">", 1.0))
		Expect(c.PipelineStats().Cycles).To(Equal(stats.Cycles))
	})

	It("should run for a fixed number of cycles", func() {
		c := core.NewCore(machine, countLoop(), data)

		Expect(c.RunCycles(3)).To(BeTrue())
		Expect(c.Stats().Cycles).To(Equal(uint64(3)))
	})

	It("should snapshot a consistent state while a clock goroutine steps", func() {
		c := core.NewCore(machine, countLoop(), data)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c.Step() == nil {
			}
		}()

		var last uint64
		for !c.Halted() {
			snap := c.Snapshot()
			Expect(snap.Stats.Cycles).To(BeNumerically(">=", last))
			last = snap.Stats.Cycles
		}
		wg.Wait()

		snap := c.Snapshot()
		Expect(snap.Halted).To(BeTrue())
		Expect(snap.Exited).To(BeTrue())
		Expect(snap.State.Regs[1]).To(Equal(uint8(5)))
	})

	It("should reset", func() {
		c := core.NewCore(machine, countLoop(), data)
		Expect(c.Run()).To(Succeed())

		c.Reset()
		Expect(c.Halted()).To(BeFalse())
		Expect(c.Stats().Cycles).To(BeZero())

		c.SetPC(4)
		Expect(c.Run()).To(Succeed())
		Expect(c.Stats().Instructions).To(Equal(uint64(1)))
	})
})

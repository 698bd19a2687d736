package emu_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/p8sim/emu"
	"github.com/sarchlab/p8sim/insts"
	"github.com/sarchlab/p8sim/timing/cache"
)

var _ = Describe("Machine", func() {
	var (
		m    *emu.Machine
		data *cache.DataMemory
	)

	BeforeEach(func() {
		m = emu.NewMachine()
		data = cache.NewDataMemory(cache.DefaultDataConfig())
	})

	It("should reset SP to the bottom of the stack", func() {
		Expect(m.SP).To(Equal(uint8(emu.StackPointerMin)))
	})

	Describe("CallStack", func() {
		It("should pop in reverse order", func() {
			Expect(m.Calls.Push(10)).To(Succeed())
			Expect(m.Calls.Push(20)).To(Succeed())

			addr, err := m.Calls.Pop()
			Expect(err).ToNot(HaveOccurred())
			Expect(addr).To(Equal(uint16(20)))
			Expect(m.Calls.Depth()).To(Equal(1))
		})

		It("should unwind to the oldest entry", func() {
			for i := uint16(1); i <= 5; i++ {
				Expect(m.Calls.Push(i)).To(Succeed())
			}

			addr, err := m.Calls.Unwind()
			Expect(err).ToNot(HaveOccurred())
			Expect(addr).To(Equal(uint16(1)))
			Expect(m.Calls.Depth()).To(BeZero())
		})

		It("should fail on overflow and underflow", func() {
			for i := 0; i < emu.CallStackDepth; i++ {
				Expect(m.Calls.Push(uint16(i))).To(Succeed())
			}

			var stackErr *emu.StackError
			Expect(errors.As(m.Calls.Push(0), &stackErr)).To(BeTrue())
			Expect(stackErr.Op).To(Equal("overflow"))

			m.Calls.Clear()
			_, err := m.Calls.Pop()
			Expect(errors.As(err, &stackErr)).To(BeTrue())
			Expect(stackErr.Op).To(Equal("underflow"))
		})
	})

	Describe("Data stack", func() {
		It("should round-trip push and pop on the stack page", func() {
			Expect(m.Push(data, 0x11, 0)).To(Succeed())
			Expect(m.Push(data, 0x22, 0)).To(Succeed())
			Expect(m.SP).To(Equal(uint8(33)))

			v, err := data.Read(emu.StackBase + 31)
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(Equal(uint8(0x11)))

			v, err = m.Pop(data, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(Equal(uint8(0x22)))

			v, err = m.Pop(data, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(Equal(uint8(0x11)))
			Expect(m.SP).To(Equal(uint8(emu.StackPointerMin)))
		})

		It("should peek and poke without moving SP", func() {
			Expect(m.Push(data, 0x33, 0)).To(Succeed())
			Expect(m.Poke(data, 0x44, 5)).To(Succeed())

			v, err := m.Peek(data, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(Equal(uint8(0x33)))

			v, err = m.Peek(data, 6)
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(Equal(uint8(0x44)))
			Expect(m.SP).To(Equal(uint8(32)))
		})

		It("should fail on underflow without moving SP", func() {
			_, err := m.Pop(data, 0)

			var stackErr *emu.StackError
			Expect(errors.As(err, &stackErr)).To(BeTrue())
			Expect(m.SP).To(Equal(uint8(emu.StackPointerMin)))
			Expect(m.DecrementSP()).ToNot(Succeed())
		})

		It("should fail on overflow", func() {
			for m.SP < emu.StackPointerMax {
				Expect(m.IncrementSP()).To(Succeed())
			}
			Expect(m.Push(data, 1, 0)).ToNot(Succeed())
			Expect(m.IncrementSP()).ToNot(Succeed())
		})

		It("should reject offsets that leave the stack page", func() {
			Expect(m.Poke(data, 1, 40)).ToNot(Succeed())
		})
	})

	Describe("Special registers", func() {
		It("should read the PC halves", func() {
			Expect(m.ReadSpecial(insts.SpecialPCLow, 0x1A3)).To(Equal(uint8(0xA3)))
			Expect(m.ReadSpecial(insts.SpecialPCHigh, 0x1A3)).To(Equal(uint8(0x01)))
		})

		It("should ignore writes to read-only registers", func() {
			Expect(m.WriteSpecial(insts.SpecialPCLow, 5)).To(Succeed())
			Expect(m.WriteSpecial(insts.SpecialReserved, 5)).To(Succeed())
			Expect(m.ReadSpecial(insts.SpecialReserved, 0)).To(BeZero())
		})

		It("should alias the flags register", func() {
			Expect(m.WriteSpecial(insts.SpecialFlags, 0xFF)).To(Succeed())
			Expect(m.Flags.Byte()).To(Equal(uint8(0xF5)))
		})

		It("should reject a stack pointer outside the stack window", func() {
			Expect(m.WriteSpecial(insts.SpecialStackPointer, 10)).ToNot(Succeed())
			Expect(m.WriteSpecial(insts.SpecialStackPointer, 40)).To(Succeed())
			Expect(m.SP).To(Equal(uint8(40)))
		})
	})
})

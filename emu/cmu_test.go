package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/p8sim/emu"
)

var _ = Describe("Complex math unit", func() {
	Describe("Multiply", func() {
		It("should split the product into low and high bytes", func() {
			lo := emu.MultiplyLow(0x12, 0x34)
			hi := emu.MultiplyHigh(0x12, 0x34)

			Expect(lo.Value).To(Equal(uint8(0xA8)))
			Expect(lo.Carry).To(BeTrue())
			Expect(hi.Value).To(Equal(uint8(0x03)))
			Expect(hi.Carry).To(BeFalse())
		})

		It("should clear carry when the product fits a byte", func() {
			Expect(emu.MultiplyLow(15, 17).Carry).To(BeFalse())
		})
	})

	Describe("Divide and Modulo", func() {
		It("should saturate on divide by zero", func() {
			for x := 0; x < 256; x++ {
				r := emu.Divide(uint8(x), 0)
				Expect(r.Value).To(Equal(uint8(0xFF)))
				Expect(r.Overflow).To(BeTrue())
				Expect(r.Carry).To(BeTrue())
			}
		})

		It("should return the dividend on modulo by zero", func() {
			for x := 0; x < 256; x++ {
				r := emu.Modulo(uint8(x), 0)
				Expect(r.Value).To(Equal(uint8(x)))
				Expect(r.Overflow).To(BeTrue())
			}
		})

		It("should divide normally otherwise", func() {
			Expect(emu.Divide(100, 7).Value).To(Equal(uint8(14)))
			Expect(emu.Modulo(100, 7).Value).To(Equal(uint8(2)))
			Expect(emu.Divide(100, 7).Overflow).To(BeFalse())
		})
	})

	Describe("SquareRoot", func() {
		It("should bracket every input", func() {
			for n := 0; n < 256; n++ {
				r := emu.SquareRoot(uint8(n))
				root := int(r.Value)

				Expect(root * root).To(BeNumerically("<=", n))
				Expect((root + 1) * (root + 1)).To(BeNumerically(">", n))
				Expect(r.Carry).To(Equal(root*root != n))
			}
		})

		It("should flag inexact roots", func() {
			Expect(emu.SquareRoot(10).Value).To(Equal(uint8(3)))
			Expect(emu.SquareRoot(10).Carry).To(BeTrue())
			Expect(emu.SquareRoot(9).Value).To(Equal(uint8(3)))
			Expect(emu.SquareRoot(9).Carry).To(BeFalse())
		})
	})

	Describe("Bit counts", func() {
		It("should count 8 zeros for zero", func() {
			Expect(emu.CountLeadingZeros(0).Value).To(Equal(uint8(8)))
			Expect(emu.CountTrailingZeros(0).Value).To(Equal(uint8(8)))
		})

		It("should scan from the right end", func() {
			Expect(emu.CountLeadingZeros(0x10).Value).To(Equal(uint8(3)))
			Expect(emu.CountTrailingZeros(0x10).Value).To(Equal(uint8(4)))
			Expect(emu.CountLeadingZeros(0x80).Value).To(BeZero())
			Expect(emu.CountTrailingZeros(0x01).Value).To(BeZero())
		})

		It("should count ones", func() {
			Expect(emu.CountOnes(0x00).Value).To(BeZero())
			Expect(emu.CountOnes(0xFF).Value).To(Equal(uint8(8)))
			Expect(emu.CountOnes(0xA5).Value).To(Equal(uint8(4)))
		})
	})
})

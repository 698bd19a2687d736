package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/p8sim/insts"
)

var _ = Describe("Encoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	It("should encode LDI R1, #0x14", func() {
		w, err := insts.EncodeLDI(1, 0x14)
		Expect(err).ToNot(HaveOccurred())
		Expect(w).To(Equal(uint16(0x8214)))
	})

	It("should reject a register whose bit 11 conflicts with the class", func() {
		_, err := insts.EncodeLDI(5, 0x14)
		Expect(err).To(MatchError(insts.ErrEncodingConflict))

		_, err = insts.EncodeMOV(1, 2)
		Expect(err).To(MatchError(insts.ErrEncodingConflict))
	})

	It("should reject out-of-range fields", func() {
		_, err := insts.EncodeADI(1, 2, 64)
		Expect(err).To(MatchError(insts.ErrFieldRange))

		_, err = insts.EncodeJMP(0x1000)
		Expect(err).To(MatchError(insts.ErrFieldRange))

		_, err = insts.EncodePOP(1, insts.StackPop, 64)
		Expect(err).To(MatchError(insts.ErrFieldRange))

		_, err = insts.EncodeRRR(insts.ClassLDI, 1, 1, 0, 1)
		Expect(err).To(MatchError(insts.ErrFieldRange))

		_, err = insts.EncodeBSI(4, 1, insts.ShiftROL, 1)
		Expect(err).To(MatchError(insts.ErrFieldRange))
	})

	It("should panic in MustEncode on error", func() {
		Expect(func() {
			insts.MustEncode(insts.EncodeLDI(7, 0))
		}).To(Panic())
	})

	Describe("round trip through the decoder", func() {
		It("should round-trip ADD", func() {
			w := insts.MustEncode(insts.EncodeRRR(insts.ClassADD, 2, 3,
				uint8(insts.AddWithCarry), 4))
			inst := decoder.Decode(w)

			Expect(inst.Class).To(Equal(insts.ClassADD))
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rs).To(Equal(uint8(3)))
			Expect(inst.Rt).To(Equal(uint8(4)))
			Expect(inst.AddType()).To(Equal(insts.AddWithCarry))
		})

		It("should round-trip BRA", func() {
			w := insts.MustEncode(insts.EncodeBRA(insts.CondHS,
				insts.BranchAssumeNothing, 0x42))
			inst := decoder.Decode(w)

			Expect(inst.Class).To(Equal(insts.ClassBRA))
			Expect(inst.Cond).To(Equal(insts.CondHS))
			Expect(inst.BranchType).To(Equal(insts.BranchAssumeNothing))
			Expect(inst.Addr).To(Equal(uint16(0x42)))
		})

		It("should round-trip negative stack offsets", func() {
			w := insts.MustEncode(insts.EncodePOP(3, insts.StackPeek, -64))
			inst := decoder.Decode(w)

			Expect(inst.Class).To(Equal(insts.ClassPOP))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.StackType()).To(Equal(insts.StackPeek))
			Expect(inst.Offset).To(Equal(int8(-64)))
		})

		It("should round-trip PSH", func() {
			w := insts.MustEncode(insts.EncodePSH(5, insts.PushFlags, 0))
			inst := decoder.Decode(w)

			Expect(inst.Class).To(Equal(insts.ClassPSH))
			Expect(inst.Rs).To(Equal(uint8(5)))
			Expect(inst.PushType()).To(Equal(insts.PushFlags))
		})

		It("should round-trip the remaining classes", func() {
			words := map[insts.Class]uint16{
				insts.ClassNOP: insts.EncodeNOP(),
				insts.ClassHLT: insts.EncodeHLT(false),
				insts.ClassSYS: insts.MustEncode(insts.EncodeSYS(1, 0x40)),
				insts.ClassCLI: insts.MustEncode(insts.EncodeCLI(4, insts.CondAL, 9)),
				insts.ClassJMP: insts.MustEncode(insts.EncodeJMP(0x7FF)),
				insts.ClassCAL: insts.MustEncode(insts.EncodeCAL(0x100)),
				insts.ClassRET: insts.EncodeRET(false),
				insts.ClassINP: insts.MustEncode(insts.EncodeINP(1, 3)),
				insts.ClassOUT: insts.MustEncode(insts.EncodeOUT(4, 3)),
				insts.ClassSLD: insts.MustEncode(insts.EncodeSLD(2, insts.SpecialFlags)),
				insts.ClassSST: insts.MustEncode(insts.EncodeSST(insts.SpecialBranchOffset, 1)),
				insts.ClassMLD: insts.MustEncode(insts.EncodeMLD(1, 70)),
				insts.ClassMST: insts.MustEncode(insts.EncodeMST(6, 70)),
				insts.ClassANI: insts.MustEncode(insts.EncodeANI(6, 0x0F)),
				insts.ClassTSI: insts.MustEncode(insts.EncodeTSI(7, 0x80)),
				insts.ClassBSI: insts.MustEncode(insts.EncodeBSI(4, 1, insts.ShiftROR, 2)),
				insts.ClassBTC: insts.MustEncode(insts.EncodeBTC(5, 1, insts.BitCountCLZ)),
				insts.ClassOPI: insts.MustEncode(insts.EncodeOPI(2, 0xAA)),
				insts.ClassCPC: insts.MustEncode(insts.EncodeCPC(0x801)),
			}

			for class, w := range words {
				Expect(decoder.Decode(w).Class).To(Equal(class), "class %s", class)
			}
		})
	})
})

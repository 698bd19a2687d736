package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/p8sim/insts"
	"github.com/sarchlab/p8sim/timing/pipeline"
)

var _ = Describe("HazardUnit", func() {
	var (
		hu      *pipeline.HazardUnit
		decoder *insts.Decoder
		stages  *pipeline.Stages
	)

	slot := func(pc uint16, word uint16) pipeline.StageSlot {
		return pipeline.StageSlot{
			Valid:           true,
			PC:              pc,
			Word:            word,
			Inst:            decoder.Decode(word),
			PredictedNextPC: pc + 1,
		}
	}

	BeforeEach(func() {
		hu = pipeline.NewHazardUnit()
		decoder = insts.NewDecoder()
		stages = &pipeline.Stages{}
	})

	Describe("data hazards", func() {
		It("should stall decode when execute writes a source register", func() {
			stages.Execute = slot(0, insts.MustEncode(insts.EncodeLDI(3, 7)))
			stages.Decode = slot(1, insts.MustEncode(insts.EncodeRRR(insts.ClassADD, 1, 3, 0, 2)))

			result := hu.Resolve(stages)

			Expect(result.DataHazard).To(BeTrue())
			Expect(stages.Decode.Stalled).To(BeTrue())
		})

		It("should stall decode when writeback writes a source register", func() {
			stages.Writeback = slot(0, insts.MustEncode(insts.EncodeLDI(2, 7)))
			stages.Decode = slot(2, insts.MustEncode(insts.EncodeRRR(insts.ClassSUB, 5, 4, 0, 2)))

			Expect(hu.Resolve(stages).DataHazard).To(BeTrue())
		})

		It("should not stall a push that does not read its register field", func() {
			stages.Execute = slot(0, insts.MustEncode(insts.EncodeMOV(5, 1)))
			stages.Decode = slot(1, insts.MustEncode(insts.EncodePSH(5, insts.PushFlags, 0)))

			Expect(hu.Resolve(stages).DataHazard).To(BeFalse())

			stages.Decode = slot(1, insts.MustEncode(insts.EncodePSH(5, insts.PushPush, 0)))

			Expect(hu.Resolve(stages).DataHazard).To(BeTrue())
		})

		It("should ignore register 0", func() {
			stages.Execute = slot(0, insts.MustEncode(insts.EncodeLDI(0, 7)))
			stages.Decode = slot(1, insts.MustEncode(insts.EncodeRRR(insts.ClassADD, 1, 0, 0, 0)))

			Expect(hu.Resolve(stages).DataHazard).To(BeFalse())
		})

		It("should ignore producers that do not write registers", func() {
			stages.Execute = slot(0, insts.MustEncode(insts.EncodeCPI(3, 7)))
			stages.Decode = slot(1, insts.MustEncode(insts.EncodeRRR(insts.ClassADD, 1, 3, 0, 2)))

			Expect(hu.Resolve(stages).DataHazard).To(BeFalse())
		})

		It("should ignore a destination that is not read", func() {
			stages.Execute = slot(0, insts.MustEncode(insts.EncodeLDI(3, 7)))
			stages.Decode = slot(1, insts.MustEncode(insts.EncodeLDI(3, 9)))

			Expect(hu.Resolve(stages).DataHazard).To(BeFalse())
		})

		It("should not stall a slot released from a stall", func() {
			stages.Writeback = slot(0, insts.MustEncode(insts.EncodeLDI(3, 7)))
			stages.Decode = slot(1, insts.MustEncode(insts.EncodeRRR(insts.ClassADD, 1, 3, 0, 2)))
			stages.Decode.Released = true

			Expect(hu.Resolve(stages).DataHazard).To(BeFalse())
		})

		It("should ignore bubbles", func() {
			stages.Execute = slot(0, insts.MustEncode(insts.EncodeLDI(3, 7)))
			stages.Execute.Bubble = true
			stages.Decode = slot(1, insts.MustEncode(insts.EncodeRRR(insts.ClassADD, 1, 3, 0, 2)))

			Expect(hu.Resolve(stages).DataHazard).To(BeFalse())
		})
	})

	Describe("control hazards", func() {
		It("should flush fetch when decode holds a jump", func() {
			stages.Decode = slot(4, insts.MustEncode(insts.EncodeJMP(0x40)))
			stages.Decode.PredictedNextPC = 0x40
			stages.Fetch = slot(5, insts.MustEncode(insts.EncodeLDI(1, 1)))

			result := hu.Resolve(stages)

			Expect(result.ControlHazard).To(BeTrue())
			Expect(result.Redirect).To(BeTrue())
			Expect(result.RedirectPC).To(Equal(uint16(0x40)))
			Expect(stages.Fetch.Bubble).To(BeTrue())
			Expect(stages.Fetch.Inst.IsNop()).To(BeTrue())
		})

		It("should flush fetch when decode holds a branch", func() {
			stages.Decode = slot(4, insts.MustEncode(
				insts.EncodeBRA(insts.CondHS, insts.BranchAssumeNothing, 0)))
			stages.Fetch = slot(5, insts.MustEncode(insts.EncodeLDI(1, 1)))

			result := hu.Resolve(stages)

			Expect(result.ControlHazard).To(BeTrue())
			Expect(result.RedirectPC).To(Equal(uint16(5)))
			Expect(stages.Fetch.Bubble).To(BeTrue())
		})

		It("should not flush for calls", func() {
			stages.Decode = slot(4, insts.MustEncode(insts.EncodeCAL(0x40)))
			stages.Fetch = slot(5, insts.MustEncode(insts.EncodeLDI(1, 1)))

			Expect(hu.Resolve(stages).ControlHazard).To(BeFalse())
			Expect(stages.Fetch.Bubble).To(BeFalse())
		})
	})
})

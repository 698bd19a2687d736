package loader_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/p8sim/insts"
	"github.com/sarchlab/p8sim/loader"
	"github.com/sarchlab/p8sim/timing/cache"
)

var _ = Describe("Image Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "image-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("ParseHex", func() {
		It("should read one word per line", func() {
			words, err := loader.ParseHex(strings.NewReader("1234\n0xBEEF\n\n  00ff  \n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(words).To(Equal([]uint16{0x1234, 0xBEEF, 0x00FF}))
		})

		It("should ignore comments", func() {
			words, err := loader.ParseHex(strings.NewReader(
				"# header\n0001 ; first\n0002 # second\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(words).To(Equal([]uint16{1, 2}))
		})

		It("should move the load address on @ lines", func() {
			words, err := loader.ParseHex(strings.NewReader("0001\n@4\n0005\n0006\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(words).To(Equal([]uint16{1, 0, 0, 0, 5, 6}))
		})

		It("should report the line of a bad word", func() {
			_, err := loader.ParseHex(strings.NewReader("0001\nzz\n"))
			Expect(errors.Is(err, loader.ErrSyntax)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("line 2"))
		})

		It("should reject words wider than 16 bits", func() {
			_, err := loader.ParseHex(strings.NewReader("12345\n"))
			Expect(errors.Is(err, loader.ErrSyntax)).To(BeTrue())
		})
	})

	Describe("ParseBinary", func() {
		It("should read little-endian words", func() {
			words, err := loader.ParseBinary([]byte{0x34, 0x12, 0xEF, 0xBE})
			Expect(err).NotTo(HaveOccurred())
			Expect(words).To(Equal([]uint16{0x1234, 0xBEEF}))
		})

		It("should reject an odd byte count", func() {
			_, err := loader.ParseBinary([]byte{1, 2, 3})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Pad", func() {
		It("should pad a short image with NOPs", func() {
			image, err := loader.Pad([]uint16{7, 8}, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(image).To(Equal([]uint16{7, 8, 0, 0}))
		})

		It("should reject a long image", func() {
			_, err := loader.Pad(make([]uint16, 5), 4)

			var sizeErr *cache.SizeMismatchError
			Expect(errors.As(err, &sizeErr)).To(BeTrue())
			Expect(sizeErr.Got).To(Equal(5))
			Expect(sizeErr.Want).To(Equal(4))
		})
	})

	Describe("Load", func() {
		program := []uint16{
			insts.MustEncode(insts.EncodeLDI(1, 42)),
			insts.EncodeHLT(true),
		}

		It("should load a hex file into a full image", func() {
			path := filepath.Join(tempDir, "prog.hex")
			var buf bytes.Buffer
			Expect(loader.WriteHex(&buf, program)).To(Succeed())
			Expect(os.WriteFile(path, buf.Bytes(), 0644)).To(Succeed())

			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Length).To(Equal(2))
			Expect(prog.Words).To(HaveLen(loader.ImageSize))
			Expect(prog.Words[:2]).To(Equal(program))
		})

		It("should load a binary file", func() {
			path := filepath.Join(tempDir, "prog.bin")
			var buf bytes.Buffer
			Expect(loader.WriteBinary(&buf, program)).To(Succeed())
			Expect(os.WriteFile(path, buf.Bytes(), 0644)).To(Succeed())

			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Words[:2]).To(Equal(program))
		})

		It("should flash into instruction memory", func() {
			prog, err := loader.Read(strings.NewReader("0001\n0002\n"), loader.FormatHex)
			Expect(err).NotTo(HaveOccurred())

			im := cache.NewInstructionMemory(cache.DefaultInstructionConfig())
			Expect(prog.Flash(im)).To(Succeed())

			word, err := im.ReadInstruction(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(word).To(Equal(uint16(2)))
		})

		It("should reject an image larger than memory", func() {
			_, err := loader.Read(bytes.NewReader(make([]byte, 2*(loader.ImageSize+1))),
				loader.FormatBinary)

			var sizeErr *cache.SizeMismatchError
			Expect(errors.As(err, &sizeErr)).To(BeTrue())
		})

		It("should return error for non-existent file", func() {
			_, err := loader.Load("/nonexistent/path/to/prog.hex")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to open"))
		})

		It("should return an empty image for an empty file", func() {
			path := filepath.Join(tempDir, "empty.bin")
			Expect(os.WriteFile(path, nil, 0644)).To(Succeed())

			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Length).To(BeZero())
		})
	})

	Describe("FormatFor", func() {
		It("should pick the format from the extension", func() {
			Expect(loader.FormatFor("a.hex")).To(Equal(loader.FormatHex))
			Expect(loader.FormatFor("a.HEX")).To(Equal(loader.FormatHex))
			Expect(loader.FormatFor("a.bin")).To(Equal(loader.FormatBinary))
			Expect(loader.FormatFor("a")).To(Equal(loader.FormatBinary))
		})
	})
})

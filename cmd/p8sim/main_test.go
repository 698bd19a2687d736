package main

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/p8sim/insts"
	"github.com/sarchlab/p8sim/loader"
	"github.com/sarchlab/p8sim/timing/latency"
)

var _ = Describe("p8sim", func() {
	var (
		tempDir        string
		stdout, stderr *bytes.Buffer
	)

	writeProgram := func(name string, words ...uint16) string {
		path := filepath.Join(tempDir, name)
		var buf bytes.Buffer
		Expect(loader.WriteHex(&buf, words)).To(Succeed())
		Expect(os.WriteFile(path, buf.Bytes(), 0644)).To(Succeed())
		return path
	}

	simple := func() string {
		return writeProgram("simple.hex",
			insts.MustEncode(insts.EncodeLDI(1, 42)),
			insts.MustEncode(insts.EncodeRRR(insts.ClassADD, 2, 1, 0, 1)),
			insts.EncodeHLT(true),
		)
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "p8sim-cli-test")
		Expect(err).NotTo(HaveOccurred())

		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	It("should print usage without a program", func() {
		Expect(run(nil, stdout, stderr)).To(Equal(exitUsage))
		Expect(stderr.String()).To(ContainSubstring("Usage: p8sim"))
	})

	It("should reject an unknown flag", func() {
		Expect(run([]string{"-bogus"}, stdout, stderr)).To(Equal(exitUsage))
	})

	It("should reject an unknown log level", func() {
		Expect(run([]string{"-log-level", "loud", simple()}, stdout, stderr)).
			To(Equal(exitUsage))
	})

	It("should run a program functionally", func() {
		Expect(run([]string{simple()}, stdout, stderr)).To(Equal(exitOK))
		Expect(stdout.String()).To(ContainSubstring("Instructions executed: 3"))
	})

	It("should run a program with timing", func() {
		Expect(run([]string{"-timing", simple()}, stdout, stderr)).To(Equal(exitOK))

		out := stdout.String()
		Expect(out).To(ContainSubstring("Total Instructions: 3"))
		Expect(out).To(ContainSubstring("CPI:"))
		Expect(out).To(ContainSubstring("Data hazards:    1"))
	})

	It("should dump the final state", func() {
		Expect(run([]string{"-dump", simple()}, stdout, stderr)).To(Equal(exitOK))

		out := stdout.String()
		Expect(out).To(ContainSubstring("Regs"))
		Expect(out).To(ContainSubstring("Data"))
		Expect(out).To(ContainSubstring("0x003"))
	})

	It("should log pipeline ticks at debug level", func() {
		Expect(run([]string{"-timing", "-log-level", "debug", simple()}, stdout, stderr)).
			To(Equal(exitOK))
		Expect(stderr.String()).To(ContainSubstring("tick"))
	})

	It("should report a halt without the exit flag", func() {
		path := writeProgram("noexit.hex", insts.EncodeHLT(false))
		Expect(run([]string{path}, stdout, stderr)).To(Equal(exitNoExit))
	})

	It("should fail on a fault", func() {
		path := writeProgram("fault.hex", insts.MustEncode(insts.EncodeMLD(1, 300)))
		Expect(run([]string{"-timing", path}, stdout, stderr)).To(Equal(exitFault))
		Expect(stderr.String()).To(ContainSubstring("simulation stopped"))
	})

	It("should fail on a missing program", func() {
		Expect(run([]string{filepath.Join(tempDir, "nope.hex")}, stdout, stderr)).
			To(Equal(exitFault))
		Expect(stderr.String()).To(ContainSubstring("failed to load program"))
	})

	It("should stop at the cycle limit", func() {
		path := writeProgram("spin.hex", insts.MustEncode(insts.EncodeJMP(0)))
		Expect(run([]string{"-timing", "-max-cycles", "100", path}, stdout, stderr)).
			To(Equal(exitFault))
		Expect(stdout.String()).To(ContainSubstring("Total Cycles: 100"))
	})

	It("should start at the entry address", func() {
		path := writeProgram("entry.hex",
			insts.MustEncode(insts.EncodeLDI(1, 1)),
			insts.EncodeHLT(true),
		)
		Expect(run([]string{"-entry", "1", path}, stdout, stderr)).To(Equal(exitOK))
		Expect(stdout.String()).To(ContainSubstring("Instructions executed: 1"))
	})

	Describe("timing configuration", func() {
		It("should write a default config that loads back", func() {
			path := filepath.Join(tempDir, "timing.json")
			Expect(run([]string{"-write-config", path}, stdout, stderr)).To(Equal(exitOK))

			config, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(config).To(Equal(latency.DefaultTimingConfig()))
		})

		It("should use a custom config", func() {
			path := filepath.Join(tempDir, "timing.json")
			config := latency.DefaultTimingConfig()
			config.PageSwapLatency = 7
			Expect(config.SaveConfig(path)).To(Succeed())

			Expect(run([]string{"-timing", "-config", path, simple()}, stdout, stderr)).
				To(Equal(exitOK))
		})

		It("should reject an invalid config", func() {
			path := filepath.Join(tempDir, "timing.json")
			config := latency.DefaultTimingConfig()
			config.ALULatency = 0
			Expect(config.SaveConfig(path)).To(Succeed())

			Expect(run([]string{"-timing", "-config", path, simple()}, stdout, stderr)).
				To(Equal(exitFault))
			Expect(stderr.String()).To(ContainSubstring("invalid timing config"))
		})
	})
})

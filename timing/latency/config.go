package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds execute latencies for the P8 instruction groups.
// Defaults match the cycle counts the decoder assigns.
type TimingConfig struct {
	// ALULatency is the execute latency for register and immediate ALU
	// operations, moves and shifts. Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency is the execute latency for BRA, JMP, CAL and RET.
	// Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// LoadLatency covers MLD, SLD and POP. Default: 1 cycle.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency covers MST, SST and PSH. Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// IOLatency covers INP, OUT, OPI and CPC. Default: 1 cycle.
	IOLatency uint64 `json:"io_latency"`

	// MultiplyLatency is the latency for MUL low and high. Default: 4 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// DivideLatency is the latency for MUL divide and modulo.
	// Default: 8 cycles.
	DivideLatency uint64 `json:"divide_latency"`

	// SqrtLatency is the latency for the BTC square root. Default: 8 cycles.
	SqrtLatency uint64 `json:"sqrt_latency"`

	// BitCountLatency is the latency for BTC leading and trailing zero
	// counts. Default: 2 cycles.
	BitCountLatency uint64 `json:"bit_count_latency"`

	// PopCountLatency is the latency for the BTC ones count.
	// Default: 3 cycles.
	PopCountLatency uint64 `json:"pop_count_latency"`

	// PageSwapLatency is the cost of one paged memory swap. It configures
	// the memories, not the pipeline. Default: 4 cycles.
	PageSwapLatency uint64 `json:"page_swap_latency"`
}

// DefaultTimingConfig returns a TimingConfig with the default P8 values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:      1,
		BranchLatency:   1,
		LoadLatency:     1,
		StoreLatency:    1,
		IOLatency:       1,
		MultiplyLatency: 4,
		DivideLatency:   8,
		SqrtLatency:     8,
		BitCountLatency: 2,
		PopCountLatency: 3,
		PageSwapLatency: 4,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from
// the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all execute latencies are valid (> 0).
func (c *TimingConfig) Validate() error {
	checks := []struct {
		name  string
		value uint64
	}{
		{"alu_latency", c.ALULatency},
		{"branch_latency", c.BranchLatency},
		{"load_latency", c.LoadLatency},
		{"store_latency", c.StoreLatency},
		{"io_latency", c.IOLatency},
		{"multiply_latency", c.MultiplyLatency},
		{"divide_latency", c.DivideLatency},
		{"sqrt_latency", c.SqrtLatency},
		{"bit_count_latency", c.BitCountLatency},
		{"pop_count_latency", c.PopCountLatency},
	}

	for _, chk := range checks {
		if chk.value == 0 {
			return fmt.Errorf("%s must be > 0", chk.name)
		}
	}

	if c.MultiplyLatency > c.DivideLatency {
		return fmt.Errorf("multiply_latency must be <= divide_latency")
	}

	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}

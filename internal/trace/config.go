package trace

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/simtrace/internal/matrix"
	"github.com/born-ml/simtrace/internal/quant"
)

// Config holds the parameters of an export pass.
type Config struct {
	// Simulator is the path of the external simulator binary.
	Simulator string `yaml:"simulator"`

	// NetworkFile, when set, is passed to the simulator right after the
	// binary path. With WriteNetwork the exporter also generates it.
	NetworkFile  string `yaml:"network_file"`
	WriteNetwork bool   `yaml:"write_network"`

	// WeightBits and ActivationBits are the global precisions handed to the
	// simulator. ActivationBits also sets the activation encoding width.
	WeightBits     int `yaml:"weight_bits"`
	ActivationBits int `yaml:"activation_bits"`

	// OutputDir receives weight and activation files; Prefix is prepended to
	// every file name (e.g. "epoch_3_").
	OutputDir string `yaml:"output_dir"`
	Prefix    string `yaml:"prefix"`

	WeightFormat        matrix.Format `yaml:"weight_format"`
	ActivationDelimiter string        `yaml:"activation_delimiter"`

	// RangePolicy handles activations outside [-1, 1).
	RangePolicy quant.Policy `yaml:"range_policy"`

	// SampleIndex selects the batch element whose activations are exported.
	SampleIndex int `yaml:"sample_index"`

	// Workers > 1 exports that many layers concurrently.
	Workers int `yaml:"workers"`

	// WriteScript also stores the invocation as OutputDir/trace_command.sh.
	WriteScript bool `yaml:"write_script"`
}

// DefaultConfig returns the layout the simulator's wrappers use.
func DefaultConfig() Config {
	return Config{
		Simulator:           "./NeuroSIM/main",
		WeightBits:          8,
		ActivationBits:      8,
		OutputDir:           "./layer_record",
		WeightFormat:        matrix.DefaultFormat(),
		ActivationDelimiter: ",",
		RangePolicy:         quant.Saturate,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	//nolint:gosec // G304: config path is supplied by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration can drive an export pass.
func (c Config) Validate() error {
	if c.Simulator == "" {
		return fmt.Errorf("simulator path is empty")
	}
	if c.WeightBits < 1 {
		return fmt.Errorf("weight_bits must be >= 1, got %d", c.WeightBits)
	}
	if c.ActivationBits < 1 || c.ActivationBits > quant.MaxBits {
		return fmt.Errorf("activation_bits must be in [1, %d], got %d", quant.MaxBits, c.ActivationBits)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is empty")
	}
	if err := c.WeightFormat.Validate(); err != nil {
		return err
	}
	if c.ActivationDelimiter == "" {
		return fmt.Errorf("activation_delimiter is empty")
	}
	if _, err := quant.ParsePolicy(c.RangePolicy.String()); err != nil {
		return err
	}
	if c.SampleIndex < 0 {
		return fmt.Errorf("sample_index must be >= 0, got %d", c.SampleIndex)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.WriteNetwork && c.NetworkFile == "" {
		return fmt.Errorf("write_network needs network_file")
	}
	return nil
}

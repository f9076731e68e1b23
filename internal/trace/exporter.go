// Package trace turns per-layer weights and activations into the files and
// the command line consumed by an in-memory-computing simulator.
//
// An export pass writes, for every layer i in order,
//
//	<OutputDir>/<Prefix>weight_layer<i>.csv  padded weight square, real-valued
//	<OutputDir>/<Prefix>input_layer<i>.csv   bit-serial activation fields
//
// then assembles a Manifest whose argument order follows the layer order,
// whatever order the layers finished in.
package trace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/simtrace/internal/matrix"
	"github.com/born-ml/simtrace/internal/parallel"
	"github.com/born-ml/simtrace/internal/quant"
	"github.com/born-ml/simtrace/internal/tensor"
	"github.com/born-ml/simtrace/internal/window"
)

// ScriptName is the file name of the optional invocation script.
const ScriptName = "trace_command.sh"

// Exporter runs export passes. Passes on one Exporter never overlap.
type Exporter struct {
	cfg    Config
	sim    Simulator
	logger *log.Logger
	passID func() string

	mu sync.Mutex
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger reports progress to l.
func WithLogger(l *log.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// WithPassID overrides the pass id generator.
func WithPassID(f func() string) Option {
	return func(e *Exporter) { e.passID = f }
}

// NewExporter validates cfg and returns an exporter. sim may be nil if only
// Export is used.
func NewExporter(cfg Config, sim Simulator, opts ...Option) (*Exporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Exporter{
		cfg:    cfg,
		sim:    sim,
		passID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the exporter's configuration.
func (e *Exporter) Config() Config { return e.cfg }

func (e *Exporter) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

// Export writes every layer's files and returns the assembled manifest.
// Any shape, range or IO error aborts the pass and no manifest is returned.
func (e *Exporter) Export(ctx context.Context, layers []Layer) (*Manifest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.export(ctx, layers)
}

// Run exports all layers and invokes the simulator once.
// Simulator failures are returned with the manifest; written files stay in place.
func (e *Exporter) Run(ctx context.Context, layers []Layer) (*Manifest, ExitStatus, error) {
	if e.sim == nil {
		return nil, -1, fmt.Errorf("trace: exporter has no simulator")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.export(ctx, layers)
	if err != nil {
		return nil, -1, err
	}

	e.logf("[%s] invoking %s", m.PassID, m.String())
	status, err := e.sim.Run(ctx, m)
	if err != nil {
		e.logf("[%s] simulator failed: %v", m.PassID, err)
		return m, status, err
	}
	e.logf("[%s] simulator exited with status %d", m.PassID, status)
	return m, status, nil
}

func (e *Exporter) export(ctx context.Context, layers []Layer) (*Manifest, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("trace: no layers to export")
	}

	codec, err := quant.New(e.cfg.ActivationBits, e.cfg.RangePolicy)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.cfg.OutputDir, 0o750); err != nil {
		return nil, &IOError{Op: "mkdir", Path: e.cfg.OutputDir, Err: err}
	}

	m := &Manifest{
		PassID:         e.passID(),
		Simulator:      e.cfg.Simulator,
		NetworkFile:    e.cfg.NetworkFile,
		WeightBits:     e.cfg.WeightBits,
		ActivationBits: e.cfg.ActivationBits,
	}

	layerCfg, extractCfg := parallel.Sequential(), parallel.DefaultConfig()
	if e.cfg.Workers > 1 {
		layerCfg = parallel.Config{Enabled: true, NumWorkers: e.cfg.Workers, MinChunkSize: 1}
		extractCfg = parallel.Sequential()
	}

	artifacts := make([]Artifact, len(layers))
	err = parallel.Run(ctx, len(layers), func(_ context.Context, i int) error {
		a, err := e.exportLayer(i, layers[i], codec, extractCfg)
		if err != nil {
			return fmt.Errorf("layer %d (%s): %w", i, layerName(i, layers[i]), err)
		}
		artifacts[i] = a
		e.logf("[%s] layer %d %s: fill %d, activation %dx%d -> %s, %s",
			m.PassID, i, a.Kind, a.FillDimension, a.ActivationRows, a.ActivationCols, a.WeightFile, a.ActivationFile)
		return nil
	}, layerCfg)
	if err != nil {
		return nil, err
	}
	m.Layers = artifacts

	if e.cfg.WriteNetwork {
		if err := writeFile(e.cfg.NetworkFile, 0o640, func(w io.Writer) error {
			return WriteNetwork(w, layers)
		}); err != nil {
			return nil, err
		}
	}
	if e.cfg.WriteScript {
		path := filepath.Join(e.cfg.OutputDir, e.cfg.Prefix+ScriptName)
		if err := writeFile(path, 0o750, m.WriteScript); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func layerName(i int, l Layer) string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("layer%d", i)
}

// WeightPath returns the weight file of layer i.
func (e *Exporter) WeightPath(i int) string {
	return filepath.Join(e.cfg.OutputDir, fmt.Sprintf("%sweight_layer%d.csv", e.cfg.Prefix, i))
}

// ActivationPath returns the activation file of layer i.
func (e *Exporter) ActivationPath(i int) string {
	return filepath.Join(e.cfg.OutputDir, fmt.Sprintf("%sinput_layer%d.csv", e.cfg.Prefix, i))
}

// exportLayer validates shapes before touching the disk, then writes the
// weight and activation files of one layer. Activation rows must equal the
// weight rows: C_in*k*k for conv layers, input features for dense ones.
func (e *Exporter) exportLayer(i int, l Layer, codec *quant.Codec, extractCfg parallel.Config) (Artifact, error) {
	if l.Weight == nil || l.Activation == nil {
		return Artifact{}, fmt.Errorf("weight and activation are required")
	}
	if l.Kind.IsConvolutional() && l.Kind.KernelSize() <= 0 {
		return Artifact{}, tensor.NewShapeError("activation", "conv kernel size must be positive, got %d", l.Kind.KernelSize())
	}

	act, err := e.activationMatrix(l, extractCfg)
	if err != nil {
		return Artifact{}, err
	}

	wr, wc := l.Weight.Dims()
	fill := matrix.FillDimension(wr, wc)
	ar, ac := act.Dims()
	if ar > fill {
		return Artifact{}, tensor.NewShapeError("activation",
			"%d activation rows exceed weight fill dimension %d (weight %dx%d)", ar, fill, wr, wc)
	}
	if ar != wr {
		return Artifact{}, tensor.NewShapeError("activation",
			"%d activation rows do not match %d weight rows (%s)", ar, wr, l.Kind)
	}

	a := Artifact{
		Layer:          i,
		Name:           layerName(i, l),
		Kind:           l.Kind,
		WeightFile:     e.WeightPath(i),
		ActivationFile: e.ActivationPath(i),
		ActivationRows: ar,
		ActivationCols: ac,
	}

	err = writeFile(a.WeightFile, 0o640, func(w io.Writer) error {
		var werr error
		a.FillDimension, werr = matrix.WriteWeight(w, l.Weight, e.cfg.WeightFormat)
		return werr
	})
	if err != nil {
		return Artifact{}, err
	}

	err = writeFile(a.ActivationFile, 0o640, func(w io.Writer) error {
		return matrix.WriteActivation(w, act, a.FillDimension, codec, e.cfg.ActivationDelimiter)
	})
	if err != nil {
		return Artifact{}, err
	}
	return a, nil
}

// activationMatrix orients the selected sample so its rows line up with
// the weight rows: [C*k*k, positions] for conv layers, [features, 1] for
// fully-connected ones.
func (e *Exporter) activationMatrix(l Layer, extractCfg parallel.Config) (*mat.Dense, error) {
	if l.Kind.IsConvolutional() {
		windowed, err := window.ExtractWith(l.Activation, l.Kind.KernelSize(), extractCfg)
		if err != nil {
			return nil, err
		}
		sample, err := window.Sample(windowed, e.cfg.SampleIndex)
		if err != nil {
			return nil, err
		}
		return matrix.FromTensor(sample)
	}

	sample, err := l.Activation.Index(e.cfg.SampleIndex)
	if err != nil {
		return nil, err
	}
	column, err := sample.Reshape(tensor.Shape{sample.NumElements(), 1})
	if err != nil {
		return nil, err
	}
	return matrix.FromTensor(column)
}

// writeFile creates path and runs fn on it. Codec errors pass through
// unchanged; everything else is reported as *IOError.
func writeFile(path string, perm os.FileMode, fn func(io.Writer) error) error {
	//nolint:gosec // G304: output paths come from the export configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}

	if err := fn(f); err != nil {
		_ = f.Close()
		if errors.Is(err, quant.ErrRange) || errors.Is(err, tensor.ErrShape) {
			return err
		}
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}

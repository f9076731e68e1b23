// Package main provides the simtrace CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/simtrace/internal/matrix"
	"github.com/born-ml/simtrace/internal/quant"
	"github.com/born-ml/simtrace/internal/trace"
)

const version = "v0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "simtrace %s\n", version)
		return 0
	case "export":
		return runExport(ctx, args[1:], stdout, stderr)
	case "inspect":
		return runInspect(args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "simtrace - record layer traces for an in-memory-computing simulator")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  export     Write layer files from a capture and run the simulator")
	fmt.Fprintln(w, "  inspect    Print shape and value range of a weight or activation file")
	fmt.Fprintln(w, "  version    Show version")
}

func runExport(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML export configuration (defaults apply when empty)")
	capturePath := fs.String("capture", "", "SafeTensors file with per-layer weights and activations")
	prefix := fs.String("prefix", "", "File name prefix, overrides the configuration")
	workers := fs.Int("workers", -1, "Layers exported concurrently (-1 keeps the configured value)")
	dryRun := fs.Bool("dry-run", false, "Write the files and print the command without running it")
	quiet := fs.Bool("quiet", false, "Suppress progress logs")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *capturePath == "" {
		fmt.Fprintln(stderr, "export: -capture is required")
		return 2
	}

	cfg := trace.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = trace.LoadConfig(*configPath); err != nil {
			fmt.Fprintf(stderr, "export: %v\n", err)
			return 1
		}
	}
	if *prefix != "" {
		cfg.Prefix = *prefix
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}

	layers, err := trace.LoadCapture(*capturePath)
	if err != nil {
		fmt.Fprintf(stderr, "export: %v\n", err)
		return 1
	}

	logOut := stderr
	if *quiet {
		logOut = io.Discard
	}
	logger := log.New(logOut, "simtrace: ", log.LstdFlags)

	sim := &trace.ExecSimulator{Stdout: stdout, Stderr: stderr}
	exp, err := trace.NewExporter(cfg, sim, trace.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "export: %v\n", err)
		return 1
	}

	if *dryRun {
		m, err := exp.Export(ctx, layers)
		if err != nil {
			fmt.Fprintf(stderr, "export: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, m.String())
		return 0
	}

	_, status, err := exp.Run(ctx, layers)
	if err != nil {
		fmt.Fprintf(stderr, "export: %v\n", err)
		var perr *trace.ExternalProcessError
		if errors.As(err, &perr) && perr.ExitCode > 0 {
			return perr.ExitCode
		}
		return 1
	}
	return int(status)
}

func runInspect(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	weightPath := fs.String("weight", "", "Weight file to inspect")
	activationPath := fs.String("activation", "", "Activation file to inspect")
	bits := fs.Int("bits", 8, "Activation precision")
	delimiter := fs.String("delimiter", ",", "Field delimiter")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var (
		path string
		m    *mat.Dense
		err  error
	)
	switch {
	case *weightPath != "" && *activationPath == "":
		path = *weightPath
		m, err = readFile(path, func(r io.Reader) (*mat.Dense, error) {
			return matrix.ReadWeight(r, *delimiter)
		})
	case *activationPath != "" && *weightPath == "":
		path = *activationPath
		var codec *quant.Codec
		if codec, err = quant.New(*bits, quant.Saturate); err == nil {
			m, err = readFile(path, func(r io.Reader) (*mat.Dense, error) {
				return matrix.ReadActivation(r, codec, *delimiter)
			})
		}
	default:
		fmt.Fprintln(stderr, "inspect: exactly one of -weight or -activation is required")
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "inspect: %v\n", err)
		return 1
	}

	r, c := m.Dims()
	data := mat.DenseCopyOf(m).RawMatrix().Data
	fmt.Fprintf(stdout, "%s: %dx%d", path, r, c)
	if matrix.IsPowerOfTwo(r) && r == c {
		fmt.Fprint(stdout, " (padded square)")
	}
	fmt.Fprintf(stdout, "\n  min %.5f  max %.5f  sum %.5f\n", floats.Min(data), floats.Max(data), floats.Sum(data))
	return 0
}

func readFile(path string, parse func(io.Reader) (*mat.Dense, error)) (*mat.Dense, error) {
	//nolint:gosec // G304: path is a command line argument
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return parse(f)
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package trace records per-layer weights and activations of a quantized
// network in the file formats of an in-memory-computing simulator and
// invokes the simulator on them.
//
// # Overview
//
// This package contains:
//   - Codec: bit-serial two's-complement encoding of values in [-1, 1)
//   - ExtractWindows: sliding-window unrolling of [N, C, H, W] activations
//   - FillDimension and PadSquare: power-of-two square padding of weights
//   - Exporter: writes the layer files and assembles the Manifest
//   - ExecSimulator: runs the simulator binary as a child process
//
// # Basic Usage
//
//	import "github.com/born-ml/simtrace/trace"
//
//	func main() {
//	    cfg := trace.DefaultConfig()
//	    cfg.ActivationBits = 4
//
//	    weight, _ := trace.ConvWeightMatrix(kernel) // [C_out, C_in, 5, 5]
//	    layers := []trace.Layer{
//	        {Weight: weight, Activation: input, Kind: trace.Convolutional(5)},
//	    }
//
//	    exp, err := trace.NewExporter(cfg, &trace.ExecSimulator{Stdout: os.Stdout})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    manifest, status, err := exp.Run(ctx, layers)
//	}
//
// # File Formats
//
// Weight files hold the weight matrix zero-padded to the smallest power-of-two
// square, one row per line, each value printed with WeightFormat
// ("%10.5f" joined by "," by default).
//
// Activation files hold one line per weight row. Every activation value
// contributes ActivationBits fields of "0" or "1", most significant first;
// rows past the activation's natural row count are all zeros.
//
// # Range Policies
//
// Values outside [-1, 1) are saturated by default. Wrap reduces the code
// modulo 2^bits and Reject aborts the pass with *RangeError.
package trace

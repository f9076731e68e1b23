package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/kballard/go-shellquote"
)

// Artifact records the files written for one layer.
type Artifact struct {
	Layer          int
	Name           string
	Kind           LayerKind
	WeightFile     string
	ActivationFile string
	FillDimension  int // Side of the padded weight square, also the activation row count
	ActivationRows int // Natural activation rows before zero fill
	ActivationCols int // Values per activation row (fields = cols * bits)
}

// Manifest is the ordered argument contract of one simulator invocation.
type Manifest struct {
	PassID         string
	Simulator      string
	NetworkFile    string
	WeightBits     int
	ActivationBits int
	Layers         []Artifact
}

// Args returns the full command line:
//
//	binary [networkFile] weightBits activationBits (weightFile activationFile)...
func (m *Manifest) Args() []string {
	args := make([]string, 0, 4+2*len(m.Layers))
	args = append(args, m.Simulator)
	if m.NetworkFile != "" {
		args = append(args, m.NetworkFile)
	}
	args = append(args, strconv.Itoa(m.WeightBits), strconv.Itoa(m.ActivationBits))
	for _, a := range m.Layers {
		args = append(args, a.WeightFile, a.ActivationFile)
	}
	return args
}

// String returns the shell-quoted command line.
func (m *Manifest) String() string {
	return shellquote.Join(m.Args()...)
}

// WriteScript writes the invocation as a shell script.
func (m *Manifest) WriteScript(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "#!/bin/sh")
	if m.PassID != "" {
		fmt.Fprintf(bw, "# export pass %s\n", m.PassID)
	}
	fmt.Fprintln(bw, m.String())
	return bw.Flush()
}

package matrix

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/simtrace/internal/quant"
)

const maxLineSize = 64 << 20

// readRows splits r into trimmed fields per non-empty line and checks that
// every line has the same field count.
func readRows(r io.Reader, delimiter string) ([][]string, error) {
	if delimiter == "" {
		return nil, fmt.Errorf("matrix: empty delimiter")
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var rows [][]string
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, delimiter)
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if len(rows) > 0 && len(fields) != len(rows[0]) {
			return nil, fmt.Errorf("line %d: %d fields, expected %d", line, len(fields), len(rows[0]))
		}
		rows = append(rows, fields)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read matrix: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("matrix: no rows")
	}
	return rows, nil
}

// ReadWeight parses a matrix written by WriteWeight.
func ReadWeight(r io.Reader, delimiter string) (*mat.Dense, error) {
	rows, err := readRows(r, delimiter)
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, fields := range rows {
		for j, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// ReadActivation parses a file written by WriteActivation and decodes each
// group of codec.Bits() fields back into a value.
func ReadActivation(r io.Reader, codec *quant.Codec, delimiter string) (*mat.Dense, error) {
	rows, err := readRows(r, delimiter)
	if err != nil {
		return nil, err
	}

	bits := codec.Bits()
	if len(rows[0])%bits != 0 {
		return nil, fmt.Errorf("matrix: %d fields per row is not a multiple of %d bits", len(rows[0]), bits)
	}
	cols := len(rows[0]) / bits

	out := mat.NewDense(len(rows), cols, nil)
	for i, fields := range rows {
		for j := 0; j < cols; j++ {
			var word uint64
			for b := 0; b < bits; b++ {
				word <<= 1
				switch fields[j*bits+b] {
				case "1":
					word |= 1
				case "0":
				default:
					return nil, fmt.Errorf("row %d field %d: %q is not a bit", i, j*bits+b, fields[j*bits+b])
				}
			}
			out.Set(i, j, codec.Value(word))
		}
	}
	return out, nil
}

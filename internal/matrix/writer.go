package matrix

import (
	"bufio"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/simtrace/internal/quant"
	"github.com/born-ml/simtrace/internal/tensor"
)

// WriteWeight pads m to its fill dimension and writes it as fill rows of
// fill delimited cells. It returns the fill dimension.
func WriteWeight(w io.Writer, m mat.Matrix, f Format) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	padded, fill := Pad(m)

	bw := bufio.NewWriter(w)
	line := make([]byte, 0, fill*(f.Width+len(f.Delimiter)+1))
	for i := 0; i < fill; i++ {
		line = line[:0]
		for j := 0; j < fill; j++ {
			if j > 0 {
				line = append(line, f.Delimiter...)
			}
			line = f.appendCell(line, padded.At(i, j))
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return 0, fmt.Errorf("failed to write weight row %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush weight matrix: %w", err)
	}
	return fill, nil
}

// WriteActivation writes m as rows lines of bit fields.
//
// Every value of m becomes codec.Bits() single-character fields ('0' or '1'),
// MSB first, so a row holds cols*bits fields. Rows past m's own row count
// are written as zeros. rows smaller than m's row count is a
// *tensor.ShapeError; nothing is written in that case.
func WriteActivation(w io.Writer, m mat.Matrix, rows int, codec *quant.Codec, delimiter string) error {
	if delimiter == "" {
		return fmt.Errorf("matrix: empty delimiter")
	}
	natural, cols := dims(m)
	if natural > rows {
		return tensor.NewShapeError("activation", "%d activation rows exceed target row count %d", natural, rows)
	}

	bits := codec.Bits()
	top := uint(bits - 1)

	bw := bufio.NewWriter(w)
	line := make([]byte, 0, cols*bits*(1+len(delimiter)))
	for i := 0; i < rows; i++ {
		line = line[:0]
		for j := 0; j < cols; j++ {
			var word uint64
			if i < natural {
				var err error
				word, err = codec.Code(m.At(i, j))
				if err != nil {
					return fmt.Errorf("activation row %d column %d: %w", i, j, err)
				}
			}
			for b := 0; b < bits; b++ {
				if j > 0 || b > 0 {
					line = append(line, delimiter...)
				}
				if word&(1<<(top-uint(b))) != 0 {
					line = append(line, '1')
				} else {
					line = append(line, '0')
				}
			}
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("failed to write activation row %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush activation matrix: %w", err)
	}
	return nil
}

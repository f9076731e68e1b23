package matrix

import "fmt"

// Format controls how real-valued cells are rendered.
type Format struct {
	Delimiter string `yaml:"delimiter"` // Field separator
	Width     int    `yaml:"width"`     // Minimum field width, right aligned
	Precision int    `yaml:"precision"` // Digits after the decimal point
}

// DefaultFormat is the simulator's "%10.5f" comma separated layout.
func DefaultFormat() Format {
	return Format{Delimiter: ",", Width: 10, Precision: 5}
}

// Validate checks the format is usable.
func (f Format) Validate() error {
	if f.Delimiter == "" {
		return fmt.Errorf("matrix: empty delimiter")
	}
	if f.Width < 0 {
		return fmt.Errorf("matrix: negative field width %d", f.Width)
	}
	if f.Precision < 0 {
		return fmt.Errorf("matrix: negative precision %d", f.Precision)
	}
	return nil
}

// appendCell appends v formatted as %{Width}.{Precision}f.
func (f Format) appendCell(dst []byte, v float64) []byte {
	return fmt.Appendf(dst, "%*.*f", f.Width, f.Precision, v)
}

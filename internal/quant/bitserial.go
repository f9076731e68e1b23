// Package quant implements the bit-serial fixed-point codec used for
// activation exports.
//
// A value x is encoded at n bits with step delta = 1/2^(n-1). The first
// bit is a sign bit worth -1 (= -2^(n-1) steps); bit i (i >= 1) is worth
// 2^(n-1-i) steps. Bits are produced MSB first by successive refinement:
//
//	x_int = x / delta
//	bit[0] = x_int < 0
//	rest = x_int + 2^(n-1) * bit[0]
//	for i = 1..n-1: base /= 2; bit[i] = rest >= base; rest -= base * bit[i]
//
// Decoding is Σ bit[i] * scale[i]. Inside [-1, 1-delta] the reconstruction
// error is below one step (the residual is truncated).
package quant

import (
	"fmt"
	"math"
)

// MaxBits is the widest supported encoding.
const MaxBits = 32

// Codec encodes real values at a fixed bit width.
type Codec struct {
	bits   int
	policy Policy
	delta  float64
	base   float64 // 2^(bits-1), the sign weight in steps
	scales []float64
}

// New creates a codec for the given bit width and range policy.
func New(bits int, policy Policy) (*Codec, error) {
	if bits < 1 || bits > MaxBits {
		return nil, fmt.Errorf("quant: bit width %d out of range [1, %d]", bits, MaxBits)
	}
	switch policy {
	case Saturate, Wrap, Reject:
	default:
		return nil, fmt.Errorf("quant: invalid policy %v", policy)
	}

	base := math.Ldexp(1, bits-1)
	delta := 1 / base
	scales := make([]float64, bits)
	scales[0] = -base * delta
	b := base
	for i := 1; i < bits; i++ {
		b /= 2
		scales[i] = b * delta
	}

	return &Codec{
		bits:   bits,
		policy: policy,
		delta:  delta,
		base:   base,
		scales: scales,
	}, nil
}

// Bits returns the bit width.
func (c *Codec) Bits() int { return c.bits }

// Policy returns the range policy.
func (c *Codec) Policy() Policy { return c.policy }

// Step returns the quantization step 1/2^(bits-1).
func (c *Codec) Step() float64 { return c.delta }

// Scales returns the per-bit reconstruction factors, MSB first.
func (c *Codec) Scales() []float64 {
	out := make([]float64, len(c.scales))
	copy(out, c.scales)
	return out
}

// Max returns the largest representable value, 1 - Step().
func (c *Codec) Max() float64 { return 1 - c.delta }

// Code encodes a single value into a bits-wide word.
// Bit bits-1 of the word is the sign bit (plane 0); bit 0 is the LSB plane.
func (c *Codec) Code(x float64) (uint64, error) {
	return c.code(x, -1)
}

func (c *Codec) code(x float64, index int) (uint64, error) {
	xi := x / c.delta

	if math.IsNaN(xi) {
		if c.policy == Reject {
			return 0, &RangeError{Index: index, Value: x, Bits: c.bits}
		}
		return 0, nil
	}

	switch c.policy {
	case Reject:
		if xi < -c.base || xi >= c.base {
			return 0, &RangeError{Index: index, Value: x, Bits: c.bits}
		}
	case Wrap:
		// ±Inf saturates.
		if !math.IsInf(xi, 0) {
			xi = c.wrap(xi)
		}
	}

	var word uint64
	top := uint(c.bits - 1)
	rest := xi
	if xi < 0 {
		word |= 1 << top
		rest += c.base
	}
	b := c.base
	for i := uint(1); i <= top; i++ {
		b /= 2
		if rest >= b {
			word |= 1 << (top - i)
			rest -= b
		}
	}
	return word, nil
}

// wrap truncates xi to an integer code and reduces it into [-base, base).
func (c *Codec) wrap(xi float64) float64 {
	q := math.Floor(xi)
	if q >= -c.base && q < c.base {
		return xi
	}
	span := 2 * c.base
	m := math.Mod(q+c.base, span)
	if m < 0 {
		m += span
	}
	return m - c.base
}

// Value decodes a word produced by Code.
func (c *Codec) Value(word uint64) float64 {
	var v float64
	top := uint(c.bits - 1)
	for i := 0; i < c.bits; i++ {
		if word&(1<<(top-uint(i))) != 0 {
			v += c.scales[i]
		}
	}
	return v
}

// Planes is the bit-plane decomposition of a slice of values.
type Planes struct {
	Bits   [][]bool  // Bits[i][j] is bit i (MSB first) of element j
	Scales []float64 // Scales[i] is the weight of plane i
}

// Len returns the number of encoded elements.
func (p *Planes) Len() int {
	if len(p.Bits) == 0 {
		return 0
	}
	return len(p.Bits[0])
}

// Encode splits x into bit planes, MSB first.
func (c *Codec) Encode(x []float64) (*Planes, error) {
	p := &Planes{
		Bits:   make([][]bool, c.bits),
		Scales: c.Scales(),
	}
	for i := range p.Bits {
		p.Bits[i] = make([]bool, len(x))
	}

	top := uint(c.bits - 1)
	for j, v := range x {
		word, err := c.code(v, j)
		if err != nil {
			return nil, err
		}
		for i := 0; i < c.bits; i++ {
			p.Bits[i][j] = word&(1<<(top-uint(i))) != 0
		}
	}
	return p, nil
}

// EncodeFloat32 is Encode for float32 input.
func (c *Codec) EncodeFloat32(x []float32) (*Planes, error) {
	wide := make([]float64, len(x))
	for i, v := range x {
		wide[i] = float64(v)
	}
	return c.Encode(wide)
}

// Decode reconstructs values as Σ Bits[i] * Scales[i].
func Decode(p *Planes) []float64 {
	out := make([]float64, p.Len())
	for i, plane := range p.Bits {
		s := p.Scales[i]
		for j, set := range plane {
			if set {
				out[j] += s
			}
		}
	}
	return out
}

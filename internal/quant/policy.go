package quant

import (
	"fmt"
	"strings"
)

// Policy decides what happens to values outside the representable range.
type Policy int

// Range policies.
const (
	// Saturate leaves the successive-refinement loop alone: values above the
	// range set every magnitude bit, values below become the most negative code.
	Saturate Policy = iota
	// Wrap reduces the truncated integer code modulo 2^bits (two's complement wraparound).
	// Infinities have no integer code and saturate as under Saturate.
	Wrap
	// Reject fails with *RangeError.
	Reject
)

// String returns the policy name used in configuration files.
func (p Policy) String() string {
	switch p {
	case Saturate:
		return "saturate"
	case Wrap:
		return "wrap"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses a policy name. The empty string selects Saturate.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "saturate":
		return Saturate, nil
	case "wrap":
		return Wrap, nil
	case "reject":
		return Reject, nil
	default:
		return 0, fmt.Errorf("quant: unknown range policy %q (want saturate, wrap or reject)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

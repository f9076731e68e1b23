package capture

import (
	"fmt"
	"strconv"

	"github.com/born-ml/simtrace/internal/tensor"
)

// Layer kinds stored in capture metadata.
const (
	KindConv = "conv"
	KindFC   = "fc"
)

// Record is one layer's captured state.
type Record struct {
	Kind       string         // KindConv or KindFC
	Kernel     int            // Kernel size for KindConv
	Pool       bool           // Layer is followed by pooling
	Weight     *tensor.Tensor // 2D weight matrix [in, out]
	Activation *tensor.Tensor // Layer input: [N, C, H, W] for conv, [N, features] for fc
}

func weightName(i int) string     { return fmt.Sprintf("layer%d.weight", i) }
func activationName(i int) string { return fmt.Sprintf("layer%d.activation", i) }
func metaKey(i int, field string) string {
	return fmt.Sprintf("layer%d.%s", i, field)
}

// WriteRecords stores records in layer order.
func WriteRecords(path string, records []Record) error {
	tensors := make(map[string]*tensor.Tensor, 2*len(records))
	metadata := map[string]string{"layers": strconv.Itoa(len(records))}

	for i, rec := range records {
		if rec.Weight == nil || rec.Activation == nil {
			return fmt.Errorf("layer %d: weight and activation are required", i)
		}
		tensors[weightName(i)] = rec.Weight
		tensors[activationName(i)] = rec.Activation
		metadata[metaKey(i, "kind")] = rec.Kind
		metadata[metaKey(i, "kernel")] = strconv.Itoa(rec.Kernel)
		metadata[metaKey(i, "pool")] = strconv.FormatBool(rec.Pool)
	}
	return WriteFile(path, tensors, metadata)
}

// ReadRecords loads every layer of a capture file in layer order.
func ReadRecords(path string) ([]Record, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close() // Read-only file
	}()

	meta := r.Metadata()
	count, err := strconv.Atoi(meta["layers"])
	if err != nil || count < 0 {
		return nil, fmt.Errorf("capture %s: missing or invalid layer count %q", path, meta["layers"])
	}

	records := make([]Record, count)
	for i := range records {
		rec := &records[i]
		rec.Kind = meta[metaKey(i, "kind")]
		if rec.Kind != KindConv && rec.Kind != KindFC {
			return nil, fmt.Errorf("layer %d: unknown kind %q", i, rec.Kind)
		}
		if s := meta[metaKey(i, "kernel")]; s != "" {
			if rec.Kernel, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("layer %d: invalid kernel %q: %w", i, s, err)
			}
		}
		if s := meta[metaKey(i, "pool")]; s != "" {
			if rec.Pool, err = strconv.ParseBool(s); err != nil {
				return nil, fmt.Errorf("layer %d: invalid pool flag %q: %w", i, s, err)
			}
		}
		if rec.Weight, err = r.Tensor(weightName(i)); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if rec.Activation, err = r.Tensor(activationName(i)); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return records, nil
}

package netcdf

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// attributes is the read side of a variable's attribute map.
type attributes interface {
	Get(key string) (any, bool)
}

type number interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// field is a variable flattened to float64 in row-major order.
type field struct {
	values     []float64
	rows, cols int
	twoD       bool
	signedBits int // width of a signed integer type, 0 otherwise
}

// decodeVariable flattens raw variable values and applies CF decoding in
// order: _Unsigned reinterpretation, _FillValue and missing_value masking to
// NaN, then scale_factor and add_offset.
func decodeVariable(values any, attrs attributes) (field, error) {
	f, err := flatten(values)
	if err != nil {
		return field{}, err
	}

	unsigned := false
	if s, ok := attrString(attrs, "_Unsigned"); ok && strings.EqualFold(s, "true") {
		unsigned = f.signedBits > 0
	}

	var fills []float64
	for _, key := range []string{"_FillValue", "missing_value"} {
		if v, ok := attrFloat(attrs, key); ok {
			fills = append(fills, v)
			if unsigned {
				fills = append(fills, toUnsigned(v, f.signedBits))
			}
		}
	}

	scale, hasScale := attrFloat(attrs, "scale_factor")
	offset, hasOffset := attrFloat(attrs, "add_offset")

	for i, v := range f.values {
		if unsigned {
			v = toUnsigned(v, f.signedBits)
		}
		if isFill(v, fills) {
			f.values[i] = math.NaN()
			continue
		}
		if hasScale {
			v *= scale
		}
		if hasOffset {
			v += offset
		}
		f.values[i] = v
	}
	return f, nil
}

func isFill(v float64, fills []float64) bool {
	for _, fill := range fills {
		if v == fill || (math.IsNaN(fill) && math.IsNaN(v)) {
			return true
		}
	}
	return false
}

func toUnsigned(v float64, bits int) float64 {
	if v < 0 {
		return v + math.Exp2(float64(bits))
	}
	return v
}

func flatten(values any) (field, error) {
	switch v := values.(type) {
	case []int8:
		return flat1(v, 8), nil
	case [][]int8:
		return flat2(v, 8)
	case []uint8:
		return flat1(v, 0), nil
	case [][]uint8:
		return flat2(v, 0)
	case []int16:
		return flat1(v, 16), nil
	case [][]int16:
		return flat2(v, 16)
	case []uint16:
		return flat1(v, 0), nil
	case [][]uint16:
		return flat2(v, 0)
	case []int32:
		return flat1(v, 32), nil
	case [][]int32:
		return flat2(v, 32)
	case []uint32:
		return flat1(v, 0), nil
	case [][]uint32:
		return flat2(v, 0)
	case []int64:
		return flat1(v, 64), nil
	case [][]int64:
		return flat2(v, 64)
	case []uint64:
		return flat1(v, 0), nil
	case [][]uint64:
		return flat2(v, 0)
	case []float32:
		return flat1(v, 0), nil
	case [][]float32:
		return flat2(v, 0)
	case []float64:
		return flat1(v, 0), nil
	case [][]float64:
		return flat2(v, 0)
	default:
		return field{}, fmt.Errorf("unsupported variable type %T", values)
	}
}

func flat1[T number](v []T, signedBits int) field {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return field{values: out, rows: 1, cols: len(v), signedBits: signedBits}
}

func flat2[T number](v [][]T, signedBits int) (field, error) {
	rows := len(v)
	cols := 0
	if rows > 0 {
		cols = len(v[0])
	}
	out := make([]float64, 0, rows*cols)
	for i, row := range v {
		if len(row) != cols {
			return field{}, fmt.Errorf("ragged row %d: %d values, want %d", i, len(row), cols)
		}
		for _, x := range row {
			out = append(out, float64(x))
		}
	}
	return field{values: out, rows: rows, cols: cols, twoD: true, signedBits: signedBits}, nil
}

// attrFloat reads a numeric attribute. Single element arrays are unwrapped.
func attrFloat(attrs attributes, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	raw, ok := attrs.Get(key)
	if !ok || raw == nil {
		return 0, false
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Len() == 0 {
			return 0, false
		}
		rv = rv.Index(0)
	}
	switch {
	case rv.CanFloat():
		return rv.Float(), true
	case rv.CanInt():
		return float64(rv.Int()), true
	case rv.CanUint():
		return float64(rv.Uint()), true
	default:
		return 0, false
	}
}

// attrString reads a text attribute.
func attrString(attrs attributes, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	raw, ok := attrs.Get(key)
	if !ok {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

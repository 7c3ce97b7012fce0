package netcdf

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/domain"
)

type attrMap map[string]any

func (m attrMap) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func TestDecodeVariable_ScaledAxis(t *testing.T) {
	// x in FDCF files is int16 packed with scale 5.6e-05 rad and offset -0.151844 rad.
	f, err := decodeVariable([]int16{0, 2712, 5423}, attrMap{
		"scale_factor": float32(5.6e-05),
		"add_offset":   float32(-0.151844),
	})
	require.NoError(t, err)

	assert.False(t, f.twoD)
	assert.Equal(t, 3, f.cols)
	assert.InDelta(t, -0.151844, f.values[0], 1e-6)
	assert.InDelta(t, 0.0, f.values[1], 1e-4)
	assert.InDelta(t, 0.151844, f.values[2], 1e-4)
}

func TestDecodeVariable_UnsignedWithFill(t *testing.T) {
	// Temp is stored as signed shorts flagged _Unsigned with fill -1 (65535).
	f, err := decodeVariable([][]int16{{-1, 1000}, {-30000, 0}}, attrMap{
		"_Unsigned":    "true",
		"_FillValue":   []int16{-1},
		"scale_factor": []float32{0.0054931},
		"add_offset":   []float32{400},
	})
	require.NoError(t, err)

	assert.True(t, f.twoD)
	assert.Equal(t, 2, f.rows)
	assert.Equal(t, 2, f.cols)
	assert.True(t, math.IsNaN(f.values[0]))
	assert.InDelta(t, 1000*0.0054931+400, f.values[1], 1e-3)
	assert.InDelta(t, 35536*0.0054931+400, f.values[2], 1e-2)
	assert.InDelta(t, 400.0, f.values[3], 1e-6)
}

func TestDecodeVariable_UnsignedBytes(t *testing.T) {
	f, err := decodeVariable([][]uint8{{0, 255}, {2, 4}}, attrMap{"_FillValue": uint8(255)})
	require.NoError(t, err)

	assert.Equal(t, 0.0, f.values[0])
	assert.True(t, math.IsNaN(f.values[1]))
	assert.Equal(t, []float64{2, 4}, f.values[2:])
}

func TestDecodeVariable_MissingValue(t *testing.T) {
	f, err := decodeVariable([]int16{-99, 10, 30}, attrMap{"missing_value": int16(-99)})
	require.NoError(t, err)

	assert.True(t, math.IsNaN(f.values[0]))
	assert.Equal(t, []float64{10, 30}, f.values[1:])
}

func TestDecodeVariable_Ragged(t *testing.T) {
	_, err := decodeVariable([][]float32{{1, 2}, {3}}, nil)
	assert.Error(t, err)
}

func TestDecodeVariable_Unsupported(t *testing.T) {
	_, err := decodeVariable("text", nil)
	assert.Error(t, err)
}

func TestAttrFloat(t *testing.T) {
	attrs := attrMap{
		"scalar":  float64(42164160),
		"single":  []float32{-75},
		"integer": int32(7),
		"empty":   []float64{},
		"text":    "x",
	}

	v, ok := attrFloat(attrs, "scalar")
	assert.True(t, ok)
	assert.Equal(t, 42164160.0, v)

	v, ok = attrFloat(attrs, "single")
	assert.True(t, ok)
	assert.Equal(t, -75.0, v)

	v, ok = attrFloat(attrs, "integer")
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)

	_, ok = attrFloat(attrs, "empty")
	assert.False(t, ok)
	_, ok = attrFloat(attrs, "text")
	assert.False(t, ok)
	_, ok = attrFloat(attrs, "absent")
	assert.False(t, ok)
}

func TestAttrString(t *testing.T) {
	attrs := attrMap{"sweep_angle_axis": "x", "bytes": []byte("true"), "num": 1}

	s, ok := attrString(attrs, "sweep_angle_axis")
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	s, ok = attrString(attrs, "bytes")
	assert.True(t, ok)
	assert.Equal(t, "true", s)

	_, ok = attrString(attrs, "num")
	assert.False(t, ok)
}

func TestReader_Validate_RejectsNonNetCDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "OR_ABI-L2-FDCF-M6_G16_s20250320000205_e20250320009513_c20250320010075.nc")
	require.NoError(t, os.WriteFile(path, []byte("<html>503 Slow Down</html>"), 0o644))

	err := NewReader(discardLogger()).Validate(path)
	assert.ErrorIs(t, err, domain.ErrCorruptFile)
}

func TestReader_Validate_RejectsTruncatedHDF5(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "truncated.nc")
	header := append([]byte("\x89HDF\r\n\x1a\n"), make([]byte, 8)...)
	require.NoError(t, os.WriteFile(path, header, 0o644))

	err := NewReader(discardLogger()).Validate(path)
	assert.ErrorIs(t, err, domain.ErrCorruptFile)
}

func TestReader_Validate_MissingFile(t *testing.T) {
	err := NewReader(discardLogger()).Validate(filepath.Join(t.TempDir(), "absent.nc"))
	assert.ErrorIs(t, err, domain.ErrCorruptFile)
}

func TestReader_Decode_MissingFile(t *testing.T) {
	_, err := NewReader(discardLogger()).Decode(filepath.Join(t.TempDir(), "absent.nc"))
	assert.ErrorIs(t, err, domain.ErrCorruptFile)
}

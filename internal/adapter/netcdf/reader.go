// Package netcdf decodes GOES ABI Level-2 fire detection files.
package netcdf

import (
	"fmt"
	"log/slog"
	"path/filepath"

	ncdf "github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/gabriel-vasile/mimetype"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/domain"
)

// acceptedMIME lists the container signatures a product file may carry:
// NetCDF4 files are HDF5, classic files start with CDF.
var acceptedMIME = []string{"application/x-hdf", "application/x-hdf5", "application/x-netcdf"}

// Reader opens FDC product files from the local archive.
// It implements pipeline.Decoder.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a Reader.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger}
}

// Validate checks that path holds a readable NetCDF file with at least one
// variable. Failures wrap domain.ErrCorruptFile.
func (r *Reader) Validate(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrCorruptFile, filepath.Base(path), err)
	}
	if !isAccepted(mtype) {
		return fmt.Errorf("%w: %s: unexpected content type %s", domain.ErrCorruptFile, filepath.Base(path), mtype.String())
	}

	nc, err := ncdf.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrCorruptFile, filepath.Base(path), err)
	}
	defer nc.Close()

	if len(nc.ListVariables()) == 0 {
		return fmt.Errorf("%w: %s: no variables", domain.ErrCorruptFile, filepath.Base(path))
	}
	return nil
}

// Decode reads the fixed grid, projection and fire fields of an FDC file.
func (r *Reader) Decode(path string) (domain.FireProduct, error) {
	nc, err := ncdf.Open(path)
	if err != nil {
		return domain.FireProduct{}, fmt.Errorf("%w: %s: %v", domain.ErrCorruptFile, filepath.Base(path), err)
	}
	defer nc.Close()

	proj, err := readProjection(nc)
	if err != nil {
		return domain.FireProduct{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	x, err := readAxis(nc, "x")
	if err != nil {
		return domain.FireProduct{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	y, err := readAxis(nc, "y")
	if err != nil {
		return domain.FireProduct{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	product := domain.FireProduct{X: x, Y: y, Projection: proj}
	grids := []struct {
		name string
		dst  *domain.Grid
	}{
		{"Mask", &product.Mask},
		{"DQF", &product.DQF},
		{"Temp", &product.Temp},
		{"Area", &product.Area},
		{"Power", &product.Power},
	}
	for _, g := range grids {
		grid, err := readGrid(nc, g.name)
		if err != nil {
			return domain.FireProduct{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
		*g.dst = grid
	}

	r.logger.Debug("product decoded",
		"file", filepath.Base(path),
		"rows", len(y),
		"cols", len(x),
	)
	return product, nil
}

func isAccepted(mtype *mimetype.MIME) bool {
	for _, m := range acceptedMIME {
		if mtype.Is(m) {
			return true
		}
	}
	return false
}

func readProjection(nc api.Group) (domain.GeosProjection, error) {
	v, err := nc.GetVariable("goes_imager_projection")
	if err != nil {
		return domain.GeosProjection{}, fmt.Errorf("read goes_imager_projection: %w", err)
	}

	var p domain.GeosProjection
	floats := []struct {
		key string
		dst *float64
	}{
		{"perspective_point_height", &p.PerspectivePointHeight},
		{"semi_major_axis", &p.SemiMajorAxis},
		{"semi_minor_axis", &p.SemiMinorAxis},
		{"longitude_of_projection_origin", &p.LongitudeOfProjectionOrigin},
	}
	for _, f := range floats {
		val, ok := attrFloat(v.Attributes, f.key)
		if !ok {
			return domain.GeosProjection{}, fmt.Errorf("goes_imager_projection: missing %s", f.key)
		}
		*f.dst = val
	}

	sweep, ok := attrString(v.Attributes, "sweep_angle_axis")
	if !ok {
		return domain.GeosProjection{}, fmt.Errorf("goes_imager_projection: missing sweep_angle_axis")
	}
	p.SweepAngleAxis = sweep
	return p, nil
}

func readAxis(nc api.Group, name string) ([]float64, error) {
	v, err := nc.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	f, err := decodeVariable(v.Values, v.Attributes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if f.rows != 1 {
		return nil, fmt.Errorf("read %s: want 1-D axis, got %dx%d", name, f.rows, f.cols)
	}
	return f.values, nil
}

func readGrid(nc api.Group, name string) (domain.Grid, error) {
	v, err := nc.GetVariable(name)
	if err != nil {
		return domain.Grid{}, fmt.Errorf("read %s: %w", name, err)
	}
	f, err := decodeVariable(v.Values, v.Attributes)
	if err != nil {
		return domain.Grid{}, fmt.Errorf("read %s: %w", name, err)
	}
	if !f.twoD {
		return domain.Grid{}, fmt.Errorf("read %s: want 2-D grid", name)
	}
	return domain.Grid{Rows: f.rows, Cols: f.cols, Values: f.values}, nil
}

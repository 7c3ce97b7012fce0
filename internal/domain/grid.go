package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShapeMismatch is returned when a product grid does not match its
	// coordinate axes.
	ErrShapeMismatch = errors.New("grid shape mismatch")

	// ErrCorruptFile marks a product file that cannot be read as NetCDF.
	// Retrying does not help; the file has to be fetched again.
	ErrCorruptFile = errors.New("corrupt product file")
)

// Grid is a row-major 2D field. Missing values are NaN.
type Grid struct {
	Rows   int
	Cols   int
	Values []float64
}

// At returns the value at row i, column j.
func (g Grid) At(i, j int) float64 {
	return g.Values[i*g.Cols+j]
}

// NaNMin returns the smallest finite value of the grid, or NaN when every
// value is missing.
func (g Grid) NaNMin() float64 {
	lowest := math.NaN()
	for _, v := range g.Values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(lowest) || v < lowest {
			lowest = v
		}
	}
	return lowest
}

func (g Grid) checkShape(name string, rows, cols int) error {
	if g.Rows != rows || g.Cols != cols || len(g.Values) != rows*cols {
		return fmt.Errorf("%w: %s is %dx%d (%d values), want %dx%d",
			ErrShapeMismatch, name, g.Rows, g.Cols, len(g.Values), rows, cols)
	}
	return nil
}

// FireProduct is a decoded FDC file: fixed grid axes, projection and the
// per-pixel fire fields with CF decoding already applied.
type FireProduct struct {
	X          []float64 // scan angle, radians, one per column
	Y          []float64 // elevation angle, radians, one per row
	Projection GeosProjection

	Mask  Grid // fire mask category
	DQF   Grid // data quality flag
	Temp  Grid // fire temperature, K
	Area  Grid // fire area, m²
	Power Grid // fire radiative power, MW
}

// Validate checks the projection and that every field matches len(Y)×len(X).
func (p FireProduct) Validate() error {
	if err := p.Projection.Validate(); err != nil {
		return err
	}
	rows, cols := len(p.Y), len(p.X)
	fields := []struct {
		name string
		grid Grid
	}{
		{"Mask", p.Mask},
		{"DQF", p.DQF},
		{"Temp", p.Temp},
		{"Area", p.Area},
		{"Power", p.Power},
	}
	for _, f := range fields {
		if err := f.grid.checkShape(f.name, rows, cols); err != nil {
			return err
		}
	}
	return nil
}

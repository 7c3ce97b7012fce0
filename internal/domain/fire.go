package domain

import (
	"fmt"
	"math"
	"path/filepath"
	"time"
)

// fireMaskCodes are the FDC mask categories accepted as fires: processed and
// saturated pixels at high or medium confidence.
var fireMaskCodes = map[int]bool{10: true, 11: true, 30: true, 31: true}

const (
	// tempFloorWindowLow and tempFloorWindowHigh bound the grid minimum
	// temperature that switches on the tempFloor filter.
	tempFloorWindowLow  = 320.0
	tempFloorWindowHigh = 400.0
	tempFloor           = 300.0
)

// Region is a latitude/longitude bounding box, bounds included.
type Region struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// SouthAmerica covers the continent plus its coastal waters.
var SouthAmerica = Region{MinLat: -55, MaxLat: 13, MinLon: -85, MaxLon: -30}

// Contains reports whether the coordinate lies inside the box. NaN
// coordinates never match.
func (r Region) Contains(lon, lat float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}

// ExtractOptions controls how detections are derived from a product.
type ExtractOptions struct {
	Region   Region
	Location *time.Location // zone of FileDatetime and ObtainedAt
}

// ExtractDetections returns the fire detections of a decoded product in
// row-major order. fileName supplies the scan start time.
func ExtractDetections(product FireProduct, fileName string, opts ExtractOptions) ([]Detection, error) {
	if err := product.Validate(); err != nil {
		return nil, fmt.Errorf("extract detections from %s: %w", filepath.Base(fileName), err)
	}

	scanStart, err := ScanStart(fileName)
	if err != nil {
		return nil, err
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	fileTime := scanStart.In(loc)
	obtainedAt := clock.Now().In(loc)

	requireTempFloor := false
	if lowest := product.Temp.NaNMin(); lowest > tempFloorWindowLow && lowest < tempFloorWindowHigh {
		requireTempFloor = true
	}

	var detections []Detection
	for i := range product.Y {
		for j := range product.X {
			if !isFirePixel(product, i, j, requireTempFloor) {
				continue
			}

			lon, lat := product.Projection.Inverse(product.X[j], product.Y[i])
			lon, lat = ToSIRGAS2000(lon, lat)
			if !opts.Region.Contains(lon, lat) {
				continue
			}

			var geom *string
			if isFinite(lon) && isFinite(lat) {
				g := PointEWKT(lon, lat)
				geom = &g
			}

			detections = append(detections, Detection{
				TempKelvin:   round2(product.Temp.At(i, j)),
				AreaM2:       round2(product.Area.At(i, j)),
				PowerMW:      round2(product.Power.At(i, j)),
				FileDatetime: fileTime,
				Geom:         geom,
				Lon:          lon,
				Lat:          lat,
				ObtainedAt:   obtainedAt,
				SourceFile:   filepath.Base(fileName),
			})
		}
	}
	return detections, nil
}

func isFirePixel(p FireProduct, i, j int, requireTempFloor bool) bool {
	mask := p.Mask.At(i, j)
	if math.IsNaN(mask) || !fireMaskCodes[int(mask)] || mask != math.Trunc(mask) {
		return false
	}
	if p.DQF.At(i, j) != 0 {
		return false
	}
	if requireTempFloor && !(p.Temp.At(i, j) > tempFloor) {
		return false
	}
	return true
}

// round2 rounds half to even at two decimals. NaN passes through.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

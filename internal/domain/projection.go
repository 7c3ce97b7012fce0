package domain

import (
	"fmt"
	"math"
)

// GeosProjection holds the geostationary fixed grid parameters carried by the
// goes_imager_projection variable.
type GeosProjection struct {
	PerspectivePointHeight      float64 // metres above the ellipsoid
	SemiMajorAxis               float64 // metres
	SemiMinorAxis               float64 // metres
	LongitudeOfProjectionOrigin float64 // degrees east
	SweepAngleAxis              string  // "x" for GOES, "y" for Meteosat
}

// Validate checks that the projection describes a usable ellipsoid and orbit.
func (p GeosProjection) Validate() error {
	if p.PerspectivePointHeight <= 0 || p.SemiMajorAxis <= 0 || p.SemiMinorAxis <= 0 {
		return fmt.Errorf("geos projection: non-positive height or axis: %+v", p)
	}
	if p.SemiMinorAxis > p.SemiMajorAxis {
		return fmt.Errorf("geos projection: semi minor axis exceeds semi major axis: %+v", p)
	}
	if p.SweepAngleAxis != "x" && p.SweepAngleAxis != "y" {
		return fmt.Errorf("geos projection: unsupported sweep axis %q", p.SweepAngleAxis)
	}
	return nil
}

// Inverse converts fixed grid scan angles (radians) to geodetic longitude and
// latitude in degrees on the projection ellipsoid. Lines of sight that miss
// the Earth return NaN for both.
//
// Distances are normalised by the semi major axis: the line of sight from the
// satellite is intersected with the unit ellipsoid x²+y²+(z/rp)²=1 and the
// nearest root is kept.
func (p GeosProjection) Inverse(x, y float64) (lon, lat float64) {
	rg := 1 + p.PerspectivePointHeight/p.SemiMajorAxis
	rp := p.SemiMinorAxis / p.SemiMajorAxis

	vx := -1.0
	var vy, vz float64
	if p.SweepAngleAxis == "x" {
		vz = math.Tan(y)
		vy = math.Tan(x) * math.Hypot(1, vz)
	} else {
		vy = math.Tan(x)
		vz = math.Tan(y) * math.Hypot(1, vy)
	}

	a := vz / rp
	a = vy*vy + a*a + vx*vx
	b := 2 * rg * vx
	c := rg*rg - 1
	det := b*b - 4*a*c
	if det < 0 {
		return math.NaN(), math.NaN()
	}

	k := (-b - math.Sqrt(det)) / (2 * a)
	px := rg + k*vx
	py := k * vy
	pz := k * vz

	lambda := math.Atan2(py, px)
	phi := math.Atan(pz * math.Cos(lambda) / px)
	phi = math.Atan(math.Tan(phi) / (rp * rp))

	lon = normalizeLongitude(degrees(lambda) + p.LongitudeOfProjectionOrigin)
	lat = degrees(phi)
	return lon, lat
}

// ToSIRGAS2000 converts WGS 84 (EPSG:4326) coordinates to SIRGAS 2000
// (EPSG:4674). The EPSG registry relates both datums through a null
// transformation (EPSG:15894), so coordinates carry over unchanged.
func ToSIRGAS2000(lon, lat float64) (float64, float64) {
	return lon, lat
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func normalizeLongitude(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

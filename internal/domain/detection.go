package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// SRID is the spatial reference of stored detections (SIRGAS 2000).
const SRID = 4674

// Detection is a single fire pixel ready for storage.
type Detection struct {
	ID           int64     `json:"id,omitempty"`
	TempKelvin   float64   `json:"temp_kelvin"`
	AreaM2       float64   `json:"area_m2"`
	PowerMW      float64   `json:"power_mw"`
	FileDatetime time.Time `json:"file_datetime"`
	Geom         *string   `json:"geom"` // EWKT, nil when the pixel has no finite coordinates
	Lon          float64   `json:"lon"`
	Lat          float64   `json:"lat"`
	ObtainedAt   time.Time `json:"dt_obtencao"`
	SourceFile   string    `json:"source_file,omitempty"`
}

// Key returns a deterministic identifier built from the duplicate detection
// fields, geometry and file time.
func (d Detection) Key() string {
	geom := ""
	if d.Geom != nil {
		geom = *d.Geom
	}
	hash := sha256.Sum256([]byte(geom + "|" + d.FileDatetime.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(hash[:8])
}

// LoadStats summarises a batch write.
type LoadStats struct {
	Written    int
	Duplicates int
}

// Add accumulates another batch result.
func (s LoadStats) Add(o LoadStats) LoadStats {
	return LoadStats{Written: s.Written + o.Written, Duplicates: s.Duplicates + o.Duplicates}
}

// PointEWKT formats a point as extended WKT in the SIRGAS 2000 reference.
func PointEWKT(lon, lat float64) string {
	return "SRID=" + strconv.Itoa(SRID) + ";POINT(" + formatCoord(lon) + " " + formatCoord(lat) + ")"
}

// formatCoord prints the shortest exact decimal, keeping a trailing ".0" on
// whole numbers.
func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

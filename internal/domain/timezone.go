package domain

import (
	"fmt"
	"time"

	_ "time/tzdata" // embedded zoneinfo
)

// DefaultTimezone is the zone detections are reported in.
const DefaultTimezone = "America/Sao_Paulo"

// LoadLocation resolves an IANA zone name, falling back to DefaultTimezone
// when name is empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

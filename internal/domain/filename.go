package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidFilename is returned when a GOES product name lacks a parsable
// time field.
var ErrInvalidFilename = errors.New("invalid GOES filename")

// ParseScanTime extracts the time field identified by tag ("s", "e" or "c")
// from a GOES product filename. Directories are ignored.
func ParseScanTime(name, tag string) (time.Time, error) {
	base := filepath.Base(name)
	_, rest, ok := strings.Cut(base, "_"+tag)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q has no _%s field", ErrInvalidFilename, base, tag)
	}
	field, _, _ := strings.Cut(rest, "_")
	field = strings.TrimSuffix(field, filepath.Ext(field))
	if len(field) < 13 {
		return time.Time{}, fmt.Errorf("%w: %q: short _%s field %q", ErrInvalidFilename, base, tag, field)
	}

	var parts [5]int
	bounds := [][2]int{{0, 4}, {4, 7}, {7, 9}, {9, 11}, {11, 13}}
	for i, b := range bounds {
		v, err := strconv.Atoi(field[b[0]:b[1]])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidFilename, base, err)
		}
		parts[i] = v
	}
	year, doy, hour, minute, second := parts[0], parts[1], parts[2], parts[3], parts[4]
	if doy < 1 || doy > 366 || hour > 23 || minute > 59 || second > 60 {
		return time.Time{}, fmt.Errorf("%w: %q: field %q out of range", ErrInvalidFilename, base, field)
	}

	return time.Date(year, time.January, doy, hour, minute, second, 0, time.UTC), nil
}

// ScanStart returns the scan start time encoded in a GOES product filename.
func ScanStart(name string) (time.Time, error) {
	return ParseScanTime(name, "s")
}

// ScanEnd returns the scan end time encoded in a GOES product filename.
func ScanEnd(name string) (time.Time, error) {
	return ParseScanTime(name, "e")
}

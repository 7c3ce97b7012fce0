// Command inspect decodes local GOES FDC files and prints their fire
// detections as JSON lines, followed by a per-file summary on stderr. It does
// not touch the database, which makes it handy for checking a download or a
// region before running the importer.
//
// Usage:
//
//	go run ./cmd/inspect -region=-35,6,-75,-33 data/noaa-goes16/ABI-L2-FDCF/2025/032/12/*.nc
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/adapter/netcdf"
	"github.com/rafaellwml/Fire-Data-GOES16/internal/domain"
)

func main() {
	region := flag.String("region", "", "minLat,maxLat,minLon,maxLon (default South America)")
	tz := flag.String("tz", domain.DefaultTimezone, "IANA zone for file_datetime and dt_obtencao")
	quiet := flag.Bool("quiet", false, "print the summary only")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	opts, err := extractOptions(*region, *tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(2)
	}

	out := io.Writer(os.Stdout)
	if *quiet {
		out = io.Discard
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	os.Exit(run(flag.Args(), opts, netcdf.NewReader(logger), out, os.Stderr))
}

// decoder is satisfied by *netcdf.Reader.
type decoder interface {
	Validate(path string) error
	Decode(path string) (domain.FireProduct, error)
}

type fileSummary struct {
	name       string
	detections int
	err        error
}

func run(paths []string, opts domain.ExtractOptions, dec decoder, out, summary io.Writer) int {
	enc := json.NewEncoder(out)
	results := make([]fileSummary, 0, len(paths))
	failed := 0

	for _, path := range paths {
		s := fileSummary{name: filepath.Base(path)}
		detections, err := inspectFile(path, opts, dec)
		if err != nil {
			s.err = err
			failed++
		}
		for _, d := range detections {
			if err := enc.Encode(d); err != nil {
				fmt.Fprintf(summary, "inspect: write output: %v\n", err)
				return 1
			}
		}
		s.detections = len(detections)
		results = append(results, s)
	}

	total := 0
	for _, s := range results {
		if s.err != nil {
			fmt.Fprintf(summary, "FAIL  %s: %v\n", s.name, s.err)
			continue
		}
		fmt.Fprintf(summary, "OK    %s: %d detection(s)\n", s.name, s.detections)
		total += s.detections
	}
	fmt.Fprintf(summary, "%d file(s), %d failed, %d detection(s)\n", len(results), failed, total)

	if failed > 0 {
		return 1
	}
	return 0
}

func inspectFile(path string, opts domain.ExtractOptions, dec decoder) ([]domain.Detection, error) {
	if err := dec.Validate(path); err != nil {
		return nil, err
	}
	product, err := dec.Decode(path)
	if err != nil {
		return nil, err
	}
	return domain.ExtractDetections(product, path, opts)
}

func extractOptions(region, tz string) (domain.ExtractOptions, error) {
	loc, err := domain.LoadLocation(tz)
	if err != nil {
		return domain.ExtractOptions{}, err
	}
	r := domain.SouthAmerica
	if region != "" {
		r, err = parseRegion(region)
		if err != nil {
			return domain.ExtractOptions{}, err
		}
	}
	return domain.ExtractOptions{Region: r, Location: loc}, nil
}

func parseRegion(s string) (domain.Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.Region{}, errors.New("region needs four comma-separated values")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.Region{}, fmt.Errorf("region value %q: %w", p, err)
		}
		v[i] = f
	}
	r := domain.Region{MinLat: v[0], MaxLat: v[1], MinLon: v[2], MaxLon: v[3]}
	if r.MinLat > r.MaxLat || r.MinLon > r.MaxLon {
		return domain.Region{}, errors.New("region minimum exceeds maximum")
	}
	return r, nil
}

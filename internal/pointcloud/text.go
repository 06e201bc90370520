package pointcloud

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/elevation.report/internal/geo"
)

// ReadText decodes the CSV produced by PDAL's writers.text stage. The header
// row must name X, Y and Z (quoted or not, any order); other columns are
// ignored.
func ReadText(r io.Reader, crs geo.CRS) (*PointSet, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &PointSet{CRS: crs}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	xi, yi, zi := -1, -1, -1
	for i, name := range header {
		switch strings.ToUpper(strings.Trim(strings.TrimSpace(name), `"`)) {
		case "X":
			xi = i
		case "Y":
			yi = i
		case "Z":
			zi = i
		}
	}
	if xi < 0 || yi < 0 || zi < 0 {
		return nil, fmt.Errorf("header %q is missing X, Y or Z", strings.Join(header, ","))
	}
	need := max(xi, yi, zi)

	ps := &PointSet{CRS: crs}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) <= need {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, need+1, len(rec))
		}
		var p Point
		if p.X, err = strconv.ParseFloat(strings.TrimSpace(rec[xi]), 64); err != nil {
			return nil, fmt.Errorf("line %d: X: %w", line, err)
		}
		if p.Y, err = strconv.ParseFloat(strings.TrimSpace(rec[yi]), 64); err != nil {
			return nil, fmt.Errorf("line %d: Y: %w", line, err)
		}
		if p.Z, err = strconv.ParseFloat(strings.TrimSpace(rec[zi]), 64); err != nil {
			return nil, fmt.Errorf("line %d: Z: %w", line, err)
		}
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return nil, fmt.Errorf("line %d: non-finite coordinate (%v, %v, %v)", line, p.X, p.Y, p.Z)
		}
		ps.Points = append(ps.Points, p)
	}
	return ps, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/elevation.report/internal/geo"
	"github.com/ctessum/geom"
)

// Header aliases accepted by LoadCSV. The bounding-box columns match the
// USGS 3DEP metadata export.
var (
	idColumns     = []string{"id", "region", "filename", "name"}
	sourceColumns = []string{"source", "filename"}
	geomColumns   = []string{"geometry", "wkt", "boundary"}
	bboxColumns   = []string{"xmin", "xmax", "ymin", "ymax"}
)

type columns map[string]int

func (c columns) first(names []string) (int, bool) {
	for _, n := range names {
		if i, ok := c[n]; ok {
			return i, true
		}
	}
	return 0, false
}

// LoadFile reads a CSV catalog from path.
func LoadFile(path string, crs geo.CRS) (*Catalog, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogLoad, err)
	}
	defer f.Close()

	c, err := LoadCSV(f, crs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadCSV reads a catalog table. The header must name an identifier column,
// a year column, and either a WKT geometry column or all four bounding-box
// columns. Optional columns "source" (or "filename") and "crs" override the
// resource name and native CRS per region. An empty year is recorded as UnknownYear.
func LoadCSV(r io.Reader, crs geo.CRS) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty catalog", ErrCatalogLoad)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCatalogLoad, err)
	}
	cols := make(columns, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	idCol, ok := cols.first(idColumns)
	if !ok {
		return nil, fmt.Errorf("%w: missing identifier column (one of %s)", ErrCatalogLoad, strings.Join(idColumns, ", "))
	}
	yearCol, ok := cols["year"]
	if !ok {
		return nil, fmt.Errorf("%w: missing year column", ErrCatalogLoad)
	}
	geomCol, hasGeom := cols.first(geomColumns)
	var bbox [4]int
	if !hasGeom {
		for i, name := range bboxColumns {
			if bbox[i], ok = cols[name]; !ok {
				return nil, fmt.Errorf("%w: missing boundary geometry (one of %s, or %s)",
					ErrCatalogLoad, strings.Join(geomColumns, ", "), strings.Join(bboxColumns, "/"))
			}
		}
	}
	sourceCol, hasSource := cols.first(sourceColumns)
	crsCol, hasCRS := cols["crs"]

	var regions []Region
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCatalogLoad, line, err)
		}

		reg := Region{ID: strings.TrimSpace(rec[idCol])}
		if reg.Year, err = parseYear(rec[yearCol]); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCatalogLoad, line, err)
		}
		if hasGeom {
			reg.Boundary, err = geo.ParseWKTPolygon(rec[geomCol])
		} else {
			reg.Boundary, err = bboxPolygon(rec, bbox)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCatalogLoad, line, err)
		}
		if hasSource {
			reg.Source = strings.TrimSpace(rec[sourceCol])
		}
		if hasCRS && strings.TrimSpace(rec[crsCol]) != "" {
			if reg.CRS, err = geo.ParseCRS(rec[crsCol]); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrCatalogLoad, line, err)
			}
		}
		regions = append(regions, reg)
	}
	return New(crs, regions)
}

// parseYear accepts integers and the float form pandas writes ("2018.0").
func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return UnknownYear, nil
	}
	if y, err := strconv.Atoi(s); err == nil {
		return y, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("bad year %q", s)
	}
	return int(f), nil
}

func bboxPolygon(rec []string, idx [4]int) (geom.Polygon, error) {
	var v [4]float64
	for i, col := range idx {
		f, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
		if err != nil {
			return nil, fmt.Errorf("bad %s %q", bboxColumns[i], rec[col])
		}
		v[i] = f
	}
	xmin, xmax, ymin, ymax := v[0], v[1], v[2], v[3]
	if xmin >= xmax || ymin >= ymax {
		return nil, fmt.Errorf("empty bounding box [%v %v] x [%v %v]", xmin, xmax, ymin, ymax)
	}
	return geo.Rect(xmin, ymin, xmax, ymax), nil
}

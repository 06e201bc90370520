// Package testutil provides shared test fixtures: catalog files, synthetic
// point sets and the CRS values most tests use.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/elevation.report/internal/geo"
	"github.com/banshee-data/elevation.report/internal/pointcloud"
)

// WebMercator and WGS84 are parsed once for tests.
var (
	WebMercator = geo.MustParseCRS("EPSG:3857")
	WGS84       = geo.MustParseCRS("EPSG:4326")
)

// WriteFile writes content under t.TempDir() and returns the path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// CatalogCSV joins a header and rows into catalog file content.
func CatalogCSV(header string, rows ...string) string {
	return header + "\n" + strings.Join(rows, "\n") + "\n"
}

// TwoRegionCatalog is the catalog used across packages: region A covers the
// unit square in 2018, region B covers [2,2]-[3,3] in 2019.
func TwoRegionCatalog() string {
	return CatalogCSV("id,year,geometry",
		`A,2018,"POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))"`,
		`B,2019,"POLYGON((2 2, 3 2, 3 3, 2 3, 2 2))"`,
	)
}

// Points builds a point set from (x, y, z) triples.
func Points(crs geo.CRS, xyz ...[3]float64) *pointcloud.PointSet {
	ps := &pointcloud.PointSet{CRS: crs}
	for _, p := range xyz {
		ps.Points = append(ps.Points, pointcloud.Point{X: p[0], Y: p[1], Z: p[2]})
	}
	return ps
}

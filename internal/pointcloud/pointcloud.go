// Package pointcloud defines the raw elevation samples produced by a fetch and
// the reader for PDAL's delimited text output.
package pointcloud

import (
	"math"

	"github.com/banshee-data/elevation.report/internal/geo"
)

// Point is a single elevation sample.
type Point struct {
	X, Y, Z float64
}

// PointSet is an unordered collection of samples in one CRS.
type PointSet struct {
	CRS    geo.CRS
	Points []Point
}

// Len returns the number of samples; a nil set has none.
func (ps *PointSet) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.Points)
}

// Bounds returns the axis-aligned extent of the set. ok is false for an
// empty set.
func (ps *PointSet) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	if ps.Len() == 0 {
		return 0, 0, 0, 0, false
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range ps.Points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY, true
}

// ZRange returns the minimum and maximum elevation.
func (ps *PointSet) ZRange() (minZ, maxZ float64, ok bool) {
	if ps.Len() == 0 {
		return 0, 0, false
	}
	minZ, maxZ = math.Inf(1), math.Inf(-1)
	for _, p := range ps.Points {
		minZ = math.Min(minZ, p.Z)
		maxZ = math.Max(maxZ, p.Z)
	}
	return minZ, maxZ, true
}

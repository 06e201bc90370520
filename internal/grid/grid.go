package grid

import (
	"math"

	"github.com/banshee-data/elevation.report/internal/geo"
	"gonum.org/v1/gonum/mat"
)

// Transform maps cell indices to CRS coordinates of the cell's top-left
// corner, in the same order as a GDAL geotransform with no rotation.
type Transform struct {
	OriginX     float64 // west edge
	OriginY     float64 // north edge
	PixelWidth  float64
	PixelHeight float64 // positive; rows grow southwards
}

// Corner returns the top-left corner of cell (row, col).
func (t Transform) Corner(row, col int) (x, y float64) {
	return t.OriginX + float64(col)*t.PixelWidth, t.OriginY - float64(row)*t.PixelHeight
}

// GeoTransform returns the six GDAL coefficients.
func (t Transform) GeoTransform() [6]float64 {
	return [6]float64{t.OriginX, t.PixelWidth, 0, t.OriginY, 0, -t.PixelHeight}
}

// ElevationGrid is a rasterized elevation surface.
type ElevationGrid struct {
	Rows, Cols int
	// Values holds per-cell elevations; NaN marks cells with no data.
	Values     *mat.Dense
	Transform  Transform
	Resolution float64
	CRS        geo.CRS
	// Counts is the number of samples aggregated into each cell.
	Counts []int
}

// At returns the elevation of cell (row, col). ok is false for no-data cells
// and out-of-range indices.
func (g *ElevationGrid) At(row, col int) (z float64, ok bool) {
	if row < 0 || col < 0 || row >= g.Rows || col >= g.Cols {
		return math.NaN(), false
	}
	z = g.Values.At(row, col)
	return z, !math.IsNaN(z)
}

// Count returns how many samples contributed to cell (row, col).
func (g *ElevationGrid) Count(row, col int) int {
	if row < 0 || col < 0 || row >= g.Rows || col >= g.Cols {
		return 0
	}
	return g.Counts[row*g.Cols+col]
}

// CellOf returns the cell containing (x, y). ok is false outside the grid
// extent. Samples on the outer east or north edge are assigned to the last
// column or first row.
func (g *ElevationGrid) CellOf(x, y float64) (row, col int, ok bool) {
	t := g.Transform
	east := t.OriginX + float64(g.Cols)*t.PixelWidth
	south := t.OriginY - float64(g.Rows)*t.PixelHeight
	tol := 1e-9 * t.PixelWidth
	if x < t.OriginX-tol || x > east+tol || y < south-tol || y > t.OriginY+tol {
		return 0, 0, false
	}
	row, col = g.index(x, y)
	return row, col, true
}

// index is shared by Resample and CellOf so both agree on boundary samples.
func (g *ElevationGrid) index(x, y float64) (row, col int) {
	t := g.Transform
	south := t.OriginY - float64(g.Rows)*t.PixelHeight
	col = clamp(int(math.Floor((x-t.OriginX)/t.PixelWidth)), 0, g.Cols-1)
	k := clamp(int(math.Floor((y-south)/t.PixelHeight)), 0, g.Rows-1)
	return g.Rows - 1 - k, col
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CellCenter returns the CRS coordinates of the centre of cell (row, col).
func (g *ElevationGrid) CellCenter(row, col int) (x, y float64) {
	x, y = g.Transform.Corner(row, col)
	return x + g.Transform.PixelWidth/2, y - g.Transform.PixelHeight/2
}

// Valid returns the number of cells holding data.
func (g *ElevationGrid) Valid() int {
	n := 0
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if _, ok := g.At(r, c); ok {
				n++
			}
		}
	}
	return n
}

// Stats summarizes the valid cells. ok is false when the grid has none.
func (g *ElevationGrid) Stats() (minZ, maxZ, mean float64, ok bool) {
	minZ, maxZ = math.Inf(1), math.Inf(-1)
	var sum float64
	n := 0
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			z, valid := g.At(r, c)
			if !valid {
				continue
			}
			minZ = math.Min(minZ, z)
			maxZ = math.Max(maxZ, z)
			sum += z
			n++
		}
	}
	if n == 0 {
		return 0, 0, 0, false
	}
	return minZ, maxZ, sum / float64(n), true
}

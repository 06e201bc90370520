package grid

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/elevation.report/internal/pointcloud"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmptyPointSet is returned when there are no samples to rasterize.
	ErrEmptyPointSet = errors.New("empty point set")
	// ErrInvalidResolution is returned for resolutions that are not finite
	// and strictly positive.
	ErrInvalidResolution = errors.New("invalid resolution")
	// ErrGridTooLarge guards against resolutions far too fine for the extent.
	ErrGridTooLarge = errors.New("grid too large")
	// ErrNonFiniteSample is returned when a sample has a NaN or infinite
	// ordinate.
	ErrNonFiniteSample = errors.New("non-finite sample")
)

// MaxCells caps the number of cells Resample will allocate.
var MaxCells = 1 << 28

// CheckResolution validates a cell size.
func CheckResolution(res float64) error {
	if !(res > 0) || math.IsInf(res, 1) {
		return fmt.Errorf("%w: %v (must be > 0)", ErrInvalidResolution, res)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func checkFinite(ps *pointcloud.PointSet) error {
	for i, p := range ps.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return fmt.Errorf("%w: point %d is (%v, %v, %v)", ErrNonFiniteSample, i, p.X, p.Y, p.Z)
		}
	}
	return nil
}

type sample struct {
	cell int
	z    float64
}

// Resample rasterizes ps onto a grid with square cells of the given size.
//
// The extent is the bounding box of the samples snapped outward to multiples
// of the resolution. Each cell holds the arithmetic mean of the z-values that
// fall in it. The z-values of a cell are sorted before summation, so the
// result is bit-identical for any ordering of ps.Points.
func Resample(ps *pointcloud.PointSet, resolution float64) (*ElevationGrid, error) {
	if err := CheckResolution(resolution); err != nil {
		return nil, err
	}
	if ps.Len() == 0 {
		return nil, ErrEmptyPointSet
	}
	if err := checkFinite(ps); err != nil {
		return nil, err
	}
	minX, minY, maxX, maxY, _ := ps.Bounds()

	west := snapDown(minX, resolution)
	south := snapDown(minY, resolution)
	cols := math.Floor((maxX-west)/resolution) + 1
	rows := math.Floor((maxY-south)/resolution) + 1
	if rows*cols > float64(MaxCells) {
		return nil, fmt.Errorf("%w: %.0fx%.0f cells at resolution %v", ErrGridTooLarge, rows, cols, resolution)
	}

	g := &ElevationGrid{
		Rows: int(rows),
		Cols: int(cols),
		Transform: Transform{
			OriginX:     west,
			OriginY:     south + rows*resolution,
			PixelWidth:  resolution,
			PixelHeight: resolution,
		},
		Resolution: resolution,
		CRS:        ps.CRS,
	}
	g.Counts = make([]int, g.Rows*g.Cols)

	samples := make([]sample, len(ps.Points))
	for i, p := range ps.Points {
		r, c := g.index(p.X, p.Y)
		samples[i] = sample{cell: r*g.Cols + c, z: p.Z}
	}
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].cell != samples[j].cell {
			return samples[i].cell < samples[j].cell
		}
		return samples[i].z < samples[j].z
	})

	data := make([]float64, g.Rows*g.Cols)
	for i := range data {
		data[i] = math.NaN()
	}
	zs := make([]float64, len(samples))
	for i, s := range samples {
		zs[i] = s.z
	}
	for start := 0; start < len(samples); {
		end := start + 1
		for end < len(samples) && samples[end].cell == samples[start].cell {
			end++
		}
		cell := samples[start].cell
		data[cell] = stat.Mean(zs[start:end], nil)
		g.Counts[cell] = end - start
		start = end
	}
	g.Values = mat.NewDense(g.Rows, g.Cols, data)
	return g, nil
}

// snapDown returns the largest multiple of res not greater than v.
func snapDown(v, res float64) float64 {
	s := math.Floor(v/res) * res
	if s > v {
		s -= res
	}
	return s
}

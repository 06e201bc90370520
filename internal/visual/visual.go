// Package visual renders elevation grids as interactive HTML charts
// (go-echarts) or static PNG heatmaps (gonum/plot). Grids are only read.
package visual

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/elevation.report/internal/grid"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var (
	// ErrUnsupportedMode is returned for unknown visualization modes.
	ErrUnsupportedMode = errors.New("unsupported visualization mode")
	// ErrNoData is returned for grids without a single valid cell.
	ErrNoData = errors.New("grid has no data")
)

// Mode selects the chart type.
type Mode string

const (
	Surface3D Mode = "surface3d"
	Heatmap   Mode = "heatmap"
)

// ParseMode accepts the mode names case-insensitively; "3d" and "surface"
// are aliases for Surface3D.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "surface3d", "surface", "3d":
		return Surface3D, nil
	case "heatmap", "heat":
		return Heatmap, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
}

// viridis stops, matching the monitor charts.
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// Render writes g as a self-contained HTML chart. No-data cells are left out.
func Render(w io.Writer, g *grid.ElevationGrid, mode Mode, title string) error {
	minZ, maxZ, _, ok := g.Stats()
	if !ok {
		return ErrNoData
	}
	visualMap := charts.WithVisualMapOpts(opts.VisualMap{
		Show:       opts.Bool(true),
		Calculable: opts.Bool(true),
		Min:        float32(minZ),
		Max:        float32(maxZ),
		InRange:    &opts.VisualMapInRange{Color: viridis},
	})
	initOpts := charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1000px", Height: "800px"})
	titleOpts := charts.WithTitleOpts(opts.Title{
		Title:    title,
		Subtitle: fmt.Sprintf("%dx%d cells at %g (%s), %d with data", g.Cols, g.Rows, g.Resolution, g.CRS, g.Valid()),
	})

	switch mode {
	case Surface3D:
		c := charts.NewSurface3D()
		c.SetGlobalOptions(initOpts, titleOpts, visualMap,
			charts.WithXAxis3DOpts(opts.XAxis3D{Name: "X"}),
			charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Y"}),
			charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Elevation"}),
		)
		c.AddSeries("elevation", surfaceData(g))
		return c.Render(w)

	case Heatmap:
		xs, ys := axisLabels(g)
		c := charts.NewHeatMap()
		c.SetGlobalOptions(initOpts, titleOpts, visualMap,
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "X"}),
			charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "Y", Data: ys}),
		)
		c.SetXAxis(xs)
		c.AddSeries("elevation", heatmapData(g))
		return c.Render(w)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedMode, string(mode))
}

func surfaceData(g *grid.ElevationGrid) []opts.Chart3DData {
	data := make([]opts.Chart3DData, 0, g.Valid())
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			z, ok := g.At(r, c)
			if !ok {
				continue
			}
			x, y := g.CellCenter(r, c)
			data = append(data, opts.Chart3DData{Value: []interface{}{x, y, z}})
		}
	}
	return data
}

// heatmapData indexes rows from the south so the chart is north-up.
func heatmapData(g *grid.ElevationGrid) []opts.HeatMapData {
	data := make([]opts.HeatMapData, 0, g.Valid())
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			z, ok := g.At(r, c)
			if !ok {
				continue
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{c, g.Rows - 1 - r, z}})
		}
	}
	return data
}

func axisLabels(g *grid.ElevationGrid) (xs, ys []string) {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for c := 0; c < g.Cols; c++ {
		x, _ := g.CellCenter(0, c)
		xs = append(xs, f(x))
	}
	for r := g.Rows - 1; r >= 0; r-- {
		_, y := g.CellCenter(r, 0)
		ys = append(ys, f(y))
	}
	return xs, ys
}

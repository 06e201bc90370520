package visual

import (
	"fmt"
	"image/color"
	"io"

	"github.com/banshee-data/elevation.report/internal/grid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// gridXYZ adapts an ElevationGrid to plotter.GridXYZ. Row 0 of the adapter
// is the southernmost grid row.
type gridXYZ struct {
	g *grid.ElevationGrid
}

func (a gridXYZ) Dims() (c, r int) { return a.g.Cols, a.g.Rows }

func (a gridXYZ) Z(c, r int) float64 {
	return a.g.Values.At(a.g.Rows-1-r, c)
}

func (a gridXYZ) X(c int) float64 {
	x, _ := a.g.CellCenter(0, c)
	return x
}

func (a gridXYZ) Y(r int) float64 {
	_, y := a.g.CellCenter(a.g.Rows-1-r, 0)
	return y
}

func heatmapPlot(g *grid.ElevationGrid, title string) (*plot.Plot, error) {
	if _, _, _, ok := g.Stats(); !ok {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = fmt.Sprintf("X (%s)", g.CRS)
	p.Y.Label.Text = "Y"

	hm := plotter.NewHeatMap(gridXYZ{g}, palette.Heat(32, 1))
	hm.NaN = color.Transparent
	p.Add(hm)
	return p, nil
}

const pngSize = 8 * vg.Inch

// WriteHeatmapPNG draws g as a PNG heatmap to w. No-data cells are
// transparent.
func WriteHeatmapPNG(w io.Writer, g *grid.ElevationGrid, title string) error {
	p, err := heatmapPlot(g, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(pngSize, pngSize, "png")
	if err != nil {
		return fmt.Errorf("draw heatmap: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write heatmap: %w", err)
	}
	return nil
}

// SaveHeatmapPNG draws g as a heatmap and writes it to path. The image
// format follows the file extension.
func SaveHeatmapPNG(path string, g *grid.ElevationGrid, title string) error {
	p, err := heatmapPlot(g, title)
	if err != nil {
		return err
	}
	if err := p.Save(pngSize, pngSize, path); err != nil {
		return fmt.Errorf("save heatmap: %w", err)
	}
	return nil
}

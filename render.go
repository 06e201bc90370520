package elevation

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/elevation.report/internal/grid"
	"github.com/banshee-data/elevation.report/internal/monitoring"
	"github.com/banshee-data/elevation.report/internal/request"
	"github.com/banshee-data/elevation.report/internal/visual"
)

func renderTitle(req *request.FetchRequest) string {
	if req.Year == 0 {
		return req.RegionID + " (year unknown)"
	}
	return fmt.Sprintf("%s (%d)", req.RegionID, req.Year)
}

// render writes the HTML chart, plus a PNG for heatmaps, into the render
// directory and returns the paths written.
func (p *Processor) render(req *request.FetchRequest, g *grid.ElevationGrid, mode visual.Mode) ([]string, error) {
	if mode == "" {
		mode = visual.Mode(p.cfg.GetRenderMode())
	}
	mode, err := visual.ParseMode(string(mode))
	if err != nil {
		return nil, err
	}

	dir := p.cfg.GetRenderDir()
	if err := p.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	stem := filepath.Join(dir, req.Stem())
	title := renderTitle(req)

	var paths []string
	htmlPath := stem + "_" + string(mode) + ".html"
	if err := p.writeFile(htmlPath, func(w io.Writer) error { return visual.Render(w, g, mode, title) }); err != nil {
		return nil, err
	}
	paths = append(paths, htmlPath)

	if mode == visual.Heatmap {
		pngPath := stem + "_heatmap.png"
		if err := p.writeFile(pngPath, func(w io.Writer) error { return visual.WriteHeatmapPNG(w, g, title) }); err != nil {
			return paths, err
		}
		paths = append(paths, pngPath)
	}
	monitoring.Logf("rendered %s: %v", req, paths)
	return paths, nil
}

// writeFile creates path and fills it with write, removing it on failure.
func (p *Processor) writeFile(path string, write func(io.Writer) error) error {
	f, err := p.fs.Create(path)
	if err != nil {
		return err
	}
	err = write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		p.fs.Remove(path)
		return err
	}
	return nil
}

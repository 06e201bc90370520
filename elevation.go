// Package elevation fetches public lidar point clouds for an area of
// interest and turns them into gridded elevation surfaces, one per matched
// collection region and year.
//
// A Processor looks up the catalog regions that overlap the query boundary,
// builds one PDAL fetch request per region, runs the requests concurrently
// with retries, resamples each point set onto a grid and optionally renders
// it. Catalog, CRS, geometry and coverage problems fail the whole call; a
// failed fetch or resample is recorded against its own request only.
package elevation

import (
	"context"
	"fmt"
	"sort"

	"github.com/banshee-data/elevation.report/internal/catalog"
	"github.com/banshee-data/elevation.report/internal/config"
	"github.com/banshee-data/elevation.report/internal/fetch"
	"github.com/banshee-data/elevation.report/internal/fsutil"
	"github.com/banshee-data/elevation.report/internal/geo"
	"github.com/banshee-data/elevation.report/internal/grid"
	"github.com/banshee-data/elevation.report/internal/httputil"
	"github.com/banshee-data/elevation.report/internal/monitoring"
	"github.com/banshee-data/elevation.report/internal/request"
	"github.com/banshee-data/elevation.report/internal/timeutil"
	"github.com/banshee-data/elevation.report/internal/visual"
	"github.com/ctessum/geom"
	"github.com/prometheus/client_golang/prometheus"
)

// Query is a boundary query.
type Query struct {
	Boundary geom.Polygon
	// SourceCRS is the CRS of Boundary.
	SourceCRS geo.CRS
	// OutputCRS is the CRS of the returned grids; SourceCRS when zero.
	OutputCRS  geo.CRS
	Resolution float64
	Visualize  bool
	// Mode overrides the configured render mode.
	Mode visual.Mode
	// SubsampleVoxel thins each point set to voxel barycenters before
	// resampling when positive.
	SubsampleVoxel float64
}

// YearResult is the outcome of one fetch request. Exactly one of Grid and
// Err is set. Render failures do not clear Grid.
type YearResult struct {
	Request     *request.FetchRequest
	Grid        *grid.ElevationGrid
	Err         error
	RenderPaths []string
	RenderErr   error
}

// OK reports whether the request produced a grid.
func (r YearResult) OK() bool { return r.Err == nil && r.Grid != nil }

// Results maps collection year to the results of every request for that
// year, in catalog order. Year 0 collects regions with no recorded year.
type Results struct {
	ByYear map[int][]YearResult
}

// Years returns the years present, ascending.
func (r *Results) Years() []int {
	years := make([]int, 0, len(r.ByYear))
	for y := range r.ByYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Failures returns the failed results in year order.
func (r *Results) Failures() []YearResult {
	var out []YearResult
	for _, y := range r.Years() {
		for _, res := range r.ByYear[y] {
			if res.Err != nil {
				out = append(out, res)
			}
		}
	}
	return out
}

// Grids returns the successful grids for year.
func (r *Results) Grids(year int) []*grid.ElevationGrid {
	var out []*grid.ElevationGrid
	for _, res := range r.ByYear[year] {
		if res.OK() {
			out = append(out, res.Grid)
		}
	}
	return out
}

// Processor runs boundary queries against one catalog. It is safe for
// concurrent use.
type Processor struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	builder request.Builder
	exec    fetch.Executor
	limit   int

	base    fetch.Executor
	client  httputil.HTTPClient
	metrics *monitoring.FetchCollector
	clock   timeutil.Clock
	fs      fsutil.FileSystem
}

// Option configures a Processor.
type Option func(*Processor)

// WithExecutor replaces the PDAL executor. Retries still apply.
func WithExecutor(e fetch.Executor) Option {
	return func(p *Processor) { p.base = e }
}

// WithHTTPClient sets the client used to probe sources.
func WithHTTPClient(c httputil.HTTPClient) Option {
	return func(p *Processor) { p.client = c }
}

// WithFileSystem sets where renders are written.
func WithFileSystem(fs fsutil.FileSystem) Option {
	return func(p *Processor) { p.fs = fs }
}

// WithClock sets the clock used to time fetch attempts.
func WithClock(c timeutil.Clock) Option {
	return func(p *Processor) { p.clock = c }
}

// WithMetrics records fetch metrics against reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(p *Processor) {
		m, err := monitoring.NewFetchCollector(reg)
		if err != nil {
			monitoring.Logf("fetch metrics disabled: %v", err)
			return
		}
		p.metrics = m
	}
}

// New returns a Processor over cat. A nil cfg uses defaults throughout.
func New(cfg *config.Config, cat *catalog.Catalog, opts ...Option) *Processor {
	if cfg == nil {
		cfg = &config.Config{}
	}
	p := &Processor{
		cfg:     cfg,
		catalog: cat,
		builder: request.Builder{
			SourceURL:      cfg.GetSourceURL(),
			ThinningRadius: cfg.GetThinningRadius(),
			ExcludeNoise:   cfg.GetExcludeNoise(),
			LAZDir:         cfg.GetLAZDir(),
			TIFDir:         cfg.GetTIFDir(),
		},
		limit: cfg.GetMaxConcurrentFetches(),
		fs:    fsutil.OSFileSystem{},
	}
	for _, o := range opts {
		o(p)
	}

	if p.base == nil {
		pdal := &fetch.PDALExecutor{Path: cfg.GetPDALPath(), WorkDir: cfg.GetWorkDir()}
		if cfg.GetProbeSource() {
			pdal.Probe = &fetch.EPTProbe{Client: p.client}
		}
		p.base = pdal
	}
	p.exec = &fetch.Retrier{
		Exec:           p.base,
		MaxAttempts:    cfg.GetMaxAttempts(),
		InitialBackoff: cfg.GetInitialBackoff(),
		MaxBackoff:     cfg.GetMaxBackoff(),
		Metrics:        p.metrics,
		Clock:          p.clock,
	}
	return p
}

// Catalog returns the catalog queries run against.
func (p *Processor) Catalog() *catalog.Catalog { return p.catalog }

// Fetch runs q. The returned error is non-nil only when no request could be
// issued: an invalid CRS, boundary or resolution, or no catalog coverage.
func (p *Processor) Fetch(ctx context.Context, q Query) (*Results, error) {
	if p.catalog == nil {
		return nil, fmt.Errorf("%w: no catalog loaded", catalog.ErrCatalogLoad)
	}
	if q.SourceCRS.IsZero() {
		return nil, fmt.Errorf("%w: boundary CRS is not set", geo.ErrInvalidCRS)
	}
	outCRS := q.OutputCRS
	if outCRS.IsZero() {
		outCRS = q.SourceCRS
	}

	regions, err := p.catalog.FindIntersecting(q.Boundary, q.SourceCRS)
	if err != nil {
		return nil, err
	}
	reqs, err := p.builder.Build(regions, q.Boundary, q.SourceCRS, outCRS, q.Resolution)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("query matched %d region(s); fetching at resolution %g in %s", len(reqs), q.Resolution, outCRS)

	outcomes := fetch.RunBatch(ctx, p.exec, reqs, p.limit)

	results := &Results{ByYear: make(map[int][]YearResult)}
	for _, o := range outcomes {
		res := p.finish(o, q)
		results.ByYear[o.Request.Year] = append(results.ByYear[o.Request.Year], res)
	}
	return results, nil
}

// finish resamples and renders one fetch outcome.
func (p *Processor) finish(o fetch.Outcome, q Query) YearResult {
	res := YearResult{Request: o.Request}
	if o.Err != nil {
		monitoring.Logf("fetch %s failed: %v", o.Request, o.Err)
		res.Err = o.Err
		return res
	}

	ps := o.Points
	if ps != nil && ps.CRS.IsZero() {
		ps.CRS = o.Request.OutputCRS
	}
	if q.SubsampleVoxel > 0 && ps.Len() > 0 {
		thinned, err := grid.Subsample(ps, q.SubsampleVoxel)
		if err != nil {
			res.Err = fmt.Errorf("subsample %s: %w", o.Request, err)
			return res
		}
		ps = thinned
	}

	g, err := grid.Resample(ps, o.Request.Resolution)
	if err != nil {
		monitoring.Logf("resample %s failed: %v", o.Request, err)
		res.Err = fmt.Errorf("resample %s: %w", o.Request, err)
		return res
	}
	res.Grid = g

	if q.Visualize {
		res.RenderPaths, res.RenderErr = p.render(o.Request, g, q.Mode)
		if res.RenderErr != nil {
			monitoring.Logf("render %s failed: %v", o.Request, res.RenderErr)
		}
	}
	return res
}

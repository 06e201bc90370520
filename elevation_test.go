package elevation

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/banshee-data/elevation.report/internal/catalog"
	"github.com/banshee-data/elevation.report/internal/config"
	"github.com/banshee-data/elevation.report/internal/fetch"
	"github.com/banshee-data/elevation.report/internal/fsutil"
	"github.com/banshee-data/elevation.report/internal/geo"
	"github.com/banshee-data/elevation.report/internal/monitoring"
	"github.com/banshee-data/elevation.report/internal/pointcloud"
	"github.com/banshee-data/elevation.report/internal/request"
	"github.com/banshee-data/elevation.report/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	monitoring.SetLogger(nil)
}

func ptr[T any](v T) *T { return &v }

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		InitialBackoff: ptr("1ms"),
		MaxBackoff:     ptr("2ms"),
		RenderDir:      ptr(filepath.Join(t.TempDir(), "renders")),
	}
}

func loadCatalog(t *testing.T, content string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.LoadCSV(strings.NewReader(content), testutil.WebMercator)
	require.NoError(t, err)
	return c
}

// fixedPoints returns the same two samples for every request.
var fixedPoints = ExecutorFunc(func(ctx context.Context, req *request.FetchRequest) (*pointcloud.PointSet, error) {
	return testutil.Points(req.OutputCRS, [3]float64{0.1, 0.1, 10}, [3]float64{0.9, 0.9, 12}), nil
})

func unitQuery() Query {
	return Query{
		Boundary:   geo.Rect(0, 0, 1, 1),
		SourceCRS:  testutil.WebMercator,
		OutputCRS:  testutil.WebMercator,
		Resolution: 1,
	}
}

func TestFetch_SingleRegion(t *testing.T) {
	p := New(testConfig(t), loadCatalog(t, testutil.TwoRegionCatalog()), WithExecutor(fixedPoints))

	res, err := p.Fetch(context.Background(), unitQuery())
	require.NoError(t, err)

	assert.Equal(t, []int{2018}, res.Years())
	require.Len(t, res.ByYear[2018], 1)

	r := res.ByYear[2018][0]
	require.True(t, r.OK(), "error: %v", r.Err)
	assert.Equal(t, "A", r.Request.RegionID)
	assert.Equal(t, 1, r.Grid.Rows)
	assert.Equal(t, 1, r.Grid.Cols)
	z, ok := r.Grid.At(0, 0)
	require.True(t, ok)
	assert.Equal(t, 11.0, z)

	// grid agrees with its request
	assert.Equal(t, r.Request.Resolution, r.Grid.Transform.PixelWidth)
	assert.Equal(t, r.Request.Resolution, r.Grid.Transform.PixelHeight)
	assert.True(t, r.Grid.CRS.Equal(r.Request.OutputCRS))

	assert.Empty(t, res.Failures())
	assert.Len(t, res.Grids(2018), 1)
	assert.Empty(t, r.RenderPaths)
}

func TestFetch_OverlappingSameYear(t *testing.T) {
	cat := loadCatalog(t, testutil.CatalogCSV("id,year,geometry",
		`A,2020,"POLYGON((0 0, 2 0, 2 2, 0 2, 0 0))"`,
		`B,2020,"POLYGON((1 1, 3 1, 3 3, 1 3, 1 1))"`,
	))
	boom := errors.New("malformed pipeline")
	exec := ExecutorFunc(func(ctx context.Context, req *request.FetchRequest) (*pointcloud.PointSet, error) {
		if req.RegionID == "B" {
			return nil, boom
		}
		return fixedPoints(ctx, req)
	})
	p := New(testConfig(t), cat, WithExecutor(exec))

	q := unitQuery()
	q.Boundary = geo.Rect(1, 1, 2, 2)
	res, err := p.Fetch(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, res.ByYear[2020], 2)
	a, b := res.ByYear[2020][0], res.ByYear[2020][1]
	assert.Equal(t, "A", a.Request.RegionID)
	assert.True(t, a.OK())
	assert.Equal(t, "B", b.Request.RegionID)
	assert.Nil(t, b.Grid)

	var fe *FetchError
	require.ErrorAs(t, b.Err, &fe)
	assert.Equal(t, Permanent, fe.Kind)
	assert.ErrorIs(t, b.Err, boom)

	require.Len(t, res.Failures(), 1)
	assert.Len(t, res.Grids(2020), 1)
}

func TestFetch_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	exec := ExecutorFunc(func(ctx context.Context, req *request.FetchRequest) (*pointcloud.PointSet, error) {
		if calls.Add(1) == 1 {
			return nil, fetch.MarkTransient(errors.New("connection reset"))
		}
		return fixedPoints(ctx, req)
	})
	reg := prometheus.NewRegistry()
	p := New(testConfig(t), loadCatalog(t, testutil.TwoRegionCatalog()), WithExecutor(exec), WithMetrics(reg))

	res, err := p.Fetch(context.Background(), unitQuery())
	require.NoError(t, err)
	assert.True(t, res.ByYear[2018][0].OK())
	assert.Equal(t, int32(2), calls.Load())

	count, err := promtest.GatherAndCount(reg, "elevation_fetch_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFetch_EmptyPointSetRecorded(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, req *request.FetchRequest) (*pointcloud.PointSet, error) {
		return &pointcloud.PointSet{}, nil
	})
	p := New(testConfig(t), loadCatalog(t, testutil.TwoRegionCatalog()), WithExecutor(exec))

	res, err := p.Fetch(context.Background(), unitQuery())
	require.NoError(t, err)
	require.Len(t, res.ByYear[2018], 1)
	assert.ErrorIs(t, res.ByYear[2018][0].Err, ErrEmptyPointSet)
}

func TestFetch_AbortingErrors(t *testing.T) {
	cat := loadCatalog(t, testutil.TwoRegionCatalog())
	p := New(testConfig(t), cat, WithExecutor(fixedPoints))
	ctx := context.Background()

	q := unitQuery()
	q.Boundary = geo.Rect(10, 10, 11, 11)
	_, err := p.Fetch(ctx, q)
	assert.ErrorIs(t, err, ErrNoCoverage)

	q = unitQuery()
	q.SourceCRS = CRS{}
	_, err = p.Fetch(ctx, q)
	assert.ErrorIs(t, err, ErrInvalidCRS)

	q = unitQuery()
	q.Boundary = geo.Rect(0, 0, 0, 1)
	_, err = p.Fetch(ctx, q)
	assert.ErrorIs(t, err, ErrDegenerateGeometry)

	q = unitQuery()
	q.Resolution = 0
	_, err = p.Fetch(ctx, q)
	assert.ErrorIs(t, err, ErrInvalidResolution)

	_, err = New(nil, nil).Fetch(ctx, unitQuery())
	assert.ErrorIs(t, err, ErrCatalogLoad)
}

func TestFetch_DefaultsOutputCRS(t *testing.T) {
	p := New(testConfig(t), loadCatalog(t, testutil.TwoRegionCatalog()), WithExecutor(fixedPoints))
	q := unitQuery()
	q.OutputCRS = CRS{}

	res, err := p.Fetch(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, res.ByYear[2018][0].Request.OutputCRS.Equal(testutil.WebMercator))
}

func TestFetch_Subsample(t *testing.T) {
	p := New(testConfig(t), loadCatalog(t, testutil.TwoRegionCatalog()), WithExecutor(fixedPoints))
	q := unitQuery()
	q.SubsampleVoxel = 5

	res, err := p.Fetch(context.Background(), q)
	require.NoError(t, err)
	r := res.ByYear[2018][0]
	require.True(t, r.OK())
	// both samples collapse into one voxel
	assert.Equal(t, 1, r.Grid.Count(0, 0))
	z, _ := r.Grid.At(0, 0)
	assert.Equal(t, 11.0, z)
}

func TestFetch_Visualize(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, loadCatalog(t, testutil.TwoRegionCatalog()), WithExecutor(fixedPoints))

	q := unitQuery()
	q.Visualize = true
	res, err := p.Fetch(context.Background(), q)
	require.NoError(t, err)

	r := res.ByYear[2018][0]
	require.NoError(t, r.RenderErr)
	require.Len(t, r.RenderPaths, 2)
	assert.True(t, strings.HasSuffix(r.RenderPaths[0], "_heatmap.html"))
	assert.True(t, strings.HasSuffix(r.RenderPaths[1], "_heatmap.png"))
	for _, path := range r.RenderPaths {
		assert.Equal(t, cfg.GetRenderDir(), filepath.Dir(path))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	q.Mode = Surface3D
	res, err = p.Fetch(context.Background(), q)
	require.NoError(t, err)
	r = res.ByYear[2018][0]
	require.NoError(t, r.RenderErr)
	require.Len(t, r.RenderPaths, 1)
	assert.True(t, strings.HasSuffix(r.RenderPaths[0], "_surface3d.html"))
}

func TestFetch_VisualizeMemoryFileSystem(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	cfg := testConfig(t)
	cfg.RenderDir = ptr("out/renders")
	p := New(cfg, loadCatalog(t, testutil.TwoRegionCatalog()), WithExecutor(fixedPoints), WithFileSystem(mem))

	q := unitQuery()
	q.Visualize = true
	res, err := p.Fetch(context.Background(), q)
	require.NoError(t, err)

	r := res.ByYear[2018][0]
	require.NoError(t, r.RenderErr)
	assert.Equal(t, r.RenderPaths, mem.Files())

	png, err := mem.ReadFile(r.RenderPaths[1])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = os.Stat("out")
	assert.True(t, os.IsNotExist(err))
}

func TestFetch_PersistedOutputPaths(t *testing.T) {
	cfg := testConfig(t)
	cfg.LAZDir = ptr("data/laz")
	cfg.TIFDir = ptr("data/tif")

	var seen *request.FetchRequest
	exec := ExecutorFunc(func(ctx context.Context, req *request.FetchRequest) (*pointcloud.PointSet, error) {
		seen = req
		return fixedPoints(ctx, req)
	})
	p := New(cfg, loadCatalog(t, testutil.TwoRegionCatalog()), WithExecutor(exec))
	_, err := p.Fetch(context.Background(), unitQuery())
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, filepath.Join("data/laz", seen.Stem()+".laz"), seen.LAZPath)
	assert.Equal(t, filepath.Join("data/tif", seen.Stem()+".tif"), seen.TIFPath)
	_, ok := seen.Pipeline("points.csv").Stage("writers.las")
	assert.True(t, ok)
}

func TestFetch_UnsupportedModeKeepsGrid(t *testing.T) {
	p := New(testConfig(t), loadCatalog(t, testutil.TwoRegionCatalog()), WithExecutor(fixedPoints))
	q := unitQuery()
	q.Visualize = true
	q.Mode = Mode("contour")

	res, err := p.Fetch(context.Background(), q)
	require.NoError(t, err)
	r := res.ByYear[2018][0]
	assert.True(t, r.OK())
	assert.ErrorIs(t, r.RenderErr, ErrUnsupportedMode)
}

func TestRenderTitle(t *testing.T) {
	req := &request.FetchRequest{RegionID: "USGS LPC/IA 2019", Year: 0}
	assert.Equal(t, "USGS LPC/IA 2019 (year unknown)", renderTitle(req))
	assert.Equal(t, "A (2018)", renderTitle(&request.FetchRequest{RegionID: "A", Year: 2018}))
}

func TestLoadCatalog(t *testing.T) {
	ctx := context.Background()

	csvPath := testutil.WriteFile(t, "regions.csv", testutil.TwoRegionCatalog())
	c, err := LoadCatalog(ctx, csvPath, testutil.WebMercator)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = LoadCatalog(ctx, filepath.Join(t.TempDir(), "missing.sqlite"), testutil.WebMercator)
	assert.ErrorIs(t, err, ErrCatalogLoad)
	_, err = LoadCatalog(ctx, filepath.Join(t.TempDir(), "missing.csv"), testutil.WebMercator)
	assert.ErrorIs(t, err, ErrCatalogLoad)
	_, err = LoadCatalog(ctx, "", testutil.WebMercator)
	assert.ErrorIs(t, err, ErrCatalogLoad)
}

func TestImportCatalog(t *testing.T) {
	ctx := context.Background()
	csvPath := testutil.WriteFile(t, "regions.csv", testutil.TwoRegionCatalog())
	dbPath := filepath.Join(t.TempDir(), "regions.db")

	n, err := ImportCatalog(ctx, csvPath, dbPath, testutil.WebMercator)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	c, err := LoadCatalog(ctx, dbPath, testutil.WebMercator)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	r, ok := c.Region("B")
	require.True(t, ok)
	assert.Equal(t, 2019, r.Year)

	regions, err := c.FindIntersecting(Rect(0, 0, 1, 1), testutil.WebMercator)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "A", regions[0].ID)

	// Re-importing the same IDs fails and leaves the database unchanged.
	_, err = ImportCatalog(ctx, csvPath, dbPath, testutil.WebMercator)
	assert.Error(t, err)
	c, err = LoadCatalog(ctx, dbPath, testutil.WebMercator)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestImportCatalog_Errors(t *testing.T) {
	ctx := context.Background()
	csvPath := testutil.WriteFile(t, "regions.csv", testutil.TwoRegionCatalog())

	_, err := ImportCatalog(ctx, csvPath, filepath.Join(t.TempDir(), "regions.csv"), testutil.WebMercator)
	assert.ErrorIs(t, err, ErrCatalogLoad)

	_, err = ImportCatalog(ctx, filepath.Join(t.TempDir(), "missing.csv"), filepath.Join(t.TempDir(), "r.db"), testutil.WebMercator)
	assert.ErrorIs(t, err, ErrCatalogLoad)
}

func TestLoadCatalog_MigratesExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.sqlite")
	require.NoError(t, os.WriteFile(dbPath, nil, 0o644))

	c, err := LoadCatalog(context.Background(), dbPath, testutil.WebMercator)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLoadCatalogFromConfig(t *testing.T) {
	path := testutil.WriteFile(t, "regions.csv", testutil.TwoRegionCatalog())
	t.Setenv(config.CatalogEnv, path)

	c, err := LoadCatalogFromConfig(context.Background(), &config.Config{CatalogPath: ptr("ignored.csv")})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = LoadCatalogFromConfig(context.Background(), &config.Config{CatalogCRS: ptr("EPSG:99999")})
	assert.ErrorIs(t, err, ErrInvalidCRS)
}

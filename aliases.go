package elevation

import (
	"github.com/banshee-data/elevation.report/internal/catalog"
	"github.com/banshee-data/elevation.report/internal/config"
	"github.com/banshee-data/elevation.report/internal/fetch"
	"github.com/banshee-data/elevation.report/internal/geo"
	"github.com/banshee-data/elevation.report/internal/grid"
	"github.com/banshee-data/elevation.report/internal/pointcloud"
	"github.com/banshee-data/elevation.report/internal/request"
	"github.com/banshee-data/elevation.report/internal/visual"
)

// ── Errors ───────────────────────────────────────────────────────────

var (
	ErrCatalogLoad        = catalog.ErrCatalogLoad
	ErrInvalidCRS         = geo.ErrInvalidCRS
	ErrDegenerateGeometry = geo.ErrDegenerateGeometry
	ErrNoCoverage         = request.ErrNoCoverage
	ErrEmptyPointSet      = grid.ErrEmptyPointSet
	ErrInvalidResolution  = grid.ErrInvalidResolution
	ErrNonFiniteSample    = grid.ErrNonFiniteSample
	ErrGridTooLarge       = grid.ErrGridTooLarge
	ErrUnsupportedMode    = visual.ErrUnsupportedMode
)

type FetchError = fetch.FetchError
type FetchErrorKind = fetch.Kind

const (
	Transient = fetch.Transient
	Permanent = fetch.Permanent
)

// ── Types ────────────────────────────────────────────────────────────

type Catalog = catalog.Catalog
type Region = catalog.Region
type Config = config.Config
type CRS = geo.CRS
type FetchRequest = request.FetchRequest
type ElevationGrid = grid.ElevationGrid
type PointSet = pointcloud.PointSet
type Point = pointcloud.Point
type Executor = fetch.Executor
type ExecutorFunc = fetch.ExecutorFunc
type Mode = visual.Mode

const (
	Surface3D = visual.Surface3D
	Heatmap   = visual.Heatmap
)

// ── Constructors ─────────────────────────────────────────────────────

var ParseCRS = geo.ParseCRS
var EPSG = geo.EPSG
var Rect = geo.Rect
var ParseWKTPolygon = geo.ParseWKTPolygon
var LoadConfig = config.Load

// MarkTransient flags an Executor error as worth retrying.
var MarkTransient = fetch.MarkTransient

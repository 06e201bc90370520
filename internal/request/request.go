// Package request turns matched catalog regions into fetch requests and
// the PDAL pipeline documents that execute them.
package request

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/elevation.report/internal/catalog"
	"github.com/banshee-data/elevation.report/internal/geo"
	"github.com/banshee-data/elevation.report/internal/grid"
	"github.com/banshee-data/elevation.report/internal/security"
	"github.com/ctessum/geom"
	"github.com/google/uuid"
)

// ErrNoCoverage is returned when no catalog region intersects the query.
var ErrNoCoverage = errors.New("no coverage")

// DefaultSourceURL is the public USGS 3DEP entwine bucket.
const DefaultSourceURL = "https://s3-us-west-2.amazonaws.com/usgs-lidar-public/"

// FetchRequest describes one region/year fetch. It is created by a Builder,
// consumed once by an executor and never persisted.
type FetchRequest struct {
	ID       uuid.UUID
	RegionID string
	Year     int
	// SourceURL locates the region's ept.json.
	SourceURL string
	NativeCRS geo.CRS
	OutputCRS geo.CRS
	// Filter is the query boundary in NativeCRS.
	Filter         geom.Polygon
	Resolution     float64
	ThinningRadius float64
	ExcludeNoise   bool
	// LAZPath and TIFPath, when set, persist the cropped cloud and a mean
	// elevation raster alongside the text output.
	LAZPath string
	TIFPath string
}

func (r *FetchRequest) String() string {
	return fmt.Sprintf("%s/%d", r.RegionID, r.Year)
}

// Stem is a file-name-safe name for the request's outputs. The ID prefix
// keeps overlapping same-year regions apart.
func (r *FetchRequest) Stem() string {
	year := "unknown"
	if r.Year != catalog.UnknownYear {
		year = strconv.Itoa(r.Year)
	}
	return security.SanitizeFilename(r.RegionID) + "_" + year + "_" + r.ID.String()[:8]
}

// Builder holds the settings shared by every request it emits.
type Builder struct {
	SourceURL string
	// ThinningRadius enables PDAL's Poisson sampling filter when positive.
	ThinningRadius float64
	// ExcludeNoise drops points classified as low noise (class 7).
	ExcludeNoise bool
	// LAZDir and TIFDir enable persisted LAZ and GeoTIFF outputs.
	LAZDir string
	TIFDir string
}

// Build emits one request per region, in the order given. Overlapping
// regions flown in the same year each get their own request.
func (b Builder) Build(regions []catalog.Region, boundary geom.Polygon, boundaryCRS, outputCRS geo.CRS, resolution float64) ([]*FetchRequest, error) {
	if len(regions) == 0 {
		return nil, ErrNoCoverage
	}
	if err := grid.CheckResolution(resolution); err != nil {
		return nil, err
	}
	if outputCRS.IsZero() {
		return nil, fmt.Errorf("%w: output CRS is not set", geo.ErrInvalidCRS)
	}

	base := b.SourceURL
	if base == "" {
		base = DefaultSourceURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	reqs := make([]*FetchRequest, 0, len(regions))
	for _, r := range regions {
		filter, err := geo.Normalize(boundary, boundaryCRS, r.CRS)
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", r.ID, err)
		}
		req := &FetchRequest{
			ID:             uuid.New(),
			RegionID:       r.ID,
			Year:           r.Year,
			SourceURL:      base + r.Source + "/ept.json",
			NativeCRS:      r.CRS,
			OutputCRS:      outputCRS,
			Filter:         filter,
			Resolution:     resolution,
			ThinningRadius: b.ThinningRadius,
			ExcludeNoise:   b.ExcludeNoise,
		}
		if b.LAZDir != "" {
			req.LAZPath = filepath.Join(b.LAZDir, req.Stem()+".laz")
		}
		if b.TIFDir != "" {
			req.TIFPath = filepath.Join(b.TIFDir, req.Stem()+".tif")
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

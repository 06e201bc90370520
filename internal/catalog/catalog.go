// Package catalog loads the table of lidar collection regions and answers
// which regions overlap an area of interest.
//
// A Catalog is immutable after construction and safe for concurrent readers.
package catalog

import (
	"errors"
	"fmt"

	"github.com/banshee-data/elevation.report/internal/geo"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// ErrCatalogLoad is returned when the catalog source is missing, malformed, or
// lacks required columns.
var ErrCatalogLoad = errors.New("catalog load")

// UnknownYear is the year recorded for regions whose collection year is not
// known.
const UnknownYear = 0

// Region is one lidar collection: a footprint and the year it was flown.
type Region struct {
	ID string
	// Source is the resource name under the point-cloud service, usually the
	// same as ID.
	Source   string
	Boundary geom.Polygon
	Year     int
	// CRS is the native CRS of the region's point data.
	CRS geo.CRS
}

// indexed adapts a Region for the R-tree.
type indexed struct {
	pos    int
	bounds *geom.Bounds
}

func (i *indexed) Bounds() *geom.Bounds { return i.bounds }

// Catalog is a read-only set of regions sharing one reference CRS.
type Catalog struct {
	crs     geo.CRS
	regions []Region
	tree    *rtree.Rtree
}

// New builds a catalog from regions whose boundaries are expressed in crs.
// Regions without a CRS inherit crs; regions without a Source use their ID.
func New(crs geo.CRS, regions []Region) (*Catalog, error) {
	if crs.IsZero() {
		return nil, fmt.Errorf("%w: catalog CRS is not set", ErrCatalogLoad)
	}
	c := &Catalog{crs: crs, tree: rtree.NewTree(25, 50)}
	seen := make(map[string]int, len(regions))
	for i, r := range regions {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: region %d has no identifier", ErrCatalogLoad, i)
		}
		if prev, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate region %q (entries %d and %d)", ErrCatalogLoad, r.ID, prev, i)
		}
		seen[r.ID] = i
		if err := geo.Validate(r.Boundary); err != nil {
			return nil, fmt.Errorf("%w: region %q: %v", ErrCatalogLoad, r.ID, err)
		}
		if r.Source == "" {
			r.Source = r.ID
		}
		if r.CRS.IsZero() {
			r.CRS = crs
		}
		r.Boundary = geo.Close(r.Boundary)
		c.regions = append(c.regions, r)
		c.tree.Insert(&indexed{pos: len(c.regions) - 1, bounds: r.Boundary.Bounds()})
	}
	return c, nil
}

// CRS returns the reference CRS of every region boundary.
func (c *Catalog) CRS() geo.CRS { return c.crs }

// Len returns the number of regions.
func (c *Catalog) Len() int { return len(c.regions) }

// Regions returns a copy of the regions in catalog order.
func (c *Catalog) Regions() []Region {
	return append([]Region(nil), c.regions...)
}

// Region looks up a region by identifier.
func (c *Catalog) Region(id string) (Region, bool) {
	for _, r := range c.regions {
		if r.ID == id {
			return r, true
		}
	}
	return Region{}, false
}

// FindIntersecting returns the regions whose boundary shares any point with
// poly, which is given in crs. Results keep catalog order.
func (c *Catalog) FindIntersecting(poly geom.Polygon, crs geo.CRS) ([]Region, error) {
	query, err := geo.Normalize(poly, crs, c.crs)
	if err != nil {
		return nil, err
	}

	// Expand by a hair so the tree's bounds test keeps edge-touching regions;
	// Overlaps makes the exact decision.
	b := query.Bounds()
	pad := 1e-9 * (1 + b.Max.X - b.Min.X + b.Max.Y - b.Min.Y)
	search := &geom.Bounds{
		Min: geom.Point{X: b.Min.X - pad, Y: b.Min.Y - pad},
		Max: geom.Point{X: b.Max.X + pad, Y: b.Max.Y + pad},
	}

	hits := c.tree.SearchIntersect(search)
	matched := make([]bool, len(c.regions))
	for _, h := range hits {
		pos := h.(*indexed).pos
		if geo.Overlaps(c.regions[pos].Boundary, query) {
			matched[pos] = true
		}
	}

	var out []Region
	for i, ok := range matched {
		if ok {
			out = append(out, c.regions[i])
		}
	}
	return out, nil
}

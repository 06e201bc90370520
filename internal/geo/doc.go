// Package geo owns coordinate reference systems and the polygon operations
// the catalog and request builder need: parsing CRS identifiers, reprojecting
// boundary polygons, validating rings, overlap tests and WKT encoding.
//
// Geometry values are github.com/ctessum/geom polygons; only the exterior ring
// (the first path) takes part in validation and overlap tests.
package geo

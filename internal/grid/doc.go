// Package grid rasterizes point sets into elevation grids and thins them with
// a voxel barycenter filter.
//
// Grids are north-up: row 0 is the northern edge, column 0 the western edge.
// Cells are half-open, covering [x0, x0+res) by [y0-res, y0) measured from the
// cell's top-left corner, so every sample lands in exactly one cell.
// Empty cells hold NaN ("no data") and are never reported as zero.
package grid

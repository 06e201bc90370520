package grid

import (
	"math"
	"sort"

	"github.com/banshee-data/elevation.report/internal/pointcloud"
	"gonum.org/v1/gonum/stat"
)

type voxelKey [3]int64

func (k voxelKey) less(o voxelKey) bool {
	for i := range k {
		if k[i] != o[i] {
			return k[i] < o[i]
		}
	}
	return false
}

// Subsample thins ps by replacing the samples in each cubic voxel of the given
// size with their barycenter. Voxels are anchored at the minimum corner of the
// set and emitted in ascending (x, y, z) voxel order, so the output does not
// depend on input order.
func Subsample(ps *pointcloud.PointSet, voxel float64) (*pointcloud.PointSet, error) {
	if err := CheckResolution(voxel); err != nil {
		return nil, err
	}
	if ps.Len() == 0 {
		return nil, ErrEmptyPointSet
	}
	if err := checkFinite(ps); err != nil {
		return nil, err
	}
	minX, minY, _, _, _ := ps.Bounds()
	minZ, _, _ := ps.ZRange()

	type keyed struct {
		key voxelKey
		p   pointcloud.Point
	}
	pts := make([]keyed, len(ps.Points))
	for i, p := range ps.Points {
		pts[i] = keyed{
			key: voxelKey{
				int64(math.Floor((p.X - minX) / voxel)),
				int64(math.Floor((p.Y - minY) / voxel)),
				int64(math.Floor((p.Z - minZ) / voxel)),
			},
			p: p,
		}
	}
	sort.Slice(pts, func(i, j int) bool {
		a, b := pts[i], pts[j]
		if a.key != b.key {
			return a.key.less(b.key)
		}
		if a.p.X != b.p.X {
			return a.p.X < b.p.X
		}
		if a.p.Y != b.p.Y {
			return a.p.Y < b.p.Y
		}
		return a.p.Z < b.p.Z
	})

	out := &pointcloud.PointSet{CRS: ps.CRS}
	var xs, ys, zs []float64
	for start := 0; start < len(pts); {
		end := start + 1
		for end < len(pts) && pts[end].key == pts[start].key {
			end++
		}
		xs, ys, zs = xs[:0], ys[:0], zs[:0]
		for _, k := range pts[start:end] {
			xs = append(xs, k.p.X)
			ys = append(ys, k.p.Y)
			zs = append(zs, k.p.Z)
		}
		out.Points = append(out.Points, pointcloud.Point{
			X: stat.Mean(xs, nil),
			Y: stat.Mean(ys, nil),
			Z: stat.Mean(zs, nil),
		})
		start = end
	}
	return out, nil
}

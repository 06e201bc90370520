package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// ErrDegenerateGeometry is returned for rings with fewer than three distinct
// vertices, zero area, or self-intersections.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// Rect returns the closed counter-clockwise ring covering the given bounds.
func Rect(minX, minY, maxX, maxY float64) geom.Polygon {
	return geom.Polygon{{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
		{X: minX, Y: minY},
	}}
}

// ring returns the exterior ring without the closing vertex or consecutive
// repeated vertices.
func ring(p geom.Polygon) []geom.Point {
	if len(p) == 0 {
		return nil
	}
	r := make([]geom.Point, 0, len(p[0]))
	for _, pt := range p[0] {
		if n := len(r); n > 0 && r[n-1] == pt {
			continue
		}
		r = append(r, pt)
	}
	for len(r) > 1 && r[0] == r[len(r)-1] {
		r = r[:len(r)-1]
	}
	return r
}

// Validate checks the exterior ring of p.
func Validate(p geom.Polygon) error {
	r := ring(p)
	if distinct(r) < 3 {
		return fmt.Errorf("%w: ring has %d distinct vertices", ErrDegenerateGeometry, distinct(r))
	}
	for _, pt := range r {
		if math.IsNaN(pt.X) || math.IsNaN(pt.Y) || math.IsInf(pt.X, 0) || math.IsInf(pt.Y, 0) {
			return fmt.Errorf("%w: non-finite vertex %v", ErrDegenerateGeometry, pt)
		}
	}
	if ringArea(r) == 0 {
		return fmt.Errorf("%w: ring has zero area", ErrDegenerateGeometry)
	}
	if SelfIntersects(p) {
		return fmt.Errorf("%w: ring self-intersects", ErrDegenerateGeometry)
	}
	return nil
}

func distinct(r []geom.Point) int {
	seen := make(map[geom.Point]struct{}, len(r))
	for _, pt := range r {
		seen[pt] = struct{}{}
	}
	return len(seen)
}

func ringArea(r []geom.Point) float64 {
	var a float64
	for i := range r {
		j := (i + 1) % len(r)
		a += r[i].X*r[j].Y - r[j].X*r[i].Y
	}
	return math.Abs(a) / 2
}

// SelfIntersects reports whether any two non-adjacent edges of the exterior
// ring touch, or two adjacent edges fold back over each other.
func SelfIntersects(p geom.Polygon) bool {
	r := ring(p)
	n := len(r)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a1, a2 := r[i], r[(i+1)%n]
		for j := i + 1; j < n; j++ {
			b1, b2 := r[j], r[(j+1)%n]
			adjacent := j == i+1 || (i == 0 && j == n-1)
			if adjacent {
				if cross(a1, a2, b1, b2) == 0 && dot(a1, a2, b1, b2) < 0 {
					return true
				}
				continue
			}
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

func cross(a1, a2, b1, b2 geom.Point) float64 {
	return (a2.X-a1.X)*(b2.Y-b1.Y) - (a2.Y-a1.Y)*(b2.X-b1.X)
}

func dot(a1, a2, b1, b2 geom.Point) float64 {
	return (a2.X-a1.X)*(b2.X-b1.X) + (a2.Y-a1.Y)*(b2.Y-b1.Y)
}

// orient is the sign of the turn a -> b -> c.
func orient(a, b, c geom.Point) int {
	v := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func onSegment(a, b, p geom.Point) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}

// segmentsIntersect is inclusive: shared endpoints and collinear overlap count.
func segmentsIntersect(a1, a2, b1, b2 geom.Point) bool {
	o1 := orient(a1, a2, b1)
	o2 := orient(a1, a2, b2)
	o3 := orient(b1, b2, a1)
	o4 := orient(b1, b2, a2)
	if o1 != o2 && o3 != o4 {
		return true
	}
	return (o1 == 0 && onSegment(a1, a2, b1)) ||
		(o2 == 0 && onSegment(a1, a2, b2)) ||
		(o3 == 0 && onSegment(b1, b2, a1)) ||
		(o4 == 0 && onSegment(b1, b2, a2))
}

// containsPoint is an even-odd test; points on the boundary count as inside.
func containsPoint(r []geom.Point, p geom.Point) bool {
	inside := false
	n := len(r)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := r[j], r[i]
		if orient(a, b, p) == 0 && onSegment(a, b, p) {
			return true
		}
		if (b.Y > p.Y) != (a.Y > p.Y) &&
			p.X < (a.X-b.X)*(p.Y-b.Y)/(a.Y-b.Y)+b.X {
			inside = !inside
		}
	}
	return inside
}

// BoundsTouch is an inclusive bounding-box test.
func BoundsTouch(a, b *geom.Bounds) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y
}

// Overlaps reports whether the exterior rings of a and b share any point:
// crossing or touching edges, or one ring lying inside the other.
func Overlaps(a, b geom.Polygon) bool {
	ra, rb := ring(a), ring(b)
	if len(ra) == 0 || len(rb) == 0 {
		return false
	}
	if !BoundsTouch(a.Bounds(), b.Bounds()) {
		return false
	}
	for i := range ra {
		a1, a2 := ra[i], ra[(i+1)%len(ra)]
		for j := range rb {
			if segmentsIntersect(a1, a2, rb[j], rb[(j+1)%len(rb)]) {
				return true
			}
		}
	}
	return containsPoint(rb, ra[0]) || containsPoint(ra, rb[0])
}

// Close returns p with every ring explicitly closed.
func Close(p geom.Polygon) geom.Polygon {
	out := make(geom.Polygon, len(p))
	for i, r := range p {
		cp := append(geom.Path(nil), r...)
		if n := len(cp); n > 0 && cp[0] != cp[n-1] {
			cp = append(cp, cp[0])
		}
		out[i] = cp
	}
	return out
}

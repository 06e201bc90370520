package geo

import (
	"fmt"

	"github.com/ctessum/geom"
)

// Normalize reprojects p from src into dst and validates the result. The input
// is never modified; when src and dst are the same CRS a copy is returned.
func Normalize(p geom.Polygon, src, dst CRS) (geom.Polygon, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty polygon", ErrDegenerateGeometry)
	}

	var out geom.Polygon
	if src.Equal(dst) {
		out = Close(p)
	} else {
		t, err := Transformer(src, dst)
		if err != nil {
			return nil, err
		}
		g, err := Close(p).Transform(t)
		if err != nil {
			return nil, fmt.Errorf("reproject %s -> %s: %w", src, dst, err)
		}
		var ok bool
		if out, ok = g.(geom.Polygon); !ok {
			return nil, fmt.Errorf("reproject %s -> %s: unexpected geometry %T", src, dst, g)
		}
	}

	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

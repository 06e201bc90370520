package geo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/wkt"
)

// ParseWKTPolygon decodes a WKT POLYGON. Rings are returned as written;
// callers validate them separately.
func ParseWKTPolygon(s string) (geom.Polygon, error) {
	body := strings.TrimSpace(s)
	if len(body) < len("POLYGON") || !strings.EqualFold(body[:len("POLYGON")], "POLYGON") {
		return nil, fmt.Errorf("wkt: expected POLYGON, got %q", truncate(body))
	}
	body = strings.TrimSpace(body[len("POLYGON"):])
	if strings.EqualFold(body, "EMPTY") {
		return nil, fmt.Errorf("wkt: empty polygon")
	}
	if !strings.HasPrefix(body, "(") || !strings.HasSuffix(body, ")") {
		return nil, fmt.Errorf("wkt: unbalanced parentheses in %q", truncate(s))
	}
	body = strings.TrimSpace(body[1 : len(body)-1])

	var poly geom.Polygon
	for len(body) > 0 {
		if body[0] != '(' {
			return nil, fmt.Errorf("wkt: expected '(' at %q", truncate(body))
		}
		end := strings.IndexByte(body, ')')
		if end < 0 {
			return nil, fmt.Errorf("wkt: unterminated ring")
		}
		path, err := parseRing(body[1:end])
		if err != nil {
			return nil, err
		}
		poly = append(poly, path)
		body = strings.TrimSpace(body[end+1:])
		body = strings.TrimSpace(strings.TrimPrefix(body, ","))
	}
	if len(poly) == 0 {
		return nil, fmt.Errorf("wkt: polygon has no rings")
	}
	return poly, nil
}

func parseRing(s string) (geom.Path, error) {
	var path geom.Path
	for _, pair := range strings.Split(s, ",") {
		fields := strings.Fields(pair)
		// Z/M ordinates are accepted and dropped.
		if len(fields) < 2 {
			return nil, fmt.Errorf("wkt: bad coordinate %q", strings.TrimSpace(pair))
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("wkt: bad x in %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("wkt: bad y in %q: %w", pair, err)
		}
		path = append(path, geom.Point{X: x, Y: y})
	}
	return path, nil
}

// FormatWKT encodes p as a WKT POLYGON with closed rings, the form PDAL's
// crop filter expects. Large ordinates use exponent notation.
func FormatWKT(p geom.Polygon) string {
	// Encode only fails for non-polygonal geometry.
	b, _ := wkt.Encode(Close(p))
	return string(b)
}

func truncate(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}

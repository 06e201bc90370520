package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
)

// ErrInvalidCRS is returned for CRS identifiers that cannot be resolved.
var ErrInvalidCRS = errors.New("invalid CRS")

const (
	wgs84Proj   = "+proj=longlat +datum=WGS84 +no_defs"
	nad83Proj   = "+proj=longlat +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +no_defs"
	webMercProj = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"
)

// CRS is a resolved coordinate reference system. Code is the EPSG code when
// the CRS came from the registry, zero for raw proj4 definitions.
type CRS struct {
	Code  int
	Proj4 string
	sr    *proj.SR
}

// String returns "EPSG:<code>" for registry entries and the proj4 text
// otherwise. PDAL accepts both forms.
func (c CRS) String() string {
	if c.Code != 0 {
		return "EPSG:" + strconv.Itoa(c.Code)
	}
	return c.Proj4
}

// IsZero reports whether c is the zero value.
func (c CRS) IsZero() bool { return c.sr == nil && c.Proj4 == "" }

// Equal reports whether both values name the same definition.
func (c CRS) Equal(o CRS) bool {
	if c.Code != 0 || o.Code != 0 {
		return c.Code == o.Code
	}
	return strings.TrimSpace(c.Proj4) == strings.TrimSpace(o.Proj4)
}

// IsGeographic reports whether coordinates are longitude/latitude degrees.
func (c CRS) IsGeographic() bool {
	return c.sr != nil && c.sr.Name == "longlat"
}

// epsgProj4 returns the proj4 definition for the EPSG codes this package knows.
func epsgProj4(code int) (string, bool) {
	switch {
	case code == 4326:
		return wgs84Proj, true
	case code == 4269:
		return nad83Proj, true
	case code == 3857 || code == 900913:
		return webMercProj, true
	case code >= 32601 && code <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", code-32600), true
	case code >= 32701 && code <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", code-32700), true
	case code >= 26901 && code <= 26923:
		return fmt.Sprintf("+proj=utm +zone=%d +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs", code-26900), true
	}
	return "", false
}

// EPSG resolves a registry code.
func EPSG(code int) (CRS, error) {
	def, ok := epsgProj4(code)
	if !ok {
		return CRS{}, fmt.Errorf("%w: EPSG:%d is not supported", ErrInvalidCRS, code)
	}
	c, err := fromProj4(def)
	if err != nil {
		return CRS{}, err
	}
	c.Code = code
	return c, nil
}

// ParseCRS accepts "EPSG:<code>" (case-insensitive), a bare numeric code, or a
// proj4 definition starting with "+proj=".
func ParseCRS(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return CRS{}, fmt.Errorf("%w: empty identifier", ErrInvalidCRS)
	case strings.HasPrefix(s, "+proj="):
		return fromProj4(s)
	}

	code := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		if !strings.EqualFold(s[:i], "EPSG") {
			return CRS{}, fmt.Errorf("%w: unknown authority in %q", ErrInvalidCRS, s)
		}
		code = s[i+1:]
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return CRS{}, fmt.Errorf("%w: %q", ErrInvalidCRS, s)
	}
	return EPSG(n)
}

// MustParseCRS is ParseCRS for package-level defaults and tests.
func MustParseCRS(s string) CRS {
	c, err := ParseCRS(s)
	if err != nil {
		panic(err)
	}
	return c
}

func fromProj4(def string) (CRS, error) {
	sr, err := proj.Parse(def)
	if err != nil {
		return CRS{}, fmt.Errorf("%w: %v", ErrInvalidCRS, err)
	}
	// Parsing is lenient about projection names; building a transform is not.
	wgs, err := proj.Parse(wgs84Proj)
	if err != nil {
		return CRS{}, fmt.Errorf("%w: %v", ErrInvalidCRS, err)
	}
	if _, err := sr.NewTransform(wgs); err != nil {
		return CRS{}, fmt.Errorf("%w: %v", ErrInvalidCRS, err)
	}
	return CRS{Proj4: def, sr: sr}, nil
}

// Transformer returns a point transform from src to dst.
func Transformer(src, dst CRS) (proj.Transformer, error) {
	if src.sr == nil || dst.sr == nil {
		return nil, fmt.Errorf("%w: unresolved CRS (%q -> %q)", ErrInvalidCRS, src.String(), dst.String())
	}
	t, err := src.sr.NewTransform(dst.sr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s -> %s: %v", ErrInvalidCRS, src, dst, err)
	}
	return t, nil
}

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/elevation.report/internal/geo"
	"github.com/banshee-data/elevation.report/internal/httputil"
)

// EPTInfo is the subset of an entwine ept.json the probe reads.
type EPTInfo struct {
	Points int64     `json:"points"`
	Bounds []float64 `json:"bounds"`
	SRS    struct {
		Authority  string `json:"authority"`
		Horizontal string `json:"horizontal"`
		WKT        string `json:"wkt"`
	} `json:"srs"`
}

// CRS resolves the source's horizontal CRS when it is an EPSG code.
func (i *EPTInfo) CRS() (geo.CRS, error) {
	if !strings.EqualFold(i.SRS.Authority, "EPSG") {
		return geo.CRS{}, fmt.Errorf("%w: authority %q", geo.ErrInvalidCRS, i.SRS.Authority)
	}
	code, err := strconv.Atoi(i.SRS.Horizontal)
	if err != nil {
		return geo.CRS{}, fmt.Errorf("%w: horizontal %q", geo.ErrInvalidCRS, i.SRS.Horizontal)
	}
	return geo.EPSG(code)
}

// EPTProbe fetches a source's ept.json before the pipeline runs, so missing
// sources fail fast and unreachable ones are retried.
type EPTProbe struct {
	Client httputil.HTTPClient
}

// Check fetches and decodes url. Missing or forbidden sources are
// permanent failures; timeouts, throttling, server errors and transport
// errors are transient.
func (p *EPTProbe) Check(ctx context.Context, url string) (*EPTInfo, error) {
	client := p.Client
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}

	var info EPTInfo
	err := httputil.GetJSON(ctx, client, url, &info)
	if err == nil {
		return &info, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var se *httputil.StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusRequestTimeout, se.Code == http.StatusTooManyRequests, se.Code >= 500:
			return nil, MarkTransient(fmt.Errorf("probe source: %w", err))
		default:
			return nil, fmt.Errorf("probe source: %w", err)
		}
	}
	if errors.Is(err, httputil.ErrDecode) {
		return nil, fmt.Errorf("probe source: %w", err)
	}
	return nil, MarkTransient(fmt.Errorf("probe source: %w", err))
}

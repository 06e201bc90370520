package request

import (
	"encoding/json"
	"strconv"

	"github.com/banshee-data/elevation.report/internal/geo"
)

// Stage is one PDAL pipeline stage. Options are flattened next to "type".
type Stage struct {
	Type    string
	Options map[string]any
}

func (s Stage) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s.Options)+1)
	for k, v := range s.Options {
		m[k] = v
	}
	m["type"] = s.Type
	return json.Marshal(m)
}

// Pipeline is a PDAL pipeline document.
type Pipeline struct {
	Stages []Stage
}

func (p Pipeline) MarshalJSON() ([]byte, error) {
	stages := p.Stages
	if stages == nil {
		stages = []Stage{}
	}
	return json.Marshal(struct {
		Pipeline []Stage `json:"pipeline"`
	}{stages})
}

// Stage returns the first stage of the given type.
func (p Pipeline) Stage(typ string) (Stage, bool) {
	for _, s := range p.Stages {
		if s.Type == typ {
			return s, true
		}
	}
	return Stage{}, false
}

// NoiseClass is the ASPRS classification for low noise.
const NoiseClass = 7

// Pipeline builds the document that reads the request's region, crops it to
// the filter, reprojects it to the output CRS and writes X,Y,Z text to
// outputPath. LAZ and GeoTIFF writers follow when the request asks for them.
func (r *FetchRequest) Pipeline(outputPath string) Pipeline {
	reader := Stage{Type: "readers.ept", Options: map[string]any{
		"filename": r.SourceURL,
		"bounds":   r.Bounds(),
	}}
	stages := []Stage{
		reader,
		{Type: "filters.crop", Options: map[string]any{"polygon": geo.FormatWKT(r.Filter)}},
	}
	if r.ExcludeNoise {
		stages = append(stages, Stage{Type: "filters.range", Options: map[string]any{
			"limits": "Classification![" + strconv.Itoa(NoiseClass) + ":" + strconv.Itoa(NoiseClass) + "]",
		}})
	}
	if r.ThinningRadius > 0 {
		stages = append(stages, Stage{Type: "filters.sample", Options: map[string]any{"radius": r.ThinningRadius}})
	}
	stages = append(stages,
		Stage{Type: "filters.reprojection", Options: map[string]any{
			"in_srs":  r.NativeCRS.String(),
			"out_srs": r.OutputCRS.String(),
		}},
		Stage{Type: "writers.text", Options: map[string]any{
			"filename":         outputPath,
			"format":           "csv",
			"order":            "X,Y,Z",
			"keep_unspecified": false,
			"precision":        8,
		}},
	)
	if r.LAZPath != "" {
		stages = append(stages, Stage{Type: "writers.las", Options: map[string]any{
			"filename":    r.LAZPath,
			"compression": "laszip",
		}})
	}
	if r.TIFPath != "" {
		stages = append(stages, Stage{Type: "writers.gdal", Options: map[string]any{
			"filename":    r.TIFPath,
			"gdaldriver":  "GTiff",
			"output_type": "mean",
			"resolution":  r.Resolution,
			"dimension":   "Z",
		}})
	}
	return Pipeline{Stages: stages}
}

// Bounds renders the filter's bounding box in the ept reader's
// "([minx, maxx],[miny, maxy])" form.
func (r *FetchRequest) Bounds() string {
	b := r.Filter.Bounds()
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return "([" + f(b.Min.X) + ", " + f(b.Max.X) + "],[" + f(b.Min.Y) + ", " + f(b.Max.Y) + "])"
}

package geo

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/google/go-cmp/cmp"
)

func TestParseWKTPolygon(t *testing.T) {
	t.Parallel()

	p, err := ParseWKTPolygon("POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0), (0.2 0.2, 0.4 0.2, 0.4 0.4, 0.2 0.2))")
	if err != nil {
		t.Fatalf("ParseWKTPolygon: %v", err)
	}

	want := geom.Polygon{
		{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}},
		{{X: 0.2, Y: 0.2}, {X: 0.4, Y: 0.2}, {X: 0.4, Y: 0.4}, {X: 0.2, Y: 0.2}},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("ParseWKTPolygon mismatch (-want +got):\n%s", diff)
	}
}

func TestParseWKTPolygon_Variants(t *testing.T) {
	t.Parallel()

	p, err := ParseWKTPolygon("polygon((-10425171.94 5164494.71, -10423171.94 5164494.71, -10423171.94 5166494.71, -10425171.94 5164494.71))")
	if err != nil {
		t.Fatalf("lowercase tag: %v", err)
	}
	if len(p[0]) != 4 {
		t.Errorf("got %d vertices, want 4", len(p[0]))
	}

	// dimension tags are not supported
	if _, err := ParseWKTPolygon("POLYGON Z ((0 0 5, 1 0 5, 1 1 5, 0 0 5))"); err == nil {
		t.Error("expected error for POLYGON Z")
	}
}

func TestParseWKTPolygon_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"empty string", ""},
		{"point", "POINT (1 2)"},
		{"empty polygon", "POLYGON EMPTY"},
		{"unbalanced", "POLYGON ((0 0, 1 0, 1 1, 0 0)"},
		{"bad ordinate", "POLYGON ((0 0, 1 x, 1 1, 0 0))"},
		{"missing y", "POLYGON ((0 0, 1, 1 1, 0 0))"},
		{"no rings", "POLYGON ()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseWKTPolygon(tt.in); err == nil {
				t.Errorf("ParseWKTPolygon(%q) = nil error", tt.in)
			}
		})
	}
}

func TestFormatWKT(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   geom.Polygon
		want string
	}{
		{
			name: "closes open ring",
			in:   geom.Polygon{{{X: 0, Y: 0}, {X: 1.5, Y: 0}, {X: 1.5, Y: -2.25}}},
			want: "POLYGON((0 0,1.5 0,1.5 -2.25,0 0))",
		},
		{
			name: "keeps closed ring",
			in:   Rect(0, 0, 2, 1),
			want: "POLYGON((0 0,2 0,2 1,0 1,0 0))",
		},
		{
			name: "web mercator ordinates",
			in:   geom.Polygon{{{X: -10430636.25, Y: 5164494.71}, {X: -10423171.94, Y: 5164494.71}, {X: -10423171.94, Y: 5166494.71}}},
			want: "POLYGON((-1.043063625e+07 5.16449471e+06,-1.042317194e+07 5.16449471e+06,-1.042317194e+07 5.16649471e+06,-1.043063625e+07 5.16449471e+06))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatWKT(tt.in)
			if got != tt.want {
				t.Errorf("FormatWKT = %q, want %q", got, tt.want)
			}
			back, err := ParseWKTPolygon(got)
			if err != nil {
				t.Fatalf("ParseWKTPolygon(%q): %v", got, err)
			}
			if diff := cmp.Diff(Close(tt.in), back); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

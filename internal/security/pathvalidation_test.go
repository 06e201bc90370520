package security

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"IA_FullState", "IA_FullState"},
		{"USGS_LPC_CA_2018", "USGS_LPC_CA_2018"},
		{"USGS LPC/IA 2019", "USGS_LPC_IA_2019"},
		{"../../etc/passwd", "etc_passwd"},
		{"..", "unknown"},
		{"", "unknown"},
		{"a   b", "a_b"},
		{"a__b", "a__b"},
		{"région", "r_gion"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilename_Length(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("a", 500))
	if len(got) != maxFilenameLen {
		t.Errorf("len = %d, want %d", len(got), maxFilenameLen)
	}
}

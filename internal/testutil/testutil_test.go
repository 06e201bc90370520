package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, "catalog.csv", TwoRegionCatalog())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,year,geometry\n"))
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestPoints(t *testing.T) {
	ps := Points(WebMercator, [3]float64{1, 2, 3}, [3]float64{4, 5, 6})
	require.Equal(t, 2, ps.Len())
	assert.Equal(t, 6.0, ps.Points[1].Z)
	assert.Equal(t, 3857, ps.CRS.Code)
}

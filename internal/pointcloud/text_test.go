package pointcloud

import (
	"strings"
	"testing"

	"github.com/banshee-data/elevation.report/internal/geo"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadText(t *testing.T) {
	t.Parallel()

	in := "\"X\",\"Y\",\"Z\"\n" +
		"-10425171.940,5164494.710,312.250\n" +
		"-10425170.100,5164495.000,312.500\n"
	ps, err := ReadText(strings.NewReader(in), geo.MustParseCRS("EPSG:3857"))
	require.NoError(t, err)

	want := []Point{
		{X: -10425171.94, Y: 5164494.71, Z: 312.25},
		{X: -10425170.1, Y: 5164495, Z: 312.5},
	}
	if diff := cmp.Diff(want, ps.Points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3857, ps.CRS.Code)
}

func TestReadText_ColumnOrder(t *testing.T) {
	t.Parallel()

	in := "Intensity,Z,X,Y\n10,5.5,1,2\n"
	ps, err := ReadText(strings.NewReader(in), geo.CRS{})
	require.NoError(t, err)
	require.Equal(t, 1, ps.Len())
	assert.Equal(t, Point{X: 1, Y: 2, Z: 5.5}, ps.Points[0])
}

func TestReadText_Empty(t *testing.T) {
	t.Parallel()

	ps, err := ReadText(strings.NewReader(""), geo.CRS{})
	require.NoError(t, err)
	assert.Equal(t, 0, ps.Len())

	ps, err = ReadText(strings.NewReader("X,Y,Z\n"), geo.CRS{})
	require.NoError(t, err)
	assert.Equal(t, 0, ps.Len())
}

func TestReadText_Errors(t *testing.T) {
	t.Parallel()

	for name, in := range map[string]string{
		"missing column": "X,Y\n1,2\n",
		"bad number":     "X,Y,Z\n1,two,3\n",
		"short row":      "X,Y,Z\n1,2\n",
		"nan z":          "X,Y,Z\n0.5,0.5,NaN\n1.5,0.5,3\n",
		"inf x":          "X,Y,Z\n+Inf,0.5,1\n",
	} {
		_, err := ReadText(strings.NewReader(in), geo.CRS{})
		assert.Error(t, err, name)
	}
}

func TestPointSet_Bounds(t *testing.T) {
	t.Parallel()

	var empty *PointSet
	_, _, _, _, ok := empty.Bounds()
	assert.False(t, ok)

	ps := &PointSet{Points: []Point{{X: 1, Y: 5, Z: 10}, {X: -2, Y: 3, Z: 12}, {X: 4, Y: 4, Z: 9}}}
	minX, minY, maxX, maxY, ok := ps.Bounds()
	require.True(t, ok)
	assert.Equal(t, []float64{-2, 3, 4, 5}, []float64{minX, minY, maxX, maxY})

	minZ, maxZ, ok := ps.ZRange()
	require.True(t, ok)
	assert.Equal(t, 9.0, minZ)
	assert.Equal(t, 12.0, maxZ)
}

package noise

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurbulenceBelowOneIsZero(t *testing.T) {
	f, err := Build(8, 8, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	for _, size := range []float64{0.999, 0.5, 0, -4} {
		assert.Equal(t, 0.0, f.Turbulence(3, 4, size), "size %v", size)
	}
}

func TestTurbulenceConstantField(t *testing.T) {
	f := constantField(t, 8, 8, 0.5)

	tests := []struct {
		size float64
		want float64
	}{
		{1, 128 * 0.5},
		{2, 128 * 0.5 * 3 / 2},
		{32, 128 * 0.5 * 63 / 32},
		{33, 128 * 0.5 * (33 + 16.5 + 8.25 + 4.125 + 2.0625 + 1.03125) / 33},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, f.Turbulence(5.3, 2.7, tt.size), 1e-9, "size %v", tt.size)
	}
}

func TestTurbulenceMatchesOctaveSum(t *testing.T) {
	f, err := Build(32, 32, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	x, y := 11.0, 23.0
	want := 0.0
	for _, size := range []float64{32, 16, 8, 4, 2, 1} {
		want += f.SampleSmooth(x/size, y/size) * size
	}
	want = 128 * want / 32

	assert.Equal(t, want, f.Turbulence(x, y, 32))
}

func TestOctaves(t *testing.T) {
	tests := map[float64]int{
		0.5: 0,
		1:   1,
		2:   2,
		31:  5,
		32:  6,
		33:  6,
		64:  7,
	}
	for size, want := range tests {
		assert.Equal(t, want, Octaves(size), "size %v", size)
	}
}

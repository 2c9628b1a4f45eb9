package wood

import (
	"image/color"
	"math"
	"math/rand"
	"testing"

	"github.com/MeKo-Tech/woodgrain/internal/noise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams(w, h int) Params {
	p := DefaultParams(w, h)
	p.LengthScale = 12
	return p
}

func TestGenerateDimensions(t *testing.T) {
	sizes := [][2]int{{1, 1}, {7, 3}, {64, 48}, {31, 97}}

	for _, sz := range sizes {
		img, err := Generate(testParams(sz[0], sz[1]), rand.New(rand.NewSource(1)))
		require.NoError(t, err)
		assert.Equal(t, sz[0], img.Bounds().Dx())
		assert.Equal(t, sz[1], img.Bounds().Dy())
		assert.Len(t, img.Pix, sz[0]*sz[1]*4)
	}
}

func TestGenerateInvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero width", func(p *Params) { p.Width = 0 }},
		{"zero height", func(p *Params) { p.Height = 0 }},
		{"negative width", func(p *Params) { p.Width = -1 }},
		{"infinite stddev", func(p *Params) { p.OffsetStdDev = math.Inf(1) }},
		{"negative infinite stddev", func(p *Params) { p.OffsetStdDev = math.Inf(-1) }},
		{"NaN stddev", func(p *Params) { p.OffsetStdDev = math.NaN() }},
		{"negative stddev", func(p *Params) { p.OffsetStdDev = -0.5 }},
		{"zero length scale", func(p *Params) { p.LengthScale = 0 }},
		{"infinite length scale", func(p *Params) { p.LengthScale = math.Inf(1) }},
		{"pixel count overflow", func(p *Params) { p.Width, p.Height = 1<<32, 1<<32 }},
		{"too many pixels", func(p *Params) { p.Width, p.Height = MaxPixels, 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams(16, 16)
			tt.mutate(&p)

			img, err := Generate(p, rand.New(rand.NewSource(1)))
			require.ErrorIs(t, err, ErrInvalidParameter)
			assert.Nil(t, img)
		})
	}
}

func TestGenerateZeroStdDevIsValid(t *testing.T) {
	p := testParams(8, 8)
	p.OffsetStdDev = 0

	img, err := Generate(p, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestGenerateNilRand(t *testing.T) {
	img, err := Generate(testParams(10, 10), nil)
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dy())
}

func TestGenerateSeededIsReproducible(t *testing.T) {
	a, err := Generate(testParams(40, 30), rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	b, err := Generate(testParams(40, 30), rand.New(rand.NewSource(99)))
	require.NoError(t, err)

	assert.Equal(t, a.Pix, b.Pix)
}

func TestGenerateIndependentDrawsDiffer(t *testing.T) {
	const w, h = 64, 64
	p := testParams(w, h)

	for trial := int64(0); trial < 8; trial++ {
		a, err := Generate(p, rand.New(rand.NewSource(trial)))
		require.NoError(t, err)
		b, err := Generate(p, rand.New(rand.NewSource(trial+1000)))
		require.NoError(t, err)

		differing := 0
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if a.RGBAAt(x, y) != b.RGBAAt(x, y) {
					differing++
				}
			}
		}
		if differing*2 <= w*h {
			t.Fatalf("trial %d: only %d of %d pixels differ", trial, differing, w*h)
		}
	}
}

func TestSynthesizeCenterPixel(t *testing.T) {
	const w, h = 32, 24
	values := make([]float64, w*h)
	for i := range values {
		values[i] = float64(i%97) / 97
	}
	field, err := noise.FromValues(w, h, values)
	require.NoError(t, err)

	p := testParams(w, h)
	p.LengthScale = 7
	img, err := Synthesize(field, Draws{}, p)
	require.NoError(t, err)

	cx, cy := w/2, h/2
	turb := field.Turbulence(float64(cx), float64(cy), 32)
	radius := 14.6 * turb / 256.0
	want := math.Pow(math.Abs(math.Sin(radius/p.LengthScale*math.Pi)), 0.4)

	assert.Equal(t, want, RingValue(radius, p.LengthScale, 0))
	assert.Equal(t, MapRing(want, Neutral), img.RGBAAt(cx, cy))
}

func TestSynthesizeBrightEqualsNeutralPlusTwenty(t *testing.T) {
	const w, h = 48, 40
	field, err := noise.Build(w, h, rand.New(rand.NewSource(11)))
	require.NoError(t, err)
	draws := Draw(rand.New(rand.NewSource(12)), 40)

	neutralParams := testParams(w, h)
	neutralParams.Profile = Neutral
	brightParams := neutralParams
	brightParams.Profile = Bright

	neutral, err := Synthesize(field, draws, neutralParams)
	require.NoError(t, err)
	bright, err := Synthesize(field, draws, brightParams)
	require.NoError(t, err)

	for i := 0; i < len(neutral.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			want := int(neutral.Pix[i+c]) + 20
			if want > 255 {
				want = 255
			}
			if int(bright.Pix[i+c]) != want {
				t.Fatalf("pixel byte %d: bright=%d neutral=%d", i+c, bright.Pix[i+c], neutral.Pix[i+c])
			}
		}
		assert.Equal(t, uint8(255), bright.Pix[i+3])
	}
}

func TestSynthesizeParallelMatchesSequential(t *testing.T) {
	const w, h = 50, 37
	field, err := noise.Build(w, h, rand.New(rand.NewSource(21)))
	require.NoError(t, err)
	draws := Draws{OffsetX: 3.5, OffsetY: -12.25, Phase: 1.1}

	seq := testParams(w, h)
	seq.Workers = 1
	par := seq
	par.Workers = 6

	a, err := Synthesize(field, draws, seq)
	require.NoError(t, err)
	b, err := Synthesize(field, draws, par)
	require.NoError(t, err)

	assert.Equal(t, a.Pix, b.Pix)
}

func TestSynthesizeColorsStayBetweenTones(t *testing.T) {
	p := testParams(40, 40)
	p.Profile = Profile{
		Dark:  color.RGBA{R: 10, G: 200, B: 50, A: 255},
		Light: color.RGBA{R: 90, G: 100, B: 50, A: 255},
	}

	img, err := Generate(p, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			c := img.RGBAAt(x, y)
			if c.R < 10 || c.R > 90 || c.G < 100 || c.G > 200 || c.B != 50 || c.A != 255 {
				t.Fatalf("pixel (%d,%d) = %+v outside tone range", x, y, c)
			}
		}
	}
}

func TestSynthesizeNilField(t *testing.T) {
	_, err := Synthesize(nil, Draws{}, testParams(4, 4))
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestDraw(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	for i := 0; i < 500; i++ {
		d := Draw(rng, 40)
		if d.Phase < 0 || d.Phase >= math.Pi {
			t.Fatalf("phase %v outside [0,pi)", d.Phase)
		}
	}

	d := Draw(rand.New(rand.NewSource(8)), 0)
	assert.Equal(t, 0.0, math.Abs(d.OffsetX))
	assert.Equal(t, 0.0, math.Abs(d.OffsetY))
}

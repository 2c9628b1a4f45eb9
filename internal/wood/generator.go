// Package wood synthesizes procedural wood-grain rasters: concentric rings
// around a randomly shifted center, twisted by value-noise turbulence and
// colored between two tones.
package wood

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/MeKo-Tech/woodgrain/internal/noise"
)

// ErrInvalidParameter is wrapped by every validation failure.
var ErrInvalidParameter = errors.New("wood: invalid parameter")

// Tuned visual constants. Changing them changes the character of the grain.
const (
	// TurbulenceStrength scales how far turbulence pushes the ring radius.
	TurbulenceStrength = 14.6
	// TurbulenceDivisor normalizes the [0,128) turbulence output.
	TurbulenceDivisor = 256.0
	// TurbulenceSize is the initial octave size in pixels.
	TurbulenceSize = 32.0
)

// MaxPixels bounds Width*Height so the raster and noise buffers stay addressable.
const MaxPixels = 1 << 30

// Rand is the randomness a generation call draws from.
// *math/rand.Rand satisfies it; it must not be shared across concurrent calls.
type Rand interface {
	Float64() float64
	NormFloat64() float64
}

// Params controls a single generation call.
type Params struct {
	Profile Profile
	// Width and Height are the raster dimensions in pixels.
	Width  int
	Height int
	// OffsetStdDev is the standard deviation of the ring center shift.
	OffsetStdDev float64
	// LengthScale is the average spacing between rings in pixels.
	LengthScale float64
	// Workers splits the pixel loop by rows when > 1.
	Workers int
}

// DefaultParams returns the parameters used by the CLI defaults.
func DefaultParams(width, height int) Params {
	return Params{
		Profile:      Neutral,
		Width:        width,
		Height:       height,
		OffsetStdDev: 40,
		LengthScale:  12,
		Workers:      1,
	}
}

// Validate checks the parameters before anything is allocated.
func (p Params) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d must be positive", ErrInvalidParameter, p.Width, p.Height)
	}
	if p.Width > MaxPixels/p.Height {
		return fmt.Errorf("%w: dimensions %dx%d exceed %d pixels", ErrInvalidParameter, p.Width, p.Height, MaxPixels)
	}
	if math.IsNaN(p.OffsetStdDev) || math.IsInf(p.OffsetStdDev, 0) || p.OffsetStdDev < 0 {
		return fmt.Errorf("%w: offset standard deviation %v must be finite and non-negative", ErrInvalidParameter, p.OffsetStdDev)
	}
	if math.IsNaN(p.LengthScale) || math.IsInf(p.LengthScale, 0) || p.LengthScale <= 0 {
		return fmt.Errorf("%w: length scale %v must be finite and positive", ErrInvalidParameter, p.LengthScale)
	}
	return nil
}

// Draws holds the per-call random state shared by every pixel.
type Draws struct {
	OffsetX float64
	OffsetY float64
	Phase   float64
}

// Draw samples the ring center offsets from Normal(0, stddev) and the phase
// from [0, pi). The sine is taken in absolute value, so half a turn suffices.
func Draw(rng Rand, stddev float64) Draws {
	ox := rng.NormFloat64() * stddev
	oy := rng.NormFloat64() * stddev
	phase := rng.Float64() * math.Pi
	return Draws{OffsetX: ox, OffsetY: oy, Phase: phase}
}

// Generate builds a fresh noise field and draws from rng, then renders the
// texture. A nil rng uses a time-seeded source private to this call.
func Generate(p Params, rng Rand) (*image.RGBA, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	field, err := noise.Build(p.Width, p.Height, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	draws := Draw(rng, p.OffsetStdDev)

	return Synthesize(field, draws, p)
}

// Synthesize renders a texture from an already materialized field and draws.
func Synthesize(field *noise.Field, d Draws, p Params) (*image.RGBA, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if field == nil {
		return nil, fmt.Errorf("%w: nil noise field", ErrInvalidParameter)
	}

	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	s := synth{field: field, draws: d, params: p}

	workers := p.Workers
	if workers > p.Height {
		workers = p.Height
	}
	if workers <= 1 {
		s.rows(img, 0, p.Height)
		return img, nil
	}

	var wg sync.WaitGroup
	chunk := (p.Height + workers - 1) / workers
	for y0 := 0; y0 < p.Height; y0 += chunk {
		y1 := y0 + chunk
		if y1 > p.Height {
			y1 = p.Height
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			s.rows(img, y0, y1)
		}(y0, y1)
	}
	wg.Wait()

	return img, nil
}

type synth struct {
	field  *noise.Field
	draws  Draws
	params Params
}

func (s *synth) rows(img *image.RGBA, y0, y1 int) {
	for y := y0; y < y1; y++ {
		for x := 0; x < s.params.Width; x++ {
			v := s.ringValueAt(x, y)
			img.SetRGBA(x, y, brighten(MapRing(v, s.params.Profile), s.params.Profile.Brightness))
		}
	}
}

// ringValueAt evaluates the ring function for one pixel.
func (s *synth) ringValueAt(x, y int) float64 {
	fx, fy := float64(x), float64(y)
	dx := fx - float64(s.params.Width)/2 + s.draws.OffsetX
	dy := fy - float64(s.params.Height)/2 + s.draws.OffsetY

	turb := s.field.Turbulence(fx, fy, TurbulenceSize)
	radius := math.Hypot(dx, dy) + TurbulenceStrength*turb/TurbulenceDivisor

	return RingValue(radius, s.params.LengthScale, s.draws.Phase)
}

// Package noise provides the value-noise field and turbulence used by the
// wood synthesizer.
package noise

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDimensions is returned when a field would have a zero or negative
// side, or more cells than a slice can hold.
var ErrInvalidDimensions = errors.New("noise: field dimensions must be positive")

// Source supplies uniform values in [0,1). *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Field is a dense grid of uniform random values, stored row-major.
// It is immutable once built and safe for concurrent reads.
type Field struct {
	width  int
	height int
	data   []float64
}

// Build allocates a width x height field and fills every cell from src.
func Build(width, height int, src Source) (*Field, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errors.New("noise: nil source")
	}

	data := make([]float64, width*height)
	for i := range data {
		data[i] = src.Float64()
	}

	return &Field{width: width, height: height, data: data}, nil
}

func checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if width > math.MaxInt/8/height {
		return fmt.Errorf("%w: %dx%d cells overflow", ErrInvalidDimensions, width, height)
	}
	return nil
}

// FromValues wraps precomputed values as a field. The slice is copied.
func FromValues(width, height int, values []float64) (*Field, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	if len(values) != width*height {
		return nil, fmt.Errorf("noise: expected %d values for %dx%d field, got %d", width*height, width, height, len(values))
	}
	for i, v := range values {
		if !(v >= 0 && v < 1) {
			return nil, fmt.Errorf("noise: value %v at index %d outside [0,1)", v, i)
		}
	}

	data := make([]float64, len(values))
	copy(data, values)
	return &Field{width: width, height: height, data: data}, nil
}

// Width returns the number of columns.
func (f *Field) Width() int { return f.width }

// Height returns the number of rows.
func (f *Field) Height() int { return f.height }

// At returns the raw cell value. Coordinates wrap around both axes.
func (f *Field) At(x, y int) float64 {
	return f.data[f.idx(wrapIndex(x, f.width), wrapIndex(y, f.height))]
}

func (f *Field) idx(x, y int) int { return y*f.width + x }

// SampleSmooth returns a bilinearly smoothed value at continuous coordinates.
// The field is periodic, so any finite coordinate is valid.
//
// The neighbor cell is the one a step back on each axis, and the fractional
// weights pair with the corners as in the classic lodev wood recipe:
// fx*fy goes to (x1,y1) and (1-fx)*fy to (x2,y1). This is not the textbook
// symmetric blend and the grain depends on it.
func (f *Field) SampleSmooth(x, y float64) float64 {
	floorX := math.Floor(x)
	floorY := math.Floor(y)
	fx := x - floorX
	fy := y - floorY

	x1 := wrapIndex(int(floorX), f.width)
	y1 := wrapIndex(int(floorY), f.height)
	x2 := (x1 + f.width - 1) % f.width
	y2 := (y1 + f.height - 1) % f.height

	value := 0.0
	value += fx * fy * f.data[f.idx(x1, y1)]
	value += (1 - fx) * fy * f.data[f.idx(x2, y1)]
	value += fx * (1 - fy) * f.data[f.idx(x1, y2)]
	value += (1 - fx) * (1 - fy) * f.data[f.idx(x2, y2)]
	return value
}

func wrapIndex(x, max int) int {
	x %= max
	if x < 0 {
		x += max
	}
	return x
}

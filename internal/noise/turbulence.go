package noise

// Turbulence sums smoothed samples over octaves, starting at initialSize and
// halving while the size stays >= 1. Each octave is weighted by its size and
// the sum is scaled into [0,128). Sizes below 1 contribute nothing.
func (f *Field) Turbulence(x, y, initialSize float64) float64 {
	if initialSize < 1 {
		return 0
	}

	value := 0.0
	for size := initialSize; size >= 1; size /= 2 {
		value += f.SampleSmooth(x/size, y/size) * size
	}

	return 128 * value / initialSize
}

// Octaves reports how many terms Turbulence sums for initialSize.
func Octaves(initialSize float64) int {
	n := 0
	for size := initialSize; size >= 1; size /= 2 {
		n++
	}
	return n
}

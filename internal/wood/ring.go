package wood

import (
	"image/color"
	"math"
)

// RingExponent sharpens the transition between dark and light bands.
const RingExponent = 0.4

// RingValue maps a perturbed radius to a blend factor in [0,1].
func RingValue(radius, lengthScale, phase float64) float64 {
	s := math.Sin(math.FMA(radius/lengthScale, math.Pi, phase))
	return math.Pow(math.Abs(s), RingExponent)
}

// MapRing interpolates each channel between the profile's dark and light
// tones. v is expected in [0,1]. Brightness is not applied here.
func MapRing(v float64, p Profile) color.RGBA {
	return color.RGBA{
		R: lerpChannel(p.Dark.R, p.Light.R, v),
		G: lerpChannel(p.Dark.G, p.Light.G, v),
		B: lerpChannel(p.Dark.B, p.Light.B, v),
		A: 255,
	}
}

func lerpChannel(a, b uint8, t float64) uint8 {
	v := float64(a) + (float64(b)-float64(a))*t
	return clampU8(int(math.Round(v)))
}

// brighten shifts every color channel by delta, saturating at 0 and 255.
// Any delta beyond ±255 saturates the same way, so it is clamped first.
func brighten(c color.RGBA, delta int) color.RGBA {
	if delta == 0 {
		return c
	}
	delta = max(-255, min(delta, 255))
	return color.RGBA{
		R: clampU8(int(c.R) + delta),
		G: clampU8(int(c.G) + delta),
		B: clampU8(int(c.B) + delta),
		A: c.A,
	}
}

func clampU8(x int) uint8 {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return uint8(x)
}

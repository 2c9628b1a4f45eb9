// Package finish applies optional post-processing to generated textures.
package finish

import (
	"image"
	"image/color"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/disintegration/gift"
	"golang.org/x/image/draw"
)

// Options selects post-processing steps. Zero values disable a step.
type Options struct {
	// BlurSigma softens the grain with a Gaussian blur.
	BlurSigma float32
	// Contrast adjusts contrast in percent (-100..100).
	Contrast float32
	// PoreStrength darkens perlin-noise flecks by up to this fraction (0..1).
	PoreStrength float64
	// PoreScale is the fleck size in pixels (default 3).
	PoreScale float64
	Seed      int64
}

// IsZero reports whether no step is enabled.
func (o Options) IsZero() bool {
	return o.BlurSigma <= 0 && o.Contrast == 0 && o.PoreStrength <= 0
}

// Apply runs the enabled steps and returns a new image; img is not modified.
// With no step enabled img itself is returned.
func Apply(img *image.RGBA, o Options) *image.RGBA {
	if img == nil || o.IsZero() {
		return img
	}

	out := img
	var filters []gift.Filter
	if o.BlurSigma > 0 {
		filters = append(filters, gift.GaussianBlur(o.BlurSigma))
	}
	if o.Contrast != 0 {
		filters = append(filters, gift.Contrast(o.Contrast))
	}
	if len(filters) > 0 {
		g := gift.New(filters...)
		dst := image.NewRGBA(g.Bounds(img.Bounds()))
		g.Draw(dst, img)
		out = dst
	}

	if o.PoreStrength > 0 {
		if out == img {
			out = cloneRGBA(img)
		}
		applyPores(out, o.PoreStrength, o.PoreScale, o.Seed)
	}

	return out
}

// applyPores darkens pixels where perlin noise peaks, in place.
func applyPores(img *image.RGBA, strength, scale float64, seed int64) {
	if strength > 1 {
		strength = 1
	}
	if scale <= 0 {
		scale = 3
	}
	p := perlin.NewPerlin(2.0, 2.0, 3, seed)

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			n := p.Noise2D(float64(x)/scale, float64(y)/scale)
			if n <= 0 {
				continue
			}
			factor := 1 - strength*math.Min(1, n)

			c := img.RGBAAt(x, y)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(math.Round(float64(c.R) * factor)),
				G: uint8(math.Round(float64(c.G) * factor)),
				B: uint8(math.Round(float64(c.B) * factor)),
				A: c.A,
			})
		}
	}
}

// Thumbnail scales img so its longer side is at most maxSide pixels.
// Images already small enough are copied unchanged.
func Thumbnail(img image.Image, maxSide int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}

	scale := float64(maxSide) / float64(max(w, h))
	tw := max(1, int(math.Round(float64(w)*scale)))
	th := max(1, int(math.Round(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	copy(dst.Pix, img.Pix)
	return dst
}

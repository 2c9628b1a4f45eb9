package wood

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Profile selects the two ring tones and a brightness shift applied after
// interpolation. Alpha components of Dark and Light are ignored.
type Profile struct {
	Dark       color.RGBA
	Light      color.RGBA
	Brightness int
}

var (
	defaultDark  = color.RGBA{R: 120, G: 70, B: 70, A: 255}
	defaultLight = color.RGBA{R: 208, G: 158, B: 70, A: 255}
)

// Neutral is the default wood profile.
var Neutral = Profile{Dark: defaultDark, Light: defaultLight, Brightness: 0}

// Bright shares Neutral's tones and lifts every channel by 20.
var Bright = Profile{Dark: defaultDark, Light: defaultLight, Brightness: 20}

var presets = map[string]Profile{
	"neutral": Neutral,
	"bright":  Bright,
}

// Presets returns a copy of the built-in profiles keyed by name.
func Presets() map[string]Profile {
	out := make(map[string]Profile, len(presets))
	for name, p := range presets {
		out[name] = p
	}
	return out
}

// PresetNames returns the built-in profile names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupProfile returns the built-in profile with the given name.
func LookupProfile(name string) (Profile, bool) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// ParseProfile builds a profile from hex colors such as "#784646".
func ParseProfile(brightness int, darkHex, lightHex string) (Profile, error) {
	dark, err := parseHexColor(darkHex)
	if err != nil {
		return Profile{}, fmt.Errorf("invalid dark color: %w", err)
	}
	light, err := parseHexColor(lightHex)
	if err != nil {
		return Profile{}, fmt.Errorf("invalid light color: %w", err)
	}

	return Profile{Dark: dark, Light: light, Brightness: brightness}, nil
}

// String formats the profile as "dark..light+brightness" using hex colors.
func (p Profile) String() string {
	return fmt.Sprintf("%s..%s%+d", hexOf(p.Dark), hexOf(p.Light), p.Brightness)
}

func parseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

func hexOf(c color.RGBA) string {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()
}

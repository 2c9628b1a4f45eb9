package wood

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresets(t *testing.T) {
	assert.Equal(t, []string{"bright", "neutral"}, PresetNames())

	neutral, ok := LookupProfile("neutral")
	require.True(t, ok)
	assert.Equal(t, 0, neutral.Brightness)

	bright, ok := LookupProfile(" Bright ")
	require.True(t, ok)
	assert.Equal(t, 20, bright.Brightness)
	assert.Equal(t, neutral.Dark, bright.Dark)
	assert.Equal(t, neutral.Light, bright.Light)

	_, ok = LookupProfile("oak")
	assert.False(t, ok)

	all := Presets()
	delete(all, "neutral")
	_, ok = LookupProfile("neutral")
	assert.True(t, ok, "Presets must return a copy")
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile(5, "#784646", "d09e46")
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{R: 120, G: 70, B: 70, A: 255}, p.Dark)
	assert.Equal(t, color.RGBA{R: 208, G: 158, B: 70, A: 255}, p.Light)
	assert.Equal(t, 5, p.Brightness)
	assert.Equal(t, "#784646..#d09e46+5", p.String())
}

func TestParseProfileErrors(t *testing.T) {
	_, err := ParseProfile(0, "not-a-color", "#d09e46")
	require.Error(t, err)

	_, err = ParseProfile(0, "#784646", "#12")
	require.Error(t, err)
}

func TestParseProfileAcceptsLargeBrightness(t *testing.T) {
	p, err := ParseProfile(400, "#784646", "#d09e46")
	require.NoError(t, err)
	assert.Equal(t, 400, p.Brightness)
}

package server

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MeKo-Tech/woodgrain/internal/archive"
	"github.com/MeKo-Tech/woodgrain/internal/encode"
	"github.com/MeKo-Tech/woodgrain/internal/wood"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(t *testing.T, cfg OnDemandConfig, ah *ArchiveHandler) (*OnDemand, http.Handler) {
	t.Helper()
	od, err := NewOnDemand(cfg, nil)
	require.NoError(t, err)
	return od, NewMux(od, ah)
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	_, mux := newTestMux(t, OnDemandConfig{}, nil)
	rec := get(mux, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServeTexturePNG(t *testing.T) {
	_, mux := newTestMux(t, OnDemandConfig{}, nil)

	rec := get(mux, "/wood.png?w=32&h=16&seed=5&profile=Bright")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "5", rec.Header().Get("X-Woodgrain-Seed"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestServeTextureSeedIsReproducible(t *testing.T) {
	_, mux := newTestMux(t, OnDemandConfig{}, nil)

	a := get(mux, "/wood.bmp?w=24&h=24&seed=99")
	b := get(mux, "/wood.bmp?w=24&h=24&seed=99")
	require.Equal(t, http.StatusOK, a.Code)
	assert.Equal(t, "image/bmp", a.Header().Get("Content-Type"))
	assert.Equal(t, a.Body.Bytes(), b.Body.Bytes())
}

func TestServeTextureRandomSeedHeader(t *testing.T) {
	_, mux := newTestMux(t, OnDemandConfig{Defaults: wood.DefaultParams(16, 16)}, nil)

	rec := get(mux, "/wood.jpg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Woodgrain-Seed"))
	assert.NotEqual(t, "0", rec.Header().Get("X-Woodgrain-Seed"))
}

func TestServeTextureCustomProfile(t *testing.T) {
	oak := wood.Profile{
		Dark:  color.RGBA{R: 90, G: 60, B: 30, A: 255},
		Light: color.RGBA{R: 200, G: 170, B: 120, A: 255},
	}
	_, mux := newTestMux(t, OnDemandConfig{
		Profiles:       map[string]wood.Profile{"oak": oak},
		DefaultProfile: "oak",
		Defaults:       wood.DefaultParams(8, 8),
	}, nil)

	assert.Equal(t, http.StatusOK, get(mux, "/wood.png?profile=oak").Code)
	assert.Equal(t, http.StatusBadRequest, get(mux, "/wood.png?profile=neutral").Code)
}

func TestServeTextureRejectsBadRequests(t *testing.T) {
	od, mux := newTestMux(t, OnDemandConfig{Defaults: wood.DefaultParams(8, 8), MaxPixels: 100 * 100}, nil)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"zero width", "/wood.png?w=0", http.StatusBadRequest},
		{"non-numeric height", "/wood.png?h=abc", http.StatusBadRequest},
		{"negative length", "/wood.png?length=-1", http.StatusBadRequest},
		{"negative stdev", "/wood.png?stdev=-3", http.StatusBadRequest},
		{"bad seed", "/wood.png?seed=1.5", http.StatusBadRequest},
		{"unknown profile", "/wood.png?profile=teak", http.StatusBadRequest},
		{"too large", "/wood.png?w=200&h=200", http.StatusBadRequest},
		{"overflowing size", "/wood.png?w=4294967296&h=4294967296", http.StatusBadRequest},
		{"one huge side", "/wood.png?w=1&h=10001", http.StatusBadRequest},
		{"unknown format", "/wood.gif", http.StatusNotFound},
		{"wrong name", "/oak.png", http.StatusNotFound},
		{"nested", "/textures/wood.png", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, get(mux, tt.target).Code)
		})
	}

	assert.Equal(t, int64(9), od.Status().TotalRejected)
	assert.Equal(t, int64(0), od.Status().TotalRendered)
}

func TestServeTextureTimeout(t *testing.T) {
	od, mux := newTestMux(t, OnDemandConfig{Timeout: time.Nanosecond}, nil)

	rec := get(mux, "/wood.png?w=1024&h=1024&seed=1")
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, int64(1), od.Status().TotalFailed)
}

func TestStatusEndpoint(t *testing.T) {
	_, mux := newTestMux(t, OnDemandConfig{Defaults: wood.DefaultParams(8, 8), MaxConcurrent: 3}, nil)

	require.Equal(t, http.StatusOK, get(mux, "/wood.png?seed=1").Code)
	require.Equal(t, http.StatusBadRequest, get(mux, "/wood.png?w=-1").Code)

	rec := get(mux, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, int64(1), st.TotalRendered)
	assert.Equal(t, int64(1), st.TotalRejected)
	assert.Equal(t, 3, st.MaxConcurrent)
	assert.Empty(t, st.CurrentRenders)
}

func TestCORSPreflight(t *testing.T) {
	_, mux := newTestMux(t, OnDemandConfig{}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/wood.png", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestNewOnDemandValidation(t *testing.T) {
	_, err := NewOnDemand(OnDemandConfig{DefaultProfile: "teak"}, nil)
	require.Error(t, err)

	_, err = NewOnDemand(OnDemandConfig{Encode: encode.Options{PNGCompression: "ultra"}}, nil)
	require.Error(t, err)

	bad := wood.DefaultParams(8, 8)
	bad.LengthScale = 0
	_, err = NewOnDemand(OnDemandConfig{Defaults: bad}, nil)
	require.ErrorIs(t, err, wood.ErrInvalidParameter)
}

func TestArchiveEndpoints(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "textures.db")
	w, err := archive.New(dbPath, archive.Metadata{Name: "test"})
	require.NoError(t, err)
	payload := []byte("BMfake")
	require.NoError(t, w.Put(archive.Entry{
		Name: "plank_01", Format: "bmp", Profile: "neutral", Data: payload,
		Width: 4, Height: 4, LengthScale: 12, OffsetStdDev: 40, Seed: 77,
	}))
	require.NoError(t, w.Close())

	ah, err := NewArchiveHandler(ArchiveConfig{ArchivePath: dbPath}, nil)
	require.NoError(t, err)
	defer ah.Close()

	_, mux := newTestMux(t, OnDemandConfig{}, ah)

	rec := get(mux, "/archive/plank_01.bmp")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.Bytes())
	assert.Equal(t, "image/bmp", rec.Header().Get("Content-Type"))
	assert.Equal(t, "77", rec.Header().Get("X-Woodgrain-Seed"))

	assert.Equal(t, http.StatusOK, get(mux, "/archive/plank_01").Code)
	assert.Equal(t, http.StatusNotFound, get(mux, "/archive/missing").Code)

	rec = get(mux, "/archive/")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing []archiveListing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing, 1)
	assert.Equal(t, "plank_01", listing[0].Name)
	assert.Equal(t, int64(77), listing[0].Seed)
}

func TestParseTexturePath(t *testing.T) {
	tests := []struct {
		path string
		want encode.Format
		ok   bool
	}{
		{"/wood.png", encode.PNG, true},
		{"/wood.jpg", encode.JPEG, true},
		{"/wood.jpeg", encode.JPEG, true},
		{"/wood.bmp", encode.BMP, true},
		{"/wood.tif", encode.TIFF, true},
		{"/wood.tiff", encode.TIFF, true},
		{"/wood.", "", false},
		{"/wood", "", false},
		{"/wood.webp", "", false},
		{"/a/wood.png", "", false},
	}
	for _, tt := range tests {
		got, ok := parseTexturePath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestParseArchivePath(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/archive/", "", true},
		{"/archive/oak", "oak", true},
		{"/archive/oak.png", "oak", true},
		{"/archive/a/b", "", false},
		{"/archive/.png", "", false},
		{"/other/oak", "", false},
	}
	for _, tt := range tests {
		got, ok := parseArchivePath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/woodgrain/internal/archive"
	"github.com/MeKo-Tech/woodgrain/internal/encode"
)

// ArchiveHandler serves stored textures from an archive database.
type ArchiveHandler struct {
	reader       *archive.Reader
	logger       *slog.Logger
	cacheControl string
}

// ArchiveConfig configures the archive handler.
type ArchiveConfig struct {
	ArchivePath  string
	CacheControl string
}

// archiveListing is one row of the JSON index.
type archiveListing struct {
	Name         string  `json:"name"`
	Format       string  `json:"format"`
	Profile      string  `json:"profile"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	LengthScale  float64 `json:"length_scale"`
	OffsetStdDev float64 `json:"offset_stdev"`
	Seed         int64   `json:"seed"`
}

// NewArchiveHandler opens the archive at cfg.ArchivePath.
func NewArchiveHandler(cfg ArchiveConfig, logger *slog.Logger) (*ArchiveHandler, error) {
	reader, err := archive.OpenReader(cfg.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "public, max-age=3600"
	}

	return &ArchiveHandler{
		reader:       reader,
		logger:       logger,
		cacheControl: cfg.CacheControl,
	}, nil
}

// Handler serves /archive/ as a JSON index and /archive/{name} as the image.
func (h *ArchiveHandler) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := parseArchivePath(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if name == "" {
			h.serveIndex(w)
			return
		}
		h.serveTexture(w, r, name)
	}
}

func (h *ArchiveHandler) serveIndex(w http.ResponseWriter) {
	entries, err := h.reader.List()
	if err != nil {
		h.log().Error("Failed to list archive", "error", err)
		http.Error(w, "failed to list archive", http.StatusInternalServerError)
		return
	}

	listing := make([]archiveListing, 0, len(entries))
	for _, e := range entries {
		listing = append(listing, archiveListing{
			Name:         e.Name,
			Format:       e.Format,
			Profile:      e.Profile,
			Width:        e.Width,
			Height:       e.Height,
			LengthScale:  e.LengthScale,
			OffsetStdDev: e.OffsetStdDev,
			Seed:         e.Seed,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(listing); err != nil {
		h.log().Error("Failed to encode archive index", "error", err)
	}
}

func (h *ArchiveHandler) serveTexture(w http.ResponseWriter, r *http.Request, name string) {
	e, err := h.reader.Get(name)
	if errors.Is(err, archive.ErrNotFound) {
		http.Error(w, "texture not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log().Error("Failed to read texture", "name", name, "error", err)
		http.Error(w, "failed to read texture", http.StatusInternalServerError)
		return
	}

	format, err := encode.ParseFormat(e.Format)
	if err != nil {
		format = encode.PNG
	}

	w.Header().Set("Cache-Control", h.cacheControl)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("X-Woodgrain-Seed", strconv.FormatInt(e.Seed, 10))
	if _, err := w.Write(e.Data); err != nil {
		h.log().Error("Failed to write response", "error", err)
	}
}

// Close closes the archive reader.
func (h *ArchiveHandler) Close() error {
	return h.reader.Close()
}

func (h *ArchiveHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// parseArchivePath returns the texture name from /archive/{name}, with an
// optional file extension stripped. An empty name means the index.
func parseArchivePath(requestPath string) (string, bool) {
	if !strings.HasPrefix(requestPath, "/archive/") {
		return "", false
	}
	rest := strings.TrimPrefix(requestPath, "/archive/")
	if rest == "" {
		return "", true
	}
	if strings.Contains(rest, "/") {
		return "", false
	}
	name := strings.TrimSuffix(rest, path.Ext(rest))
	if name == "" {
		return "", false
	}
	return name, true
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/woodgrain/internal/encode"
	"github.com/MeKo-Tech/woodgrain/internal/finish"
	"github.com/MeKo-Tech/woodgrain/internal/pipeline"
	"github.com/MeKo-Tech/woodgrain/internal/wood"
)

type OnDemandConfig struct {
	// Profiles maps lowercase names to color profiles. Nil means wood.Presets().
	Profiles map[string]wood.Profile
	// Defaults supplies every parameter the query string omits.
	Defaults       wood.Params
	DefaultProfile string
	Finish         finish.Options
	Encode         encode.Options
	CacheControl   string
	MaxConcurrent  int
	Timeout        time.Duration
	// MaxPixels rejects requests whose width*height exceeds it (default 4096*4096).
	MaxPixels int
}

type OnDemand struct {
	logger *slog.Logger
	sem    chan struct{}
	cfg    OnDemandConfig

	activeRenders  atomic.Int32
	queuedRenders  atomic.Int32
	totalRendered  atomic.Int64
	totalFailed    atomic.Int64
	totalRejected  atomic.Int64
	currentRenders sync.Map // request key -> start time
}

// Status is the JSON body of the status endpoint.
type Status struct {
	ActiveRenders  int      `json:"active_renders"`
	QueuedRenders  int      `json:"queued_renders"`
	TotalRendered  int64    `json:"total_rendered"`
	TotalFailed    int64    `json:"total_failed"`
	TotalRejected  int64    `json:"total_rejected"`
	MaxConcurrent  int      `json:"max_concurrent"`
	CurrentRenders []string `json:"current_renders"`
}

func NewOnDemand(cfg OnDemandConfig, logger *slog.Logger) (*OnDemand, error) {
	if cfg.Profiles == nil {
		cfg.Profiles = wood.Presets()
	}
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = "neutral"
	}
	if cfg.Defaults.Width == 0 && cfg.Defaults.Height == 0 {
		cfg.Defaults = wood.DefaultParams(512, 512)
	}
	p, ok := cfg.Profiles[strings.ToLower(cfg.DefaultProfile)]
	if !ok {
		return nil, fmt.Errorf("unknown default profile %q", cfg.DefaultProfile)
	}
	cfg.Defaults.Profile = p
	if err := cfg.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default parameters: %w", err)
	}
	if _, err := encode.ParsePNGCompression(cfg.Encode.PNGCompression); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = 4096 * 4096
	}

	return &OnDemand{
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrent),
	}, nil
}

// Status returns a snapshot of the render counters.
func (o *OnDemand) Status() Status {
	current := []string{}
	o.currentRenders.Range(func(key, _ any) bool {
		current = append(current, key.(string))
		return true
	})
	sort.Strings(current)

	return Status{
		ActiveRenders:  int(o.activeRenders.Load()),
		QueuedRenders:  int(o.queuedRenders.Load()),
		TotalRendered:  o.totalRendered.Load(),
		TotalFailed:    o.totalFailed.Load(),
		TotalRejected:  o.totalRejected.Load(),
		MaxConcurrent:  o.cfg.MaxConcurrent,
		CurrentRenders: current,
	}
}

// StatusHandler serves Status as JSON.
func (o *OnDemand) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		if err := json.NewEncoder(w).Encode(o.Status()); err != nil {
			o.log().Error("failed to encode status", "error", err)
			http.Error(w, "failed to encode status", http.StatusInternalServerError)
		}
	})
}

func (o *OnDemand) Handler() http.Handler {
	return http.HandlerFunc(o.serveTexture)
}

type rendered struct {
	err  error
	data []byte
	seed int64
}

func (o *OnDemand) serveTexture(w http.ResponseWriter, r *http.Request) {
	format, ok := parseTexturePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	params, profileName, seed, err := o.parseQuery(r.URL.Query())
	if err != nil {
		o.totalRejected.Add(1)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	gen, err := pipeline.NewGenerator(params, profileName, "", o.logger, pipeline.GeneratorOptions{
		Format: format,
		Encode: o.cfg.Encode,
		Finish: o.cfg.Finish,
	})
	if err != nil {
		o.log().Error("failed to init generator", "error", err)
		http.Error(w, "failed to init generator", http.StatusInternalServerError)
		return
	}

	o.queuedRenders.Add(1)
	select {
	case o.sem <- struct{}{}:
		o.queuedRenders.Add(-1)
	case <-r.Context().Done():
		o.queuedRenders.Add(-1)
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), o.cfg.Timeout)
	defer cancel()

	key := fmt.Sprintf("%dx%d/%s/%s#%d", params.Width, params.Height, profileName, format, seed)
	start := time.Now()
	o.activeRenders.Add(1)
	o.currentRenders.Store(key, start)

	// The slot is released when rendering finishes, even if the client gave up.
	done := make(chan rendered, 1)
	go func() {
		defer func() {
			o.activeRenders.Add(-1)
			o.currentRenders.Delete(key)
			<-o.sem
		}()
		data, used, err := gen.Encode(seed)
		done <- rendered{data: data, seed: used, err: err}
	}()

	var res rendered
	select {
	case res = <-done:
	case <-ctx.Done():
		o.totalFailed.Add(1)
		o.log().Warn("texture render timed out", "key", key, "error", ctx.Err())
		http.Error(w, "texture generation timed out", http.StatusGatewayTimeout)
		return
	}

	if res.err != nil {
		o.totalFailed.Add(1)
		o.log().Error("failed to generate texture", "key", key, "error", res.err)
		http.Error(w, fmt.Sprintf("failed to generate texture: %v", res.err), http.StatusInternalServerError)
		return
	}
	o.totalRendered.Add(1)
	o.log().Info("texture generated on-demand", "key", key, "seed", res.seed, "bytes", len(res.data), "ms", time.Since(start).Milliseconds())

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", o.cfg.CacheControl)
	w.Header().Set("X-Woodgrain-Seed", strconv.FormatInt(res.seed, 10))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.data)))
	if _, err := w.Write(res.data); err != nil {
		o.log().Error("failed to write response", "error", err)
	}
}

// parseQuery overlays the query string on the configured defaults.
func (o *OnDemand) parseQuery(q url.Values) (wood.Params, string, int64, error) {
	p := o.cfg.Defaults
	profileName := strings.ToLower(o.cfg.DefaultProfile)
	var seed int64

	var err error
	if v := q.Get("w"); v != "" {
		if p.Width, err = strconv.Atoi(v); err != nil {
			return p, "", 0, fmt.Errorf("%w: w=%q", wood.ErrInvalidParameter, v)
		}
	}
	if v := q.Get("h"); v != "" {
		if p.Height, err = strconv.Atoi(v); err != nil {
			return p, "", 0, fmt.Errorf("%w: h=%q", wood.ErrInvalidParameter, v)
		}
	}
	if v := q.Get("length"); v != "" {
		if p.LengthScale, err = strconv.ParseFloat(v, 64); err != nil {
			return p, "", 0, fmt.Errorf("%w: length=%q", wood.ErrInvalidParameter, v)
		}
	}
	if v := q.Get("stdev"); v != "" {
		if p.OffsetStdDev, err = strconv.ParseFloat(v, 64); err != nil {
			return p, "", 0, fmt.Errorf("%w: stdev=%q", wood.ErrInvalidParameter, v)
		}
	}
	if v := q.Get("seed"); v != "" {
		if seed, err = strconv.ParseInt(v, 10, 64); err != nil {
			return p, "", 0, fmt.Errorf("%w: seed=%q", wood.ErrInvalidParameter, v)
		}
	}
	if v := q.Get("profile"); v != "" {
		profileName = strings.ToLower(strings.TrimSpace(v))
		prof, ok := o.cfg.Profiles[profileName]
		if !ok {
			return p, "", 0, fmt.Errorf("%w: unknown profile %q", wood.ErrInvalidParameter, v)
		}
		p.Profile = prof
	}

	if err := p.Validate(); err != nil {
		return p, "", 0, err
	}
	// Height is positive after Validate; dividing keeps huge sides from wrapping.
	if p.Width > o.cfg.MaxPixels/p.Height {
		return p, "", 0, fmt.Errorf("%w: %dx%d exceeds %d pixels", wood.ErrInvalidParameter, p.Width, p.Height, o.cfg.MaxPixels)
	}
	return p, profileName, seed, nil
}

func (o *OnDemand) log() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return slog.Default()
}

// parseTexturePath accepts /wood.png, /wood.jpg, /wood.bmp, /wood.tiff and
// their alternate extensions.
func parseTexturePath(requestPath string) (encode.Format, bool) {
	if path.Dir(requestPath) != "/" {
		return "", false
	}
	base := path.Base(requestPath)
	if !strings.HasPrefix(base, "wood.") {
		return "", false
	}
	ext := strings.TrimPrefix(base, "wood.")
	if ext == "" {
		return "", false
	}
	f, err := encode.ParseFormat(ext)
	if err != nil {
		return "", false
	}
	return f, true
}

package cmd

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/MeKo-Tech/woodgrain/internal/encode"
	"github.com/MeKo-Tech/woodgrain/internal/finish"
	"github.com/MeKo-Tech/woodgrain/internal/server"
	"github.com/MeKo-Tech/woodgrain/internal/wood"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Render textures on demand over HTTP",
	Long: `Serve wood-grain textures over HTTP.

  GET /wood.{png,jpg,bmp,tiff}?w=&h=&length=&stdev=&profile=&seed=
  GET /status     render counters as JSON
  GET /healthz    liveness probe
  GET /archive/   textures stored in --archive (index and /archive/{name})`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("archive", "", "Texture archive to serve under /archive/ (optional)")
	serveCmd.Flags().Int("max-concurrent-generations", runtime.NumCPU(), "Max concurrent texture renders (default: number of CPUs)")
	serveCmd.Flags().Duration("generation-timeout", 30*time.Second, "Timeout per texture render")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for rendered textures")
	serveCmd.Flags().Int("max-pixels", 4096*4096, "Reject requests larger than this many pixels")

	serveCmd.Flags().Int("width", 512, "Default texture width")
	serveCmd.Flags().Int("height", 512, "Default texture height")
	serveCmd.Flags().Float64("offset-stdev", 40, "Default ring-center offset standard deviation")
	serveCmd.Flags().Float64("length-scale", 12, "Default ring spacing")
	serveCmd.Flags().String("profile", "neutral", "Default color profile")
	serveCmd.Flags().Int("render-workers", 1, "Goroutines used to render the rows of one texture")
	serveCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")
	serveCmd.Flags().Int("jpeg-quality", 90, "JPEG quality (1-100)")
	serveCmd.Flags().Float32("blur", 0, "Gaussian blur sigma applied after synthesis")
	serveCmd.Flags().Float64("pores", 0, "Pore overlay strength (0..1)")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.archive", "archive")
	mustBind("serve.max_concurrent_generations", "max-concurrent-generations")
	mustBind("serve.generation_timeout", "generation-timeout")
	mustBind("serve.cache_control", "cache-control")
	mustBind("serve.max_pixels", "max-pixels")

	mustBind("serve.width", "width")
	mustBind("serve.height", "height")
	mustBind("serve.offset_stdev", "offset-stdev")
	mustBind("serve.length_scale", "length-scale")
	mustBind("serve.profile", "profile")
	mustBind("serve.render_workers", "render-workers")
	mustBind("serve.png_compression", "png-compression")
	mustBind("serve.jpeg_quality", "jpeg-quality")
	mustBind("serve.blur", "blur")
	mustBind("serve.pores", "pores")
}

// onDemandConfig maps serve.* settings onto the server configuration.
func onDemandConfig(v *viper.Viper) (server.OnDemandConfig, error) {
	profiles, err := loadProfiles(v)
	if err != nil {
		return server.OnDemandConfig{}, err
	}

	return server.OnDemandConfig{
		Profiles: profiles,
		Defaults: wood.Params{
			Width:        v.GetInt("serve.width"),
			Height:       v.GetInt("serve.height"),
			OffsetStdDev: v.GetFloat64("serve.offset_stdev"),
			LengthScale:  v.GetFloat64("serve.length_scale"),
			Workers:      v.GetInt("serve.render_workers"),
		},
		DefaultProfile: v.GetString("serve.profile"),
		Finish: finish.Options{
			BlurSigma:    float32(v.GetFloat64("serve.blur")),
			PoreStrength: v.GetFloat64("serve.pores"),
		},
		Encode: encode.Options{
			PNGCompression: v.GetString("serve.png_compression"),
			JPEGQuality:    v.GetInt("serve.jpeg_quality"),
		},
		CacheControl:  v.GetString("serve.cache_control"),
		MaxConcurrent: v.GetInt("serve.max_concurrent_generations"),
		Timeout:       v.GetDuration("serve.generation_timeout"),
		MaxPixels:     v.GetInt("serve.max_pixels"),
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	archivePath := viper.GetString("serve.archive")

	cfg, err := onDemandConfig(viper.GetViper())
	if err != nil {
		return err
	}

	od, err := server.NewOnDemand(cfg, logger)
	if err != nil {
		return err
	}

	var ah *server.ArchiveHandler
	if archivePath != "" {
		ah, err = server.NewArchiveHandler(server.ArchiveConfig{ArchivePath: archivePath}, logger)
		if err != nil {
			return err
		}
		defer ah.Close()
	}

	logger.Info("texture server listening",
		"addr", addr,
		"archive", archivePath,
		"default_profile", cfg.DefaultProfile,
		"max_concurrent_generations", cfg.MaxConcurrent,
	)

	srv := &http.Server{Addr: addr, Handler: server.NewMux(od, ah), ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

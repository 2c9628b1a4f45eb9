package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/MeKo-Tech/woodgrain/internal/archive"
	"github.com/MeKo-Tech/woodgrain/internal/encode"
	"github.com/MeKo-Tech/woodgrain/internal/finish"
	"github.com/MeKo-Tech/woodgrain/internal/pipeline"
	"github.com/MeKo-Tech/woodgrain/internal/wood"
	"github.com/MeKo-Tech/woodgrain/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate wood-grain textures",
	Long: `Generate one or more wood-grain textures.

With --count 1 a single texture named --name is written. Larger counts write
<name>_0000, <name>_0001, ... in parallel. A fixed --seed makes the batch
reproducible; seed 0 draws a fresh random seed per texture.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	// Shape flags
	generateCmd.Flags().Int("width", 512, "Texture width in pixels")
	generateCmd.Flags().Int("height", 512, "Texture height in pixels")
	generateCmd.Flags().Float64("offset-stdev", 40, "Standard deviation of the random ring-center offset in pixels")
	generateCmd.Flags().Float64("length-scale", 12, "Ring spacing; larger values give wider rings")
	generateCmd.Flags().String("profile", "neutral", "Color profile (see 'woodgrain profiles')")
	generateCmd.Flags().Int64("seed", 0, "Base seed (0 = random)")
	generateCmd.Flags().Int("render-workers", 1, "Goroutines used to render the rows of one texture")

	// Batch flags
	generateCmd.Flags().String("name", "wood", "Texture name, or name prefix for batches")
	generateCmd.Flags().IntP("count", "n", 1, "Number of textures to generate")
	generateCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	generateCmd.Flags().Bool("progress", true, "Show progress bar during batch generation")
	generateCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some textures fail")
	generateCmd.Flags().Bool("force", false, "Overwrite textures that already exist")

	// Output flags
	generateCmd.Flags().String("format", "folder", "Output format: folder or archive")
	generateCmd.Flags().String("output-file", "", "Archive file path for --format=archive (e.g., textures.db)")
	generateCmd.Flags().String("encoding", "png", "Image encoding (png, jpeg, bmp, tiff)")
	generateCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")
	generateCmd.Flags().Int("jpeg-quality", 90, "JPEG quality (1-100)")
	generateCmd.Flags().Int("thumbnail", 0, "Also write a <name>_thumb preview with this longest side (folder output)")

	// Finishing flags
	generateCmd.Flags().Float32("blur", 0, "Gaussian blur sigma applied after synthesis")
	generateCmd.Flags().Float32("contrast", 0, "Contrast adjustment in percent (-100..100)")
	generateCmd.Flags().Float64("pores", 0, "Pore overlay strength (0..1)")
	generateCmd.Flags().Float64("pore-scale", 3, "Pore size in pixels")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"generate.width", "width"},
		{"generate.height", "height"},
		{"generate.offset_stdev", "offset-stdev"},
		{"generate.length_scale", "length-scale"},
		{"generate.profile", "profile"},
		{"generate.seed", "seed"},
		{"generate.render_workers", "render-workers"},
		{"generate.name", "name"},
		{"generate.count", "count"},
		{"generate.workers", "workers"},
		{"generate.progress", "progress"},
		{"generate.allow_failures", "allow-failures"},
		{"generate.force", "force"},
		{"generate.format", "format"},
		{"generate.output_file", "output-file"},
		{"generate.encoding", "encoding"},
		{"generate.png_compression", "png-compression"},
		{"generate.jpeg_quality", "jpeg-quality"},
		{"generate.thumbnail", "thumbnail"},
		{"generate.blur", "blur"},
		{"generate.contrast", "contrast"},
		{"generate.pores", "pores"},
		{"generate.pore_scale", "pore-scale"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, generateCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

type generateOptions struct {
	Params        wood.Params
	ProfileName   string
	Name          string
	Count         int
	Seed          int64
	Workers       int
	Progress      bool
	AllowFailures bool
	Force         bool
	Format        string
	OutputDir     string
	OutputFile    string
	Encoding      encode.Format
	Encode        encode.Options
	Finish        finish.Options
	Thumbnail     int
}

func loadGenerateOptions(v *viper.Viper) (generateOptions, error) {
	profile, profileName, err := resolveProfile(v, v.GetString("generate.profile"))
	if err != nil {
		return generateOptions{}, err
	}

	encoding, err := encode.ParseFormat(v.GetString("generate.encoding"))
	if err != nil {
		return generateOptions{}, err
	}

	params := wood.Params{
		Profile:      profile,
		Width:        v.GetInt("generate.width"),
		Height:       v.GetInt("generate.height"),
		OffsetStdDev: v.GetFloat64("generate.offset_stdev"),
		LengthScale:  v.GetFloat64("generate.length_scale"),
		Workers:      v.GetInt("generate.render_workers"),
	}

	opts := generateOptions{
		Params:        params,
		ProfileName:   profileName,
		Name:          v.GetString("generate.name"),
		Count:         v.GetInt("generate.count"),
		Seed:          v.GetInt64("generate.seed"),
		Workers:       v.GetInt("generate.workers"),
		Progress:      v.GetBool("generate.progress"),
		AllowFailures: v.GetBool("generate.allow_failures"),
		Force:         v.GetBool("generate.force"),
		Format:        v.GetString("generate.format"),
		OutputDir:     v.GetString("output-dir"),
		OutputFile:    v.GetString("generate.output_file"),
		Encoding:      encoding,
		Encode: encode.Options{
			PNGCompression: v.GetString("generate.png_compression"),
			JPEGQuality:    v.GetInt("generate.jpeg_quality"),
		},
		Finish: finish.Options{
			BlurSigma:    float32(v.GetFloat64("generate.blur")),
			Contrast:     float32(v.GetFloat64("generate.contrast")),
			PoreStrength: v.GetFloat64("generate.pores"),
			PoreScale:    v.GetFloat64("generate.pore_scale"),
		},
		Thumbnail: v.GetInt("generate.thumbnail"),
	}
	return opts, opts.validate()
}

func (o generateOptions) validate() error {
	if o.Format != "folder" && o.Format != "archive" {
		return fmt.Errorf("invalid format %q: must be 'folder' or 'archive'", o.Format)
	}
	if o.Format == "archive" && o.OutputFile == "" {
		return fmt.Errorf("--output-file is required when using --format=archive")
	}
	if o.Count <= 0 {
		return fmt.Errorf("--count must be positive, got %d", o.Count)
	}
	if o.Name == "" {
		return fmt.Errorf("--name must not be empty")
	}
	if o.Finish.PoreStrength < 0 || o.Finish.PoreStrength > 1 {
		return fmt.Errorf("--pores must be within [0,1]")
	}
	return o.Params.Validate()
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	opts, err := loadGenerateOptions(viper.GetViper())
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return generateTextures(ctx, opts, logger)
}

// generateTextures runs a batch described by opts through the worker pool.
func generateTextures(ctx context.Context, opts generateOptions, logger *slog.Logger) error {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	logger.Info("Starting texture generation",
		"name", opts.Name,
		"count", opts.Count,
		"size", fmt.Sprintf("%dx%d", opts.Params.Width, opts.Params.Height),
		"profile", opts.ProfileName,
		"seed", opts.Seed,
		"workers", workers,
		"format", opts.Format,
		"encoding", opts.Encoding,
	)

	var archiveWriter *archive.Writer
	if opts.Format == "archive" {
		var err error
		archiveWriter, err = archive.New(opts.OutputFile, archive.Metadata{
			Name:        opts.Name,
			Description: "Procedural wood-grain textures",
			Version:     "1.0",
			Created:     time.Now(),
			Count:       opts.Count,
		})
		if err != nil {
			return fmt.Errorf("failed to create archive writer: %w", err)
		}
		defer archiveWriter.Close()
		logger.Info("Archive writer created", "path", opts.OutputFile)
	}

	// Create generator with optional TextureWriter
	var textureWriter pipeline.TextureWriter
	if archiveWriter != nil {
		textureWriter = archiveWriter
	}

	gen, err := pipeline.NewGenerator(opts.Params, opts.ProfileName, opts.OutputDir, logger, pipeline.GeneratorOptions{
		Writer:        textureWriter,
		Format:        opts.Encoding,
		Encode:        opts.Encode,
		Finish:        opts.Finish,
		ThumbnailSize: opts.Thumbnail,
	})
	if err != nil {
		return fmt.Errorf("failed to init generator: %w", err)
	}

	tasks := buildTasks(opts.Name, opts.Count, opts.Seed, opts.Force)
	progress := worker.NewProgress(len(tasks), opts.Progress && len(tasks) > 1)

	pool := worker.New(worker.Config{
		Workers:    workers,
		Generator:  gen,
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	var failedCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Texture generation failed", "name", r.Task.Name, "seed", r.Task.Seed, "error", r.Err)
		}
	}

	logger.Info(progress.Summary())

	if archiveWriter != nil {
		logger.Info("Flushing archive...")
		if err := archiveWriter.Flush(); err != nil {
			return fmt.Errorf("failed to flush archive: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("generation interrupted after %d of %d textures: %w", len(results)-failedCount, len(tasks), err)
	}

	if failedCount > 0 {
		if !opts.AllowFailures {
			return fmt.Errorf("%d of %d textures failed to generate", failedCount, len(tasks))
		}
		logger.Warn("Some textures failed to generate, but continuing due to --allow-failures flag", "failed_count", failedCount)
	}

	return nil
}

// buildTasks names and seeds count textures. A single texture keeps the
// bare name; batches get a zero-padded index suffix.
func buildTasks(name string, count int, seed int64, force bool) []worker.Task {
	tasks := make([]worker.Task, 0, count)
	for i := 0; i < count; i++ {
		taskName := name
		if count > 1 {
			taskName = fmt.Sprintf("%s_%04d", name, i)
		}
		tasks = append(tasks, worker.Task{
			Name:  taskName,
			Index: i,
			Seed:  pipeline.TaskSeed(seed, i),
			Force: force,
		})
	}
	return tasks
}

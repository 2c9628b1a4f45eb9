// Package pipeline wires wood synthesis, finishing, encoding and storage
// into a single generation step.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/woodgrain/internal/archive"
	"github.com/MeKo-Tech/woodgrain/internal/encode"
	"github.com/MeKo-Tech/woodgrain/internal/finish"
	"github.com/MeKo-Tech/woodgrain/internal/wood"
)

var errNoSink = errors.New("pipeline: no output directory or texture writer configured")

// TextureWriter stores encoded textures somewhere other than the output folder.
// *archive.Writer implements it.
type TextureWriter interface {
	Put(archive.Entry) error
}

// GeneratorOptions configures optional generator behavior.
type GeneratorOptions struct {
	// Writer, if set, receives textures instead of the output folder.
	Writer TextureWriter
	Format encode.Format
	Encode encode.Options
	Finish finish.Options
	// ThumbnailSize, if positive, also writes a "<name>_thumb" preview
	// whose longer side is at most this many pixels (folder output only).
	ThumbnailSize int
}

// Generator renders textures with fixed parameters and varying seeds.
type Generator struct {
	writer      TextureWriter
	logger      *slog.Logger
	profileName string
	outputDir   string
	format      encode.Format
	encodeOpts  encode.Options
	finishOpts  finish.Options
	params      wood.Params
	thumbnail   int
}

// NewGenerator validates params and prepares a generator.
func NewGenerator(params wood.Params, profileName, outputDir string, logger *slog.Logger, opts GeneratorOptions) (*Generator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if opts.Format == "" {
		opts.Format = encode.PNG
	}
	if _, err := encode.ParseFormat(string(opts.Format)); err != nil {
		return nil, err
	}
	if opts.Format == encode.PNG {
		if _, err := encode.ParsePNGCompression(opts.Encode.PNGCompression); err != nil {
			return nil, err
		}
	}
	return &Generator{
		writer:      opts.Writer,
		logger:      logger,
		profileName: profileName,
		outputDir:   outputDir,
		format:      opts.Format,
		encodeOpts:  opts.Encode,
		finishOpts:  opts.Finish,
		params:      params,
		thumbnail:   opts.ThumbnailSize,
	}, nil
}

// Params returns the wood parameters used for every texture.
func (g *Generator) Params() wood.Params { return g.params }

// Format returns the output encoding.
func (g *Generator) Format() encode.Format { return g.format }

// Render synthesizes and finishes one texture. Seed 0 draws a random seed.
func (g *Generator) Render(seed int64) (*image.RGBA, int64, error) {
	if seed == 0 {
		seed = RandomSeed()
	}

	img, err := wood.Generate(g.params, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, seed, err
	}

	fo := g.finishOpts
	if fo.Seed == 0 {
		fo.Seed = seed
	}
	return finish.Apply(img, fo), seed, nil
}

// Encode renders one texture and encodes it in the configured format.
func (g *Generator) Encode(seed int64) ([]byte, int64, error) {
	img, usedSeed, err := g.Render(seed)
	if err != nil {
		return nil, usedSeed, err
	}
	data, err := encode.Bytes(img, g.format, g.encodeOpts)
	return data, usedSeed, err
}

// Generate renders, encodes and stores the texture called name.
// Returns the file path, or "archive:<name>" when a TextureWriter is set.
func (g *Generator) Generate(ctx context.Context, name string, seed int64, force bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.writer == nil && g.outputDir == "" {
		return "", errNoSink
	}

	finalPath := filepath.Join(g.outputDir, name+"."+g.format.Extension())
	if g.writer == nil && !force {
		if _, err := os.Stat(finalPath); err == nil {
			g.log().Info("Texture already exists; skipping", "name", name, "path", finalPath)
			return finalPath, nil
		}
	}

	g.log().Debug("Rendering texture", "name", name, "width", g.params.Width, "height", g.params.Height, "seed", seed)
	img, usedSeed, err := g.Render(seed)
	if err != nil {
		return "", fmt.Errorf("failed to render texture %s: %w", name, err)
	}

	data, err := encode.Bytes(img, g.format, g.encodeOpts)
	if err != nil {
		return "", err
	}

	if g.writer != nil {
		err := g.writer.Put(archive.Entry{
			Name:         name,
			Format:       string(g.format),
			Profile:      g.profileName,
			Data:         data,
			Width:        g.params.Width,
			Height:       g.params.Height,
			LengthScale:  g.params.LengthScale,
			OffsetStdDev: g.params.OffsetStdDev,
			Seed:         usedSeed,
		})
		if err != nil {
			return "", fmt.Errorf("failed to store texture %s: %w", name, err)
		}
		g.log().Info("Texture stored", "name", name, "seed", usedSeed, "bytes", len(data))
		return "archive:" + name, nil
	}

	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := os.WriteFile(finalPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write texture %s: %w", finalPath, err)
	}

	if g.thumbnail > 0 {
		thumbPath := filepath.Join(g.outputDir, name+"_thumb."+g.format.Extension())
		thumb, err := encode.Bytes(finish.Thumbnail(img, g.thumbnail), g.format, g.encodeOpts)
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(thumbPath, thumb, 0o644); err != nil {
			return "", fmt.Errorf("failed to write thumbnail %s: %w", thumbPath, err)
		}
	}

	g.log().Info("Texture written", "name", name, "path", finalPath, "seed", usedSeed)
	return finalPath, nil
}

func (g *Generator) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}

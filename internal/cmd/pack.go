package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/MeKo-Tech/woodgrain/internal/archive"
	"github.com/MeKo-Tech/woodgrain/internal/encode"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Pack a texture folder into an archive",
	Long:  `Pack the images of an existing texture folder into a SQLite texture archive.`,
	RunE:  runPack,
}

func init() {
	rootCmd.AddCommand(packCmd)

	packCmd.Flags().String("input-dir", "./textures", "Input directory containing textures")
	packCmd.Flags().StringP("output", "o", "", "Output archive file path (required)")
	packCmd.Flags().String("name", "woodgrain", "Archive name")
	packCmd.Flags().String("description", "Procedural wood-grain textures", "Archive description")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"pack.input_dir", "input-dir"},
		{"pack.output", "output"},
		{"pack.name", "name"},
		{"pack.description", "description"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, packCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runPack(cmd *cobra.Command, args []string) error {
	inputDir := viper.GetString("pack.input_dir")
	outputFile := viper.GetString("pack.output")

	if logger == nil {
		initLogging()
	}

	if outputFile == "" {
		return fmt.Errorf("--output is required")
	}

	n, err := packDirectory(inputDir, outputFile, archive.Metadata{
		Name:        viper.GetString("pack.name"),
		Description: viper.GetString("pack.description"),
		Version:     "1.0",
		Created:     time.Now(),
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("Packing complete", "output", outputFile, "textures", n)
	return nil
}

// textureFilePattern matches generated texture files; thumbnails are skipped.
var textureFilePattern = regexp.MustCompile(`^(.+)\.(png|jpe?g|bmp|tiff?)$`)

type textureFile struct {
	name string
	path string
}

// scanTextureDirectory lists texture files directly inside dir, sorted by name.
func scanTextureDirectory(dir string) ([]textureFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []textureFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := textureFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if strings.HasSuffix(m[1], "_thumb") {
			continue
		}
		files = append(files, textureFile{name: m[1], path: filepath.Join(dir, e.Name())})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

// packDirectory stores every texture in dir into a new archive at output.
// Unreadable files are logged and skipped.
func packDirectory(dir, output string, meta archive.Metadata, logger *slog.Logger) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, fmt.Errorf("input directory does not exist: %s", dir)
	}

	files, err := scanTextureDirectory(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan texture directory: %w", err)
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no textures found in %s", dir)
	}

	logger.Info("Packing textures", "input_dir", dir, "output", output, "count", len(files))

	meta.Count = len(files)
	writer, err := archive.New(output, meta)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive writer: %w", err)
	}
	defer writer.Close()

	var packed int
	for _, f := range files {
		data, err := os.ReadFile(f.path)
		if err != nil {
			logger.Error("Failed to read texture", "path", f.path, "error", err)
			continue
		}

		cfg, format, err := encode.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			logger.Error("Failed to read texture header", "path", f.path, "error", err)
			continue
		}

		if err := writer.Put(archive.Entry{
			Name:   f.name,
			Format: string(format),
			Data:   data,
			Width:  cfg.Width,
			Height: cfg.Height,
		}); err != nil {
			logger.Error("Failed to store texture", "name", f.name, "error", err)
			continue
		}
		packed++
	}

	if err := writer.Flush(); err != nil {
		return packed, fmt.Errorf("failed to flush archive: %w", err)
	}
	return packed, nil
}

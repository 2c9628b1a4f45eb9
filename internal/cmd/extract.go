package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/woodgrain/internal/archive"
	"github.com/MeKo-Tech/woodgrain/internal/encode"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Export textures from an archive",
	Long:  `Write the textures stored in an archive back to image files in --output-dir.`,
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("input", "i", "", "Archive file path (required)")
	extractCmd.Flags().StringSlice("name", nil, "Only extract these textures (repeatable)")
	extractCmd.Flags().Bool("force", false, "Overwrite files that already exist")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"extract.input", "input"},
		{"extract.names", "name"},
		{"extract.force", "force"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, extractCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	input := viper.GetString("extract.input")
	outputDir := viper.GetString("output-dir")

	if logger == nil {
		initLogging()
	}

	if input == "" {
		return fmt.Errorf("--input is required")
	}

	n, err := extractArchive(input, outputDir, viper.GetStringSlice("extract.names"), viper.GetBool("extract.force"), logger)
	if err != nil {
		return err
	}

	logger.Info("Extraction complete", "output_dir", outputDir, "textures", n)
	return nil
}

// extractArchive writes the named textures, or all of them when names is
// empty, to outputDir. It returns the number of files written.
func extractArchive(path, outputDir string, names []string, force bool, logger *slog.Logger) (int, error) {
	reader, err := archive.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive: %w", err)
	}
	defer reader.Close()

	if len(names) == 0 {
		entries, err := reader.List()
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			names = append(names, e.Name)
		}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	var written int
	for _, name := range names {
		e, err := reader.Get(name)
		if errors.Is(err, archive.ErrNotFound) {
			return written, err
		}
		if err != nil {
			return written, fmt.Errorf("failed to read texture %s: %w", name, err)
		}

		format, err := encode.ParseFormat(e.Format)
		if err != nil {
			return written, fmt.Errorf("texture %s: %w", name, err)
		}

		dst := filepath.Join(outputDir, e.Name+"."+format.Extension())
		if !force {
			if _, err := os.Stat(dst); err == nil {
				logger.Info("Texture already exists; skipping", "name", name, "path", dst)
				continue
			}
		}

		if err := os.WriteFile(dst, e.Data, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", dst, err)
		}
		logger.Debug("Texture extracted", "name", name, "path", dst, "seed", e.Seed)
		written++
	}

	return written, nil
}

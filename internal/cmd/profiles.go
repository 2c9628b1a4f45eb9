package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/MeKo-Tech/woodgrain/internal/wood"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List available color profiles",
	Long: `List the built-in color profiles and any declared in the config file.

Config profiles live under "profiles.<name>":

  profiles:
    oak:
      dark: "#5a3c1e"
      light: "#c8aa78"
      brightness: 10`,
	RunE: runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	profiles, err := loadProfiles(viper.GetViper())
	if err != nil {
		return err
	}
	writeProfiles(cmd.OutOrStdout(), profiles)
	return nil
}

// loadProfiles merges the presets with config-defined profiles. Config
// entries override presets of the same name.
func loadProfiles(v *viper.Viper) (map[string]wood.Profile, error) {
	profiles := wood.Presets()

	for name := range v.GetStringMap("profiles") {
		key := "profiles." + name
		p, err := wood.ParseProfile(v.GetInt(key+".brightness"), v.GetString(key+".dark"), v.GetString(key+".light"))
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		profiles[strings.ToLower(name)] = p
	}

	return profiles, nil
}

// resolveProfile looks up name among presets and config profiles.
func resolveProfile(v *viper.Viper, name string) (wood.Profile, string, error) {
	profiles, err := loadProfiles(v)
	if err != nil {
		return wood.Profile{}, "", err
	}
	key := strings.ToLower(strings.TrimSpace(name))
	p, ok := profiles[key]
	if !ok {
		return wood.Profile{}, "", fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(profileNames(profiles), ", "))
	}
	return p, key, nil
}

func profileNames(profiles map[string]wood.Profile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeProfiles(w io.Writer, profiles map[string]wood.Profile) {
	for _, name := range profileNames(profiles) {
		fmt.Fprintf(w, "%-12s %s\n", name, profiles[name])
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"

	"github.com/alanmeadows/land/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage land configuration",
	Long:  `Show and modify land configuration values.`,
}

var (
	configJSONFlag bool
	configTOMLFlag bool
)

func init() {
	configShowCmd.Flags().BoolVar(&configJSONFlag, "json", false, "Output raw JSON without formatting")
	configShowCmd.Flags().BoolVar(&configTOMLFlag, "toml", false, "Output TOML, the format accepted in .land/land.toml")
	configShowCmd.MarkFlagsMutuallyExclusive("json", "toml")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show merged configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if cfg == nil {
			var err error
			cfg, err = config.Load(config.RepoRoot())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		}

		// Redact secrets before display.
		redacted := redactConfig(cfg)

		var data []byte
		var err error
		switch {
		case configTOMLFlag:
			data, err = toml.Marshal(redacted)
		case configJSONFlag:
			data, err = json.Marshal(redacted)
		default:
			data, err = json.MarshalIndent(redacted, "", "  ")
		}
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// redactConfig returns a copy of the config with secret fields masked.
func redactConfig(cfg *config.Config) *config.Config {
	cp := *cfg
	if cp.GitHub.Token != "" {
		cp.GitHub.Token = "***"
	}
	return &cp
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Long: `Set a configuration value using a dotted key path.

The value is written to .land/land.jsonc in the repository root.
The file is created if it does not exist.

Note: JSONC comments are not preserved on write.`,
	Example: `  land config set merge.strategy squash
  land config set merge.delete_branch false
  land config set feedback.reviewers.-1 "sourcery-ai[bot]"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot := config.RepoRoot()
		if repoRoot == "" {
			return fmt.Errorf("not in a git repository")
		}

		path, err := setRepoConfigValue(repoRoot, args[0], parseConfigValue(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", args[0], args[1], path)
		return nil
	},
}

// parseConfigValue types a command-line value: bool, then number, then string.
func parseConfigValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// setRepoConfigValue writes key into the repo-level JSONC file and returns its path.
func setRepoConfigValue(repoRoot, key string, value any) (string, error) {
	configDir := filepath.Join(repoRoot, config.RepoConfigDir)
	repoConfigPath := filepath.Join(configDir, "land.jsonc")

	existing := []byte("{}")
	if data, err := os.ReadFile(repoConfigPath); err == nil {
		// sjson needs plain JSON.
		existing = jsonc.ToJSON(data)
	}

	updated, err := sjson.SetBytes(existing, key, value)
	if err != nil {
		return "", fmt.Errorf("setting key %q: %w", key, err)
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(repoConfigPath, updated, 0644); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return repoConfigPath, nil
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
)

// RepoConfigDir is the per-repository configuration directory.
const RepoConfigDir = ".land"

// Load reads and merges configuration from user-level and repo-level files.
// Resolution order: defaults -> user config (~/.config/land/land.jsonc) ->
// repo config (.land/land.jsonc, or .land/land.toml) -> environment.
// An empty repoRoot skips the repo-level file.
func Load(repoRoot string) (*Config, error) {
	userPath := ""
	if userDir, err := os.UserConfigDir(); err == nil {
		userPath = filepath.Join(userDir, "land", "land.jsonc")
	}
	return load(userPath, repoRoot)
}

func load(userPath, repoRoot string) (*Config, error) {
	cfg := DefaultConfig()

	if userPath != "" {
		userMap, err := loadJSONC(userPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if userMap != nil {
			if err := mergeIntoConfig(&cfg, userMap); err != nil {
				return nil, fmt.Errorf("merging user config: %w", err)
			}
		}
	}

	if repoRoot != "" {
		repoMap, err := loadRepoFile(repoRoot)
		if err != nil {
			return nil, err
		}
		if repoMap != nil {
			if err := mergeIntoConfig(&cfg, repoMap); err != nil {
				return nil, fmt.Errorf("merging repo config: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// loadRepoFile returns the repo-level config map. JSONC wins when both exist.
func loadRepoFile(repoRoot string) (map[string]any, error) {
	jsoncPath := filepath.Join(repoRoot, RepoConfigDir, "land.jsonc")
	m, err := loadJSONC(jsoncPath)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	tomlPath := filepath.Join(repoRoot, RepoConfigDir, "land.toml")
	m, err = loadTOML(tomlPath)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return nil, nil
}

// loadJSONC reads a JSONC file and returns it as a map.
func loadJSONC(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jsonData := jsonc.ToJSON(data)
	var m map[string]any
	if err := json.Unmarshal(jsonData, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// loadTOML reads a TOML file and returns it as a map.
func loadTOML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// mergeIntoConfig marshals the config to a map, deep-merges the source map over it,
// then unmarshals back to the Config struct.
func mergeIntoConfig(cfg *Config, src map[string]any) error {
	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var dst map[string]any
	if err := json.Unmarshal(cfgBytes, &dst); err != nil {
		return err
	}

	// src overrides dst; slices are replaced, not appended.
	if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
		return err
	}

	merged, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, cfg)
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("GH_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
	if apiURL := os.Getenv("LAND_GITHUB_API_URL"); apiURL != "" {
		cfg.GitHub.APIURL = apiURL
	}
	if strategy := os.Getenv("LAND_STRATEGY"); strategy != "" {
		cfg.Merge.Strategy = strings.ToLower(strategy)
	}
}

// findRepoRoot finds the git repository root via git rev-parse.
func findRepoRoot() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// RepoRoot returns the detected git repository root, or empty string if not in a repo.
func RepoRoot() string {
	return findRepoRoot()
}

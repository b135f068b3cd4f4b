package config

// Config is the top-level land configuration.
type Config struct {
	GitHub   GitHubConfig   `json:"github" toml:"github"`
	Merge    MergeConfig    `json:"merge" toml:"merge"`
	Feedback FeedbackConfig `json:"feedback" toml:"feedback"`
	Log      LogConfig      `json:"log" toml:"log"`
}

// GitHubConfig holds review platform credentials and endpoints.
type GitHubConfig struct {
	Token string `json:"token,omitempty" toml:"token,omitempty"`
	// APIURL points at a GitHub Enterprise REST root (e.g. https://ghe.example.com/api/v3/).
	// Empty means github.com.
	APIURL string `json:"api_url,omitempty" toml:"api_url,omitempty"`
}

// MergeConfig controls how pull requests are integrated.
type MergeConfig struct {
	Strategy     string `json:"strategy" toml:"strategy"`
	DeleteBranch *bool  `json:"delete_branch" toml:"delete_branch"`
	Remote       string `json:"remote" toml:"remote"`
}

// IsDeleteBranchEnabled returns whether the remote head branch is deleted on merge.
// Defaults to true when not explicitly set.
func (m MergeConfig) IsDeleteBranchEnabled() bool {
	if m.DeleteBranch == nil {
		return true
	}
	return *m.DeleteBranch
}

// FeedbackConfig controls automated-reviewer comment reconciliation.
type FeedbackConfig struct {
	Enabled          *bool    `json:"enabled" toml:"enabled"`
	Reviewers        []string `json:"reviewers" toml:"reviewers"`
	BlockingKeywords []string `json:"blocking_keywords" toml:"blocking_keywords"`
}

// IsEnabled returns whether feedback reconciliation runs. Defaults to true.
func (f FeedbackConfig) IsEnabled() bool {
	if f.Enabled == nil {
		return true
	}
	return *f.Enabled
}

// LogConfig selects the log encoding: "auto", "text" or "json".
type LogConfig struct {
	Format string `json:"format" toml:"format"`
}

// boolPtr returns a pointer to the given bool value.
func boolPtr(b bool) *bool {
	return &b
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Merge: MergeConfig{
			Strategy:     "merge",
			DeleteBranch: boolPtr(true),
			Remote:       "origin",
		},
		Feedback: FeedbackConfig{
			Enabled: boolPtr(true),
			Reviewers: []string{
				"coderabbitai[bot]",
				"copilot-pull-request-reviewer[bot]",
				"chatgpt-codex-connector[bot]",
				"claude[bot]",
				"gemini-code-assist[bot]",
			},
			BlockingKeywords: []string{
				"critical",
				"blocker",
				"blocking",
				"security",
				"vulnerability",
				"bug",
				"must",
				"breaking",
				"data loss",
			},
		},
		Log: LogConfig{
			Format: "auto",
		},
	}
}

// Package config carries the validated configuration surface of one
// invocation. Values are coalesced from these sources, in descending order
// of precedence:
//
//  1. command line flags.
//  2. the optional .benchwatch.toml file in the repository.
//  3. default fallbacks.
package config

import (
	"github.com/benchwatch/benchwatch/pkg/bench"
	"github.com/benchwatch/benchwatch/pkg/persist"
)

// InfluxConfig enables mirroring results into InfluxDB when an endpoint is
// set.
type InfluxConfig struct {
	Endpoint string `toml:"endpoint" mapstructure:"endpoint"`
	Database string `toml:"database" mapstructure:"database"`
}

// Config is the full configuration surface of a record invocation.
type Config struct {
	// Name of the benchmark suite the run belongs to.
	Name string `toml:"name" mapstructure:"name" validate:"required"`
	// Tool that produced the results; must be a member of bench.Tools.
	Tool string `toml:"tool" mapstructure:"tool" validate:"required"`
	// Input glob patterns of raw benchmark output files.
	Input []string `toml:"input" mapstructure:"input"`

	// AlertThreshold is the degradation ratio above which a metric is
	// reported; FailThreshold the ratio above which the build fails.
	// FailThreshold falls back to AlertThreshold and must not be smaller.
	AlertThreshold float64 `toml:"alert_threshold" mapstructure:"alert_threshold" validate:"gt=0"`
	FailThreshold  float64 `toml:"fail_threshold" mapstructure:"fail_threshold" validate:"omitempty,gtefield=AlertThreshold"`

	CommentAlways   bool `toml:"comment_always" mapstructure:"comment_always"`
	CommentOnAlert  bool `toml:"comment_on_alert" mapstructure:"comment_on_alert"`
	FailOnAlert     bool `toml:"fail_on_alert" mapstructure:"fail_on_alert"`
	AutoPush        bool `toml:"auto_push" mapstructure:"auto_push"`
	SkipFetch       bool `toml:"skip_fetch" mapstructure:"skip_fetch"`
	SaveDataFile    bool `toml:"save_data_file" mapstructure:"save_data_file"`
	CompareWithBest bool `toml:"compare_with_best" mapstructure:"compare_with_best"`

	// MaxItems bounds the runs retained per suite; 0 keeps everything.
	MaxItems int `toml:"max_items" mapstructure:"max_items" validate:"gte=0"`
	// MaxRetries bounds the push-rejection retry loop.
	MaxRetries int `toml:"max_retries" mapstructure:"max_retries" validate:"gte=1"`

	// Branch is the shared data branch; DataPath the data file's path on
	// it, relative to the worktree root.
	Branch   string `toml:"branch" mapstructure:"branch"`
	DataPath string `toml:"data_path" mapstructure:"data_path"`

	// ExternalDataFile selects the local-file backend over the
	// shared-branch backend.
	ExternalDataFile string `toml:"external_data_file" mapstructure:"external_data_file"`

	// AlertCC lists accounts to mention in alert comments.
	AlertCC []string `toml:"alert_cc" mapstructure:"alert_cc"`
	// Footer is appended to every rendered report body.
	Footer string `toml:"footer" mapstructure:"footer"`

	// GitHubToken authenticates pushes to private remotes and comment
	// posting. Usually supplied through the GITHUB_TOKEN environment
	// variable rather than the file.
	GitHubToken string `toml:"-" mapstructure:"github_token"`

	// RepoDir is the local clone the run was measured in.
	RepoDir string `toml:"repo_dir" mapstructure:"repo_dir"`

	Influx InfluxConfig `toml:"influx" mapstructure:"influx"`
}

// Default returns the fallback configuration.
func Default() Config {
	return Config{
		AlertThreshold: 2,
		MaxRetries:     persist.DefaultMaxRetries,
		Branch:         "benchmark-data",
		DataPath:       "data.js",
		RepoDir:        ".",
	}
}

// BenchTool returns the tool as its typed form. Only meaningful after
// Validate passed.
func (c *Config) BenchTool() bench.Tool {
	return bench.Tool(c.Tool)
}

// UseLocalFile reports whether the local-file backend is selected.
func (c *Config) UseLocalFile() bool {
	return c.ExternalDataFile != ""
}

package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/imdario/mergo"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/benchwatch/benchwatch/pkg/logging"
)

// FileName is the optional per-repository configuration file.
const FileName = ".benchwatch.toml"

var validate = validator.New()

// Load assembles a Config from the repository file and the flag overrides,
// applying defaults underneath, and validates the result. overrides holds
// only the flags the user actually set, keyed by their mapstructure names.
func Load(repoDir string, overrides map[string]interface{}) (*Config, error) {
	c := &Config{}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(overrides); err != nil {
		return nil, errors.Wrap(err, "unable to decode flag overrides")
	}

	path := filepath.Join(repoDir, FileName)
	if _, err := os.Stat(path); err == nil {
		var fromFile Config
		if _, err := toml.DecodeFile(path, &fromFile); err != nil {
			return nil, errors.Wrapf(err, "found %s but failed to parse it", path)
		}
		// flags win over the file.
		if err := mergo.Merge(c, fromFile); err != nil {
			return nil, err
		}
		logging.S().Debugw("configuration file loaded", "path", path)
	}

	if err := mergo.Merge(c, Default()); err != nil {
		return nil, err
	}
	if c.FailThreshold == 0 {
		c.FailThreshold = c.AlertThreshold
	}
	if c.GitHubToken == "" {
		c.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate enforces the structural rules and the cross-flag contracts.
func (c *Config) Validate() error {
	var merr *multierror.Error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				merr = multierror.Append(merr, errors.Errorf(
					"invalid configuration value for %s: failed %q", fe.Field(), fe.Tag()))
			}
		} else {
			merr = multierror.Append(merr, err)
		}
	}

	if c.Tool != "" && !c.BenchTool().Valid() {
		merr = multierror.Append(merr, errors.Errorf("unknown tool %q", c.Tool))
	}

	// Features that require a token fail now, naming the flag, rather than
	// half way through the run.
	if c.GitHubToken == "" {
		switch {
		case c.CommentAlways:
			merr = multierror.Append(merr, errors.New("comment-always requires a GitHub token (set GITHUB_TOKEN)"))
		case c.CommentOnAlert:
			merr = multierror.Append(merr, errors.New("comment-on-alert requires a GitHub token (set GITHUB_TOKEN)"))
		}
	}

	return merr.ErrorOrNil()
}

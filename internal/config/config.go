// Package config loads tracker settings from an optional shoptrack.yaml
// plus SHOPTRACK_* environment overrides, and knows how branch names map
// to file paths inside the shared base folder.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultBaseFolder is where the workshop CSVs have always lived. Every
// deployment overrides it; the fallback keeps a bare binary pointed at
// the same place the legacy tool was.
const DefaultBaseFolder = `S:\Public\DesignData`

// DefaultBranch is used when no branch is configured or given.
const DefaultBranch = "headoffice"

// Config holds the tracker's settings.
type Config struct {
	// BaseFolder is the shared folder all branch CSVs live in.
	BaseFolder string `mapstructure:"base_folder"`

	// Branch is the default branch for sessions.
	Branch string `mapstructure:"branch"`

	// User is the default identity stamped into LAST USER.
	User string `mapstructure:"user"`

	// Debounce is the reload debounce window for watch mode.
	Debounce time.Duration `mapstructure:"debounce"`

	// LogFile, when set, sends logs to a rotated file instead of stderr.
	LogFile string `mapstructure:"log_file"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseFolder: DefaultBaseFolder,
		Branch:     DefaultBranch,
		Debounce:   time.Second,
	}
}

// Load reads the config file at path, or searches the working directory
// for shoptrack.yaml when path is empty. A missing file is fine: built-in
// defaults plus environment overrides apply.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("base_folder", DefaultBaseFolder)
	v.SetDefault("branch", DefaultBranch)
	v.SetDefault("user", "")
	v.SetDefault("debounce", time.Second)
	v.SetDefault("log_file", "")

	v.SetEnvPrefix("SHOPTRACK")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("shoptrack")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return cfg, nil
}

// normBranch falls back to the default branch for empty names.
func normBranch(branch string) string {
	if strings.TrimSpace(branch) == "" {
		return DefaultBranch
	}
	return branch
}

// OpenCSVPath returns the open-works file for a branch,
// e.g. headoffice -> <base>/headofficeopen.csv.
func (c Config) OpenCSVPath(branch string) string {
	return filepath.Join(c.BaseFolder, normBranch(branch)+"open.csv")
}

// ClosedCSVPath returns the closed-works file for a branch.
func (c Config) ClosedCSVPath(branch string) string {
	return filepath.Join(c.BaseFolder, normBranch(branch)+"closed.csv")
}

// UsersCSVPath returns the user directory file in the base folder.
func (c Config) UsersCSVPath() string {
	return filepath.Join(c.BaseFolder, "users.csv")
}

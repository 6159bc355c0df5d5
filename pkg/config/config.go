package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/samber/oops"

	"github.com/aquasecurity/vulner/pkg/log"
)

const (
	Version  = 0
	fileName = "vulner.toml"
)

type Config struct {
	Version        int     `toml:"version"`
	ScanResultsDir string  `toml:"scan_results_dir"`
	APIKeys        APIKeys `toml:"api_keys"`

	// Workers is the matcher parallelism, 0 means one per CPU.
	Workers int `toml:"workers,omitempty"`

	// AliasFile holds extra "<package>: <vendor>:<product>" entries.
	AliasFile string `toml:"alias_file,omitempty"`
}

type APIKeys struct {
	NVDAPIKey string `toml:"nvd_api_key"`
}

// Default is used when no config file exists.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return Config{
		Version:        Version,
		ScanResultsDir: filepath.Join(home, "vulner", "scan-results"),
	}
}

// Path is <user config dir>/vulner/vulner.toml.
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "vulner", fileName)
}

// Load decodes the file over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, &cfg); errors.Is(err, fs.ErrNotExist) {
		log.Debug("No config file, using defaults", log.FilePath(path))
		return cfg, nil
	} else if err != nil {
		return Config{}, oops.With("file_path", path).Wrapf(err, "config decode error")
	}

	log.Debug("Loaded config", log.FilePath(path))
	return cfg, nil
}

// Save writes the config, creating the directory.
func Save(path string, cfg Config) error {
	eb := oops.With("file_path", path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return eb.Wrapf(err, "mkdir error")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return eb.Wrapf(err, "file create error")
	}
	defer f.Close()

	if err = toml.NewEncoder(f).Encode(cfg); err != nil {
		return eb.Wrapf(err, "toml encode error")
	}
	return nil
}

// NVDAPIKey picks the key from the flag or environment first, then the file. Empty means none.
func (c Config) NVDAPIKey(fromEnv string) string {
	if fromEnv != "" {
		return fromEnv
	}
	return c.APIKeys.NVDAPIKey
}

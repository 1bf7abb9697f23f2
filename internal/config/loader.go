package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".telephasma"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the YAML shape of the configuration file. All fields are
// optional; unset fields keep their defaults or CLI-flag values.
type File struct {
	Addr           string   `yaml:"addr"`
	APIID          int      `yaml:"api_id"`
	APIHash        string   `yaml:"api_hash"`
	Phone          string   `yaml:"phone"`
	DBDir          string   `yaml:"db_dir"`
	SessionDir     string   `yaml:"session_dir"`
	DelayMS        int      `yaml:"delay_ms"`
	Depth          *int     `yaml:"depth"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoadConfigFile loads configuration overrides from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// Apply merges file values into the config. File values win over defaults
// but only when actually set.
func (c *Config) Apply(cf *File) {
	if cf == nil {
		return
	}
	if cf.Addr != "" {
		c.Addr = cf.Addr
	}
	if cf.APIID != 0 {
		c.APIID = cf.APIID
	}
	if cf.APIHash != "" {
		c.APIHash = cf.APIHash
	}
	if cf.Phone != "" {
		c.Phone = cf.Phone
	}
	if cf.DBDir != "" {
		c.DBDir = cf.DBDir
	}
	if cf.SessionDir != "" {
		c.SessionDir = cf.SessionDir
	}
	if cf.DelayMS != 0 {
		c.Delay = time.Duration(cf.DelayMS) * time.Millisecond
	}
	if cf.Depth != nil {
		c.Depth = *cf.Depth
	}
	if len(cf.AllowedOrigins) > 0 {
		c.AllowedOrigins = cf.AllowedOrigins
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .telephasma in the current directory
// 3. Look for .telephasma in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// DefaultAPIBaseURL is the backend base URL baked in at build time:
//
//	go build -ldflags "-X github.com/fmuoria/apply-portal/internal/config.DefaultAPIBaseURL=https://api.example.com"
var DefaultAPIBaseURL = ""

const envPrefix = "APPLY_PORTAL"

// Config holds application configuration
type Config struct {
	APIBaseURL string `mapstructure:"api_base_url" json:"api_base_url"`
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	JSONLogs   bool   `mapstructure:"json_logs" json:"json_logs"`
}

// DefaultConfig returns a new config with default values
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL: DefaultAPIBaseURL,
		ListenAddr: ":8080",
	}
}

// GetConfigPath returns the path to the configuration file
// On Windows: %APPDATA%/ApplyPortal/config.json
// On Unix: ~/.config/ApplyPortal/config.json
func GetConfigPath() (string, error) {
	var configDir string

	if os.Getenv("APPDATA") != "" {
		configDir = filepath.Join(os.Getenv("APPDATA"), "ApplyPortal")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to get user home directory")
		}
		configDir = filepath.Join(homeDir, ".config", "ApplyPortal")
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load loads configuration from the default config path and the environment
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadFrom(configPath)
}

// LoadFrom loads configuration from a specific path. A missing file is not
// an error; environment variables override whatever the file says.
func LoadFrom(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "failed to parse config file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	config.APIBaseURL = strings.TrimSpace(config.APIBaseURL)

	return config, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("api_base_url", defaults.APIBaseURL)
	v.SetDefault("listen_addr", defaults.ListenAddr)
	v.SetDefault("json_logs", defaults.JSONLogs)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// API_BASE_URL is accepted for parity with the old frontend build setting.
	_ = v.BindEnv("api_base_url", envPrefix+"_API_BASE_URL", "API_BASE_URL")

	return v
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return ValidateBaseURL(c.APIBaseURL)
}

// ValidateBaseURL checks that raw is an absolute http(s) URL
func ValidateBaseURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.WithHint(errors.New("api_base_url is required"),
			"set APPLY_PORTAL_API_BASE_URL or pass --base-url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, "invalid api_base_url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf("api_base_url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.Newf("api_base_url %q has no host", raw)
	}

	return nil
}

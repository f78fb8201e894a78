package qsdk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	BaseURL           string        `mapstructure:"baseUrl"`
	Timeout           time.Duration `mapstructure:"timeout"`
	CacheTTL          time.Duration `mapstructure:"cacheTTL"`
	PredictionTimeout time.Duration `mapstructure:"predictionTimeout"`
	PollInterval      time.Duration `mapstructure:"pollInterval"`
	TokenFile         string        `mapstructure:"tokenFile"`

	v *viper.Viper // instance-specific viper
}

const (
	EnvPrefix  = "QGEN"
	ConfigName = "qgen"
	ConfigRoot = ".qgen"

	BaseUrlKey           = "baseUrl"
	TimeoutKey           = "timeout"
	CacheTTLKey          = "cacheTTL"
	PredictionTimeoutKey = "predictionTimeout"
	PollIntervalKey      = "pollInterval"
	TokenFileKey         = "tokenFile"

	DefaultBaseURL = "https://api.replicate.com/v1"
)

// LoadConfig creates a new Config instance with its own viper
// This is the only way to load config (no global state)
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		// Project config (tracked)
		for _, name := range []string{"qgen.yaml", "qgen.yml", ".qgen.yaml"} {
			if _, err := os.Stat(name); err == nil {
				v.SetConfigFile(name)
				if err := v.ReadInConfig(); err == nil {
					break
				}
			}
		}

		// Local overrides (untracked)
		localConfigPath := filepath.Join(ConfigRoot, "config.yaml")
		if _, err := os.Stat(localConfigPath); err == nil {
			v.SetConfigFile(localConfigPath)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merging local config: %w", err)
			}
		}
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.v = v
	return &cfg, nil
}

// Get returns a value from the underlying viper instance
func (c *Config) Get(key string) interface{} {
	if c.v == nil {
		return nil
	}
	return c.v.Get(key)
}

// GetString returns a string value from the underlying viper instance
func (c *Config) GetString(key string) string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

// Viper returns the underlying viper instance, for flag binding.
func (c *Config) Viper() *viper.Viper {
	return c.v
}

func setDefaults(v *viper.Viper) {
	if !v.IsSet(BaseUrlKey) {
		v.SetDefault(BaseUrlKey, DefaultBaseURL)
	} else {
		normalized := strings.TrimRight(v.GetString(BaseUrlKey), "/")
		v.Set(BaseUrlKey, normalized)
	}

	v.SetDefault(TimeoutKey, 300*time.Second)
	v.SetDefault(CacheTTLKey, time.Hour)
	v.SetDefault(PredictionTimeoutKey, 300*time.Second)
	v.SetDefault(PollIntervalKey, 2*time.Second)
	v.SetDefault(TokenFileKey, DefaultTokenFile())
}

// ConfigFileUsed returns the config file that was used (if any)
func (c *Config) ConfigFileUsed() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// DefaultTokenFile is config.json under the user's config directory, falling
// back to the working directory when no such directory is known.
func DefaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(dir, ConfigName, "config.json")
}

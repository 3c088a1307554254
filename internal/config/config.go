// Package config loads fleetdeck configuration from file, environment, and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level fleetdeck configuration.
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Narration NarrationConfig `mapstructure:"narration"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Fleet     FleetConfig     `mapstructure:"fleet"`
	Tour      TourConfig      `mapstructure:"tour"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

// NarrationConfig configures the speech synthesis pipeline.
type NarrationConfig struct {
	// ServiceURL is the base URL of the narration synthesis service.
	ServiceURL string `mapstructure:"service_url"`

	// Voice is the default narrator voice identifier.
	Voice string `mapstructure:"voice"`

	// UserVoice is the voice used for simulated spoken user queries.
	UserVoice string `mapstructure:"user_voice"`

	// CacheDir holds content-addressed synthesized audio across runs.
	CacheDir string `mapstructure:"cache_dir"`

	// LocalEngine is the fallback command used when the service is
	// unreachable (e.g. "say" on macOS, "espeak-ng" elsewhere).
	LocalEngine string `mapstructure:"local_engine"`

	// RequestTimeout bounds a single synthesis request.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ChatConfig configures the AI chat backend client.
type ChatConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// FleetConfig configures the telematics backend client and local cache.
type FleetConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// CachePath is the sqlite database used for the analytical cache.
	CachePath string `mapstructure:"cache_path"`
}

// TourConfig overrides demo-tour pacing.
type TourConfig struct {
	// PollInterval is the completion-predicate polling cadence.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// WaitTimeout bounds any single completion wait.
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`

	// TypeCadence is the typewriter reveal pace per character.
	TypeCadence time.Duration `mapstructure:"type_cadence"`

	// Autoplay starts the builtin tour as soon as the daemon is up.
	Autoplay bool `mapstructure:"autoplay"`
}

// HTTPConfig configures the dashboard-facing HTTP API.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from the given file (optional), the environment
// (FLEETDECK_ prefix), and built-in defaults, in that precedence order.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("FLEETDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("fleetdeck")
		v.SetConfigType("yaml")
		for _, dir := range searchPaths() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("narration.service_url", "http://127.0.0.1:8800")
	v.SetDefault("narration.voice", "aria")
	v.SetDefault("narration.user_voice", "guy")
	v.SetDefault("narration.cache_dir", defaultCacheDir())
	v.SetDefault("narration.local_engine", "")
	v.SetDefault("narration.request_timeout", 10*time.Second)

	v.SetDefault("chat.base_url", "http://127.0.0.1:8810")
	v.SetDefault("chat.request_timeout", 60*time.Second)

	v.SetDefault("fleet.base_url", "http://127.0.0.1:8820")
	v.SetDefault("fleet.request_timeout", 15*time.Second)
	v.SetDefault("fleet.cache_path", filepath.Join(defaultCacheDir(), "fleet_cache.db"))

	v.SetDefault("tour.poll_interval", time.Second)
	v.SetDefault("tour.wait_timeout", 45*time.Second)
	v.SetDefault("tour.type_cadence", 40*time.Millisecond)
	v.SetDefault("tour.autoplay", false)

	v.SetDefault("http.addr", "127.0.0.1:8880")
}

func searchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "fleetdeck"))
	}
	return paths
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "fleetdeck")
	}
	return ".fleetdeck-cache"
}

package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ScrapeConfig configures the member directory scraper.
type ScrapeConfig struct {
	ListingURL        string  `yaml:"listing_url" mapstructure:"listing_url"`
	ProfilePrefix     string  `yaml:"profile_prefix" mapstructure:"profile_prefix"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// GeocodeConfig configures the city suggestion lookup.
type GeocodeConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Cache             bool    `yaml:"cache" mapstructure:"cache"`
}

// DatasetConfig holds the persisted dataset locations.
type DatasetConfig struct {
	InputPath  string `yaml:"input_path" mapstructure:"input_path"`
	OutputPath string `yaml:"output_path" mapstructure:"output_path"`
}

// StoreConfig configures the run history / geocode cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP read layer.
type ServerConfig struct {
	Port        int       `yaml:"port" mapstructure:"port"`
	DataPath    string    `yaml:"data_path" mapstructure:"data_path"`
	CORSOrigins []string  `yaml:"cors_origins" mapstructure:"cors_origins"`
	Map         MapConfig `yaml:"map" mapstructure:"map"`
}

// MapConfig holds the rendering options sent with the marker set.
type MapConfig struct {
	Cluster     bool   `yaml:"cluster" mapstructure:"cluster"`
	ShowTooltip bool   `yaml:"show_tooltip" mapstructure:"show_tooltip"`
	ShowPopup   bool   `yaml:"show_popup" mapstructure:"show_popup"`
	IconURL     string `yaml:"icon_url" mapstructure:"icon_url"`
	ShadowURL   string `yaml:"shadow_url" mapstructure:"shadow_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLONEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("scrape.listing_url", "https://plone.org/foundation/members")
	v.SetDefault("scrape.profile_prefix", "https://plone.org/foundation/members/active-members")
	v.SetDefault("scrape.user_agent", "plonemap/1.0")
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("scrape.max_attempts", 1)
	v.SetDefault("scrape.requests_per_second", 5)
	v.SetDefault("scrape.concurrency", 1)
	v.SetDefault("geocode.base_url", "https://geosuggest.herokuapp.com")
	v.SetDefault("geocode.requests_per_second", 5)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("geocode.cache", false)
	v.SetDefault("dataset.input_path", "members.json")
	v.SetDefault("dataset.output_path", "newmembers.json")
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "plonemap.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_path", "members.json")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.map.cluster", true)
	v.SetDefault("server.map.show_tooltip", true)
	v.SetDefault("server.map.show_popup", true)
	v.SetDefault("server.map.icon_url", "https://unpkg.com/leaflet@1.6.0/dist/images/marker-icon.png")
	v.SetDefault("server.map.shadow_url", "https://unpkg.com/leaflet@1.6.0/dist/images/marker-shadow.png")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings the given mode depends on and reports every
// problem at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "scrape":
		if c.Scrape.ListingURL == "" {
			problems = append(problems, "scrape.listing_url is required")
		}
		if c.Geocode.BaseURL == "" {
			problems = append(problems, "geocode.base_url is required")
		}
		if c.Dataset.OutputPath == "" {
			problems = append(problems, "dataset.output_path is required")
		} else if c.Dataset.InputPath == c.Dataset.OutputPath {
			problems = append(problems, "dataset.output_path must differ from dataset.input_path")
		}
		if c.Scrape.Concurrency < 1 || c.Scrape.Concurrency > 16 {
			problems = append(problems, "scrape.concurrency must be between 1 and 16")
		}
		if c.Scrape.MaxAttempts < 1 {
			problems = append(problems, "scrape.max_attempts must be >= 1")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.DataPath == "" {
			problems = append(problems, "server.data_path is required")
		}
	case "query", "export":
		if c.Server.DataPath == "" {
			problems = append(problems, "server.data_path is required")
		}
	case "runs":
		if c.Store.Driver == "none" {
			problems = append(problems, "store.driver must be sqlite or postgres to list runs")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "none", "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not one of none, sqlite, postgres", c.Store.Driver))
	}
	if c.Store.Driver != "none" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Package config loads and validates regsync configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Registry  RegistryConfig  `mapstructure:"registry"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	DB        DBConfig        `mapstructure:"db"`
	Search    SearchConfig    `mapstructure:"search"`
	Citations CitationsConfig `mapstructure:"citations"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RegistryConfig controls access to the Federal Register API.
type RegistryConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
}

// ArchiveConfig sets the root of the on-disk artifact layout.
type ArchiveConfig struct {
	Dir string `mapstructure:"dir"`
}

// DBConfig controls the regulation store connection.
type DBConfig struct {
	Provider string `mapstructure:"provider"` // "postgres" or "noop"
	DSN      string `mapstructure:"dsn"`
}

// SearchConfig controls the search index writes.
type SearchConfig struct {
	Host      string `mapstructure:"host"`
	APIKey    string `mapstructure:"api_key"`
	Index     string `mapstructure:"index"`
	BatchSize int    `mapstructure:"batch_size"`
}

// CitationsConfig points at the external citation-extraction service.
type CitationsConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Options captures the per-run knobs of one sync invocation. They arrive as
// CLI flags rather than from the config file.
type Options struct {
	// DocumentNumber limits the run to a single document.
	DocumentNumber string
	// ArticleType limits published-article runs to one registry type
	// (rule, prorule, notice). Empty means all three.
	ArticleType string
	// PublicInspection switches the run to the current public-inspection set.
	PublicInspection bool
	// Year and Month select a windowed sweep; Month without Year does nothing.
	Year  int
	Month int
	// Days is the default-mode lookback window. Zero means 7.
	Days int
	// Limit truncates the target list after deduplication.
	Limit int
	// Cache enables the on-disk cache for per-document detail fetches.
	// Search and listing calls are never cached.
	Cache bool
	// SkipText skips full-text extraction, citations, and indexing.
	SkipText bool
	// Debug enables verbose tracing.
	Debug bool
}

// ArticleTypes resolves the registry type conditions for this run.
func (o Options) ArticleTypes() []string {
	if o.ArticleType != "" {
		return []string{strings.ToUpper(o.ArticleType)}
	}
	return []string{"PRORULE", "RULE", "NOTICE"}
}

// LookbackDays returns Days with the default applied.
func (o Options) LookbackDays() int {
	if o.Days <= 0 {
		return 7
	}
	return o.Days
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("registry.base_url", "https://www.federalregister.gov/api/v1")
	v.SetDefault("registry.user_agent", "regsync/1.0 (+https://github.com/openregs/regsync)")
	v.SetDefault("registry.timeout_seconds", 30)
	v.SetDefault("registry.max_retries", 2)
	v.SetDefault("archive.dir", "data/federalregister")
	v.SetDefault("db.provider", "postgres")
	v.SetDefault("search.index", "regulations")
	v.SetDefault("search.batch_size", 50)
	v.SetDefault("citations.timeout_seconds", 30)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Registry.BaseURL == "" {
		return fmt.Errorf("registry.base_url must be set")
	}
	if c.Registry.TimeoutSeconds <= 0 {
		return fmt.Errorf("registry.timeout_seconds must be > 0")
	}
	if c.Archive.Dir == "" {
		return fmt.Errorf("archive.dir must be set")
	}
	if c.DB.Provider == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db.provider is postgres")
	}
	if c.Search.Host != "" && c.Search.Index == "" {
		return fmt.Errorf("search.index must be set when search.host is set")
	}
	if c.Search.BatchSize <= 0 {
		return fmt.Errorf("search.batch_size must be > 0")
	}
	return nil
}

// RequestTimeout converts the registry timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Registry.TimeoutSeconds) * time.Second
}

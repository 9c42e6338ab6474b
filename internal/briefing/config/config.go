package config

import (
	"golang-market-briefing/internal/briefing/policy"
	"golang-market-briefing/pkg/config"
)

// FeedSource describes one RSS feed a collector polls.
type FeedSource struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Category string `mapstructure:"category"`
	Enabled  bool   `mapstructure:"enabled"`
	// FetchExcerpt controls whether the collector downloads the article body
	// to extract a text excerpt for keyword matching.
	FetchExcerpt bool `mapstructure:"fetch_excerpt"`
}

// Briefing holds pipeline-level settings shared by all variants.
type Briefing struct {
	// DedupBackend selects the dedup store implementation: "file" or "redis".
	DedupBackend string `mapstructure:"dedup_backend"`
	CacheFile    string `mapstructure:"cache_file"`
	// ArchiveEnabled persists delivered items to postgres for the weekly recap.
	ArchiveEnabled bool `mapstructure:"archive_enabled"`
	// HintsEnabled turns the Gemini hint provider on. Hints are advisory;
	// runs proceed without them on any failure.
	HintsEnabled bool         `mapstructure:"hints_enabled"`
	Feeds        []FeedSource `mapstructure:"feeds"`
}

// Variant binds a schedule to a policy. Each cron trigger runs the same
// pipeline with its own policy instance.
type Variant struct {
	Cron   string        `mapstructure:"cron"`
	Policy policy.Policy `mapstructure:"policy"`
}

// Config holds the full configuration for the briefing service.
type Config struct {
	App      config.App      `mapstructure:"app"`
	Logger   config.Logger   `mapstructure:"logger"`
	Database config.Database `mapstructure:"database"`
	Redis    config.Redis    `mapstructure:"redis"`
	API      config.API      `mapstructure:"api"`
	Telegram config.Telegram `mapstructure:"telegram"`
	Gemini   config.Gemini   `mapstructure:"gemini"`
	Briefing Briefing        `mapstructure:"briefing"`
	Variants []Variant       `mapstructure:"variants"`
}

// Load loads the briefing configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// VariantByName returns the named variant, or nil when it does not exist.
func (c *Config) VariantByName(name string) *Variant {
	for i := range c.Variants {
		if c.Variants[i].Policy.Variant == name {
			return &c.Variants[i]
		}
	}
	return nil
}

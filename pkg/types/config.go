// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by every adapter.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout for search calls. Zero means no
	// client timeout; landing-page scrapes on SSRN always use ScrapeTimeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// HarvestConfig holds settings for one harvest run.
type HarvestConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Keywords are the search terms sent to every source.
	Keywords []string `json:"keywords" yaml:"keywords" mapstructure:"keywords"`

	// KeywordsFile is a YAML file supplying Keywords when none are given.
	KeywordsFile string `json:"keywords_file,omitempty" yaml:"keywords_file,omitempty" mapstructure:"keywords_file"`

	// MaxArticles is the total record budget split across sources (default 100).
	MaxArticles int `json:"max_articles" yaml:"max_articles" mapstructure:"max_articles"`

	// LoadFullAbstract enables landing-page scraping on NBER and SSRN.
	LoadFullAbstract bool `json:"load_full_abstract" yaml:"load_full_abstract" mapstructure:"load_full_abstract"`

	// OutputPath is the JSON artifact path or directory. Empty disables persistence.
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty" mapstructure:"output_path"`

	// CatalogPath is an optional SQLite catalog that receives every record.
	CatalogPath string `json:"catalog_path,omitempty" yaml:"catalog_path,omitempty" mapstructure:"catalog_path"`

	// ScrapeTimeout bounds a single SSRN landing-page request (default 30s).
	ScrapeTimeout time.Duration `json:"scrape_timeout" yaml:"scrape_timeout" mapstructure:"scrape_timeout"`

	// RateLimitPerHost caps requests per second to any single host. Zero
	// disables the shared limiter.
	RateLimitPerHost float64 `json:"rate_limit_per_host" yaml:"rate_limit_per_host" mapstructure:"rate_limit_per_host"`

	// RateBurst is the limiter burst size (default 1).
	RateBurst int `json:"rate_burst" yaml:"rate_burst" mapstructure:"rate_burst"`

	// RespectRobots consults robots.txt before scraping a landing page.
	RespectRobots bool `json:"respect_robots" yaml:"respect_robots" mapstructure:"respect_robots"`

	// ScrapeCacheTTL keeps extracted landing-page data in memory. Zero disables.
	ScrapeCacheTTL time.Duration `json:"scrape_cache_ttl" yaml:"scrape_cache_ttl" mapstructure:"scrape_cache_ttl"`

	// SSRNCookie is the Cookie header sent with SSRN landing-page requests.
	SSRNCookie string `json:"-" yaml:"-" mapstructure:"ssrn_cookie"`
}

package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("BOOKHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("BOOKHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "bookhub"
	}

	duration := 24 * time.Hour
	if ttl := os.Getenv("BOOKHUB_JWT_TTL_HOURS"); ttl != "" {
		if hours, err := strconv.Atoi(ttl); err == nil && hours > 0 {
			duration = time.Duration(hours) * time.Hour
		}
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: duration,
	}
}

// CrawlConfig tunes the crawl engine. The exclusion-marker list is
// versioned so changes to matching behavior are traceable across stored
// search history.
type CrawlConfig struct {
	Version           int      `yaml:"version"`
	AdapterTimeoutSec int      `yaml:"adapter_timeout_sec"`
	MinMatchScore     float64  `yaml:"min_match_score"`
	ExclusionMarkers  []string `yaml:"exclusion_markers"`
	UserAgent         string   `yaml:"user_agent"`
	AladinTTBKey      string   `yaml:"aladin_ttb_key"`
	DisabledPlatforms []string `yaml:"disabled_platforms"`
}

func (c CrawlConfig) AdapterTimeout() time.Duration {
	if c.AdapterTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.AdapterTimeoutSec) * time.Second
}

func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		Version:           1,
		AdapterTimeoutSec: 30,
		MinMatchScore:     0.5,
		ExclusionMarkers: []string{
			"세트", "에디션", "전집", "박스세트", "합본", "edition", "box set",
		},
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// LoadCrawlConfig reads the YAML config named by BOOKHUB_CRAWL_CONFIG,
// falling back to defaults when unset or missing. ALADIN_TTB_KEY always
// overrides the file value.
func LoadCrawlConfig() (CrawlConfig, error) {
	cfg := DefaultCrawlConfig()

	if path := os.Getenv("BOOKHUB_CRAWL_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read crawl config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse crawl config: %w", err)
		}
	}

	if key := os.Getenv("ALADIN_TTB_KEY"); key != "" {
		cfg.AladinTTBKey = key
	}
	return cfg, nil
}

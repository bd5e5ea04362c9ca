// Package config loads the policy knobs chatgate enforces at runtime.
//
// Required secrets and deployment wiring (SERVER_SECRET, REDIS_URL, PORT,
// ALLOWED_ORIGIN, OPENAI_API_KEY) come from the environment; everything that
// is a tunable threshold lives in a YAML policy file so operators can adjust
// quotas without a redeploy.
package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// RateLimits holds the sliding-window quotas for the three tracked actions.
type RateLimits struct {
	PostWindowSeconds   int `yaml:"post_window_seconds"`
	PostMax             int `yaml:"post_max"`
	RevealWindowSeconds int `yaml:"reveal_window_seconds"`
	RevealMax           int `yaml:"reveal_max"`
	BurstWindowSeconds  int `yaml:"burst_window_seconds"`
	BurstMax            int `yaml:"burst_max"`
	IPBlockSeconds      int `yaml:"ip_block_seconds"`
}

// BurstProfile governs the endpoint fan-out detector.
type BurstProfile struct {
	WindowMillis    int `yaml:"window_millis"`
	EndpointThresh  int `yaml:"endpoint_threshold"`
	KeyTTLSeconds   int `yaml:"key_ttl_seconds"`
}

// Shadowban governs violation escalation.
type Shadowban struct {
	ViolationThreshold  int64 `yaml:"violation_threshold"`
	ViolationTTLSeconds int   `yaml:"violation_ttl_seconds"`
	AutoBanSeconds      int   `yaml:"auto_ban_seconds"`
}

// Reputation governs per-IP risk escalation from unique reports.
type Reputation struct {
	ReportTTLSeconds int `yaml:"report_ttl_seconds"`
}

// Moderation governs the content and relevance checks.
type Moderation struct {
	KeywordDensityMin  float64 `yaml:"keyword_density_min"`
	MaxURLs            int     `yaml:"max_urls"`
	OpenAITimeoutMillis int    `yaml:"openai_timeout_millis"`
}

// Message governs retention and size limits for posted content.
type Message struct {
	MaxLength  int `yaml:"max_length"`
	TTLSeconds int `yaml:"ttl_seconds"`
}

// Reports governs the abuse-report pipeline thresholds. A message author's
// reported-fingerprint shadowban past ShadowbanThreshold is always
// permanent, matching spec section 4.9 step 7.
type Reports struct {
	ShadowbanThreshold int64 `yaml:"shadowban_threshold"`
	DeleteThreshold    int64 `yaml:"delete_threshold"`
}

// GovernorRate governs the in-process per-IP token bucket.
type GovernorRate struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type Config struct {
	RateLimits RateLimits   `yaml:"rate_limits"`
	Burst      BurstProfile `yaml:"burst"`
	Shadowban  Shadowban    `yaml:"shadowban"`
	Reputation Reputation   `yaml:"reputation"`
	Moderation Moderation   `yaml:"moderation"`
	Message    Message      `yaml:"message"`
	Reports    Reports      `yaml:"reports"`
	Governor   GovernorRate `yaml:"governor"`
}

// Load reads the YAML policy file named by CHATGATE_CONFIG (default
// configs/policies.yaml), following the teacher's koanf+yaml+file pattern.
func Load() (*Config, error) {
	path := os.Getenv("CHATGATE_CONFIG")
	if path == "" {
		path = "configs/policies.yaml"
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load policy config %s: %w", path, err)
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("unmarshal policy config: %w", err)
	}
	return &cfg, nil
}

func MustEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// RequireEnv reads a required environment variable, returning an error that
// is fatal at startup if it is unset.
func RequireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return v, nil
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// Config is the full credence configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Search       SearchConfig       `yaml:"search" mapstructure:"search"`
	Pipeline     PipelineConfig     `yaml:"pipeline" mapstructure:"pipeline"`
	Scoring      ScoringConfig      `yaml:"scoring" mapstructure:"scoring"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Authority    AuthorityConfig    `yaml:"authority" mapstructure:"authority"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// HTTPConfig controls article fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// LLMConfig selects the language-model collaborator
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, gemini, anthropic, ollama, heuristic
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SearchConfig selects the news-search collaborator
type SearchConfig struct {
	Provider     string  `yaml:"provider" mapstructure:"provider"` // newsapi, googlenews
	APIKey       string  `yaml:"-" mapstructure:"api_key"`
	BaseURL      string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Language     string  `yaml:"language" mapstructure:"language"`
	Region       string  `yaml:"region" mapstructure:"region"`
	MaxResults   int     `yaml:"max_results" mapstructure:"max_results"`
	MinRelevance float64 `yaml:"min_relevance" mapstructure:"min_relevance"`
	QueryTerms   int     `yaml:"query_terms" mapstructure:"query_terms"`
}

// PipelineConfig bounds the orchestrator
type PipelineConfig struct {
	ClaimConcurrency  int           `yaml:"claim_concurrency" mapstructure:"claim_concurrency"`
	SourceConcurrency int           `yaml:"source_concurrency" mapstructure:"source_concurrency"`
	ClaimTimeout      time.Duration `yaml:"claim_timeout" mapstructure:"claim_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	StanceVotes       int           `yaml:"stance_votes" mapstructure:"stance_votes"`
	MaxClaims         int           `yaml:"max_claims" mapstructure:"max_claims"`
	CrossClaimCheck   bool          `yaml:"cross_claim_check" mapstructure:"cross_claim_check"`
	Retries           int           `yaml:"retries" mapstructure:"retries"`
}

// ScoringConfig tunes the credibility aggregator
type ScoringConfig struct {
	ContradictionPenalty float64 `yaml:"contradiction_penalty" mapstructure:"contradiction_penalty"`
	CrossClaimPenalty    float64 `yaml:"cross_claim_penalty" mapstructure:"cross_claim_penalty"`
}

// CacheConfig controls result caching
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir           string        `yaml:"dir,omitempty" mapstructure:"dir"`
	RedisAddr     string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"-" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db" mapstructure:"redis_db"`
}

// RateLimitingConfig caps calls per collaborator
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// StoreConfig locates the validation record database
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // empty disables the store
}

// ServerConfig controls `credence serve`
type ServerConfig struct {
	Addr           string   `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AuthorityConfig classifies evidence sources
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
}

// LogConfig controls the logrus logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Credence/0.1 (+https://github.com/ppiankov/credence)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		LLM: LLMConfig{
			Provider:  "", // heuristics unless configured
			Timeout:   30,
			MaxTokens: 1000,
		},
		Search: SearchConfig{
			Provider:     "googlenews",
			Language:     "en",
			Region:       "US",
			MaxResults:   10,
			MinRelevance: 0.2,
			QueryTerms:   8,
		},
		Pipeline: PipelineConfig{
			ClaimConcurrency:  4,
			SourceConcurrency: 4,
			ClaimTimeout:      30 * time.Second,
			RequestTimeout:    2 * time.Minute,
			StanceVotes:       1,
			MaxClaims:         10,
			Retries:           3,
		},
		Scoring: ScoringConfig{
			ContradictionPenalty: 1.0,
			CrossClaimPenalty:    0.25,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost", "http://localhost:3000", "http://localhost:8000"},
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"apnews.com", "reuters.com", "afp.com",
				"gov", "gov.uk", "europa.eu", "who.int", "un.org",
			},
			SecondaryDomains: []string{
				"bbc.co.uk", "bbc.com", "nytimes.com", "washingtonpost.com",
				"theguardian.com", "wsj.com", "ft.com", "npr.org",
				"bloomberg.com", "economist.com", "aljazeera.com", "cnn.com",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	var problems []string
	if c.Pipeline.ClaimConcurrency <= 0 {
		problems = append(problems, "pipeline.claim_concurrency must be positive")
	}
	if c.Pipeline.SourceConcurrency <= 0 {
		problems = append(problems, "pipeline.source_concurrency must be positive")
	}
	if c.Pipeline.StanceVotes <= 0 {
		problems = append(problems, "pipeline.stance_votes must be at least 1")
	}
	if c.Pipeline.ClaimTimeout <= 0 || c.Pipeline.RequestTimeout <= 0 {
		problems = append(problems, "pipeline timeouts must be positive")
	}
	if c.Search.MaxResults <= 0 || c.Search.MaxResults > 100 {
		problems = append(problems, "search.max_results must be between 1 and 100")
	}
	if c.Search.MinRelevance < 0 || c.Search.MinRelevance > 1 {
		problems = append(problems, "search.min_relevance must be between 0 and 1")
	}
	if c.Scoring.ContradictionPenalty <= 0 {
		problems = append(problems, "scoring.contradiction_penalty must be positive")
	}
	if c.Scoring.CrossClaimPenalty < 0 {
		problems = append(problems, "scoring.cross_claim_penalty must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

package model

import (
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero contradiction penalty", func(c *Config) { c.Scoring.ContradictionPenalty = 0 }, "contradiction_penalty"},
		{"negative cross claim penalty", func(c *Config) { c.Scoring.CrossClaimPenalty = -0.1 }, "cross_claim_penalty"},
		{"relevance above one", func(c *Config) { c.Search.MinRelevance = 1.5 }, "min_relevance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Scoring.CrossClaimPenalty = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected zero cross claim penalty to be allowed, got %v", err)
	}
}

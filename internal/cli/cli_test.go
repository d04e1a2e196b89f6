package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/credence/internal/model"
	"github.com/spf13/viper"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CREDENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	defaults := model.DefaultConfig()
	if cfg.Pipeline.ClaimTimeout != defaults.Pipeline.ClaimTimeout {
		t.Errorf("Expected claim timeout %v, got %v", defaults.Pipeline.ClaimTimeout, cfg.Pipeline.ClaimTimeout)
	}
	if cfg.Search.MinRelevance != defaults.Search.MinRelevance {
		t.Errorf("Expected min relevance %f, got %f", defaults.Search.MinRelevance, cfg.Search.MinRelevance)
	}
	if len(cfg.Authority.PrimaryDomains) != len(defaults.Authority.PrimaryDomains) {
		t.Errorf("Expected default primary domains, got %v", cfg.Authority.PrimaryDomains)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
search:
  provider: newsapi
  max_results: 20
pipeline:
  claim_timeout: 45s
llm:
  provider: openai
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CREDENCE_PIPELINE_CLAIM_CONCURRENCY", "7")
	t.Setenv("NEWS_API_KEY", "news-key")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	v := newTestViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Search.MaxResults != 20 {
		t.Errorf("Expected max_results from file, got %d", cfg.Search.MaxResults)
	}
	if cfg.Pipeline.ClaimTimeout != 45*time.Second {
		t.Errorf("Expected 45s claim timeout, got %v", cfg.Pipeline.ClaimTimeout)
	}
	if cfg.Pipeline.ClaimConcurrency != 7 {
		t.Errorf("Expected claim concurrency from env, got %d", cfg.Pipeline.ClaimConcurrency)
	}
	if cfg.Search.APIKey != "news-key" {
		t.Errorf("Expected NEWS_API_KEY to be used, got %q", cfg.Search.APIKey)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("Expected OPENAI_API_KEY to be used, got %q", cfg.LLM.APIKey)
	}
	if cfg.Pipeline.RequestTimeout != model.DefaultConfig().Pipeline.RequestTimeout {
		t.Errorf("Expected untouched keys to keep defaults, got %v", cfg.Pipeline.RequestTimeout)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("CREDENCE_SEARCH_MIN_RELEVANCE", "2")

	if _, err := loadConfig(newTestViper()); err == nil {
		t.Error("Expected validation error for min_relevance > 1")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".credence")

	path, err := writeDefaultConfig(dir)
	if err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "claim_concurrency") {
		t.Errorf("Expected pipeline settings in config, got:\n%s", data)
	}
	if strings.Contains(string(data), "api_key") {
		t.Error("Expected no api keys in written config")
	}

	if _, err := writeDefaultConfig(dir); err == nil {
		t.Error("Expected error when config already exists")
	}

	// the written file loads back
	v := newTestViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}
	if _, err := loadConfig(v); err != nil {
		t.Errorf("Expected written config to load, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/news/bridge-collapse/", "example.com_news_bridge-collapse"},
		{"http://a.b/c?d=e&f", "a.b_c_d_e_f"},
		{"", "article"},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := sanitizeFilename("https://example.com/" + strings.Repeat("x", 200)); len(got) != 100 {
		t.Errorf("Expected slug capped at 100 chars, got %d", len(got))
	}
}

func TestPrintSummary(t *testing.T) {
	result := &model.ValidationResult{
		ID:               "v-1",
		Status:           model.StatusCompleted,
		CredibilityScore: 0.75,
		Confidence:       0.22,
		ClaimsExtracted:  2,
		SourcesChecked:   2,
		Claims: []model.Claim{
			{ID: "claim-0", Text: "The bridge collapsed on Monday."},
			{ID: "claim-1", Text: "Twelve people were injured."},
		},
		ClaimScores: []model.ClaimScore{
			{ClaimID: "claim-0", Score: 1, Supports: 2},
			{ClaimID: "claim-1", Score: 0.5},
		},
		Signals: []model.Signal{
			{Severity: model.SeverityWarning, Description: "Half of the claims have no sources"},
		},
		Bias:    &model.BiasAssessment{Score: 0.1, Direction: "neutral", Confidence: 0.6},
		Summary: "A bridge collapsed and twelve people were hurt.",
	}

	var buf bytes.Buffer
	printSummary(&buf, result)
	out := buf.String()

	for _, want := range []string{
		"Credibility: 0.75",
		"✓ 1.00  The bridge collapsed",
		"? 0.50  Twelve people",
		"⚠ Half of the claims",
		"Bias:            neutral (0.10, confidence 0.60)",
		"A bridge collapsed and twelve people were hurt.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in summary, got:\n%s", want, out)
		}
	}
}

func TestLoadConfig_ZeroPenalty(t *testing.T) {
	t.Setenv("CREDENCE_SCORING_CONTRADICTION_PENALTY", "0")

	if _, err := loadConfig(newTestViper()); err == nil || !strings.Contains(err.Error(), "contradiction_penalty") {
		t.Errorf("Expected contradiction_penalty validation error, got %v", err)
	}
}

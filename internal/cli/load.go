package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/credence/internal/logging"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/pipeline"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// loadConfig merges defaults, config file, environment and bound flags
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()

	if err := registerDefaults(v, cfg); err != nil {
		return nil, err
	}
	_ = v.BindEnv("llm.api_key", "CREDENCE_LLM_API_KEY")
	_ = v.BindEnv("search.api_key", "CREDENCE_SEARCH_API_KEY", "NEWS_API_KEY")
	_ = v.BindEnv("cache.redis_password", "CREDENCE_CACHE_REDIS_PASSWORD")

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyProviderEnv(cfg)

	return cfg, cfg.Validate()
}

// registerDefaults makes every config key known to viper so environment
// variables can override keys the config file does not mention
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for key, value := range tree {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if sub, ok := value.(map[string]interface{}); ok && len(sub) > 0 {
			setDefaults(v, path, sub)
			continue
		}
		v.SetDefault(path, value)
	}
}

// applyProviderEnv fills provider credentials from their conventional variables
func applyProviderEnv(cfg *model.Config) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini", "google":
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if strings.EqualFold(cfg.LLM.Provider, "ollama") && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
}

// newService loads configuration and builds the pipeline service
func newService(ctx context.Context) (*pipeline.Service, *model.Config, *logrus.Logger, func() error, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, nil, nil, err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if verbose && cfg.Log.Level == "info" {
		log.SetLevel(logrus.DebugLevel)
	}

	svc, closeFn, err := pipeline.Build(ctx, cfg, log)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return svc, cfg, log, closeFn, nil
}

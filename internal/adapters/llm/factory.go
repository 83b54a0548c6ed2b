package llm

import (
	"fmt"

	"github.com/PabloGalante/hospital-erp-agent/internal/config"
	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
	"github.com/PabloGalante/hospital-erp-agent/internal/observability"
)

// NewClient creates a model client for the configured provider.
func NewClient(cfg *config.Config) (domain.ModelClient, error) {
	log := observability.WithFields("provider", cfg.Provider, "model", cfg.ModelName)

	switch cfg.Provider {
	case config.ProviderMock:
		log.Info("using mock model client")
		return NewMockClient(), nil
	case config.ProviderGemini:
		log.Info("using gemini model client")
		return NewGeminiClient(cfg.ModelName).WithBaseURL(cfg.GeminiBaseURL), nil
	case config.ProviderOpenAI:
		log.Info("using openai-compatible model client", "base_url", cfg.OpenAIBaseURL)
		return NewOpenAIClient(cfg.OpenAIBaseURL, cfg.ModelName), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

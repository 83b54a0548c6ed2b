package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/PabloGalante/hospital-erp-agent/internal/app/agentflow"
)

type Provider string

const (
	ProviderMock   Provider = "mock"
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

type CredentialBackend string

const (
	CredentialMemory CredentialBackend = "memory"
	CredentialFile   CredentialBackend = "file"
	CredentialSQLite CredentialBackend = "sqlite"
)

type Config struct {
	Port string

	Provider      Provider
	ModelName     string
	APIKey        string // optional, from the environment
	OpenAIBaseURL string
	GeminiBaseURL string // empty uses the default Gemini endpoint

	CredentialBackend CredentialBackend
	CredentialPath    string

	PolicyPath string // optional rego file replacing the default dispatch policy

	DispatchDelay   time.Duration
	TurnTimeout     time.Duration
	MultiToolPolicy string

	LogLevel string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// Load reads all env vars and builds the config
func Load() *Config {
	provider := Provider(getEnv("HOSPITAL_MODEL_PROVIDER", string(ProviderMock)))

	defaultModel := "gemini-2.5-flash"
	if provider == ProviderOpenAI {
		defaultModel = "gpt-4o-mini"
	}

	return &Config{
		Port: getEnv("HOSPITAL_PORT", "8080"),

		Provider:      provider,
		ModelName:     getEnv("HOSPITAL_MODEL_NAME", defaultModel),
		APIKey:        getEnv("HOSPITAL_API_KEY", os.Getenv("API_KEY")),
		OpenAIBaseURL: getEnv("HOSPITAL_OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiBaseURL: getEnv("HOSPITAL_GEMINI_BASE_URL", ""),

		CredentialBackend: CredentialBackend(getEnv("HOSPITAL_CREDENTIAL_BACKEND", string(CredentialMemory))),
		CredentialPath:    getEnv("HOSPITAL_CREDENTIAL_PATH", ""),

		PolicyPath: getEnv("HOSPITAL_POLICY_PATH", ""),

		DispatchDelay:   time.Duration(getEnvInt("HOSPITAL_DISPATCH_DELAY_MS", 1500)) * time.Millisecond,
		TurnTimeout:     time.Duration(getEnvInt("HOSPITAL_TURN_TIMEOUT_MS", 60000)) * time.Millisecond,
		MultiToolPolicy: getEnv("HOSPITAL_MULTI_TOOL_POLICY", agentflow.MultiToolFirst),

		LogLevel: getEnv("HOSPITAL_LOG_LEVEL", "info"),
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderMock, ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown model provider %q", c.Provider)
	}

	switch c.CredentialBackend {
	case CredentialMemory:
	case CredentialFile, CredentialSQLite:
		if c.CredentialPath == "" {
			return fmt.Errorf("HOSPITAL_CREDENTIAL_PATH is required for the %s credential backend", c.CredentialBackend)
		}
	default:
		return fmt.Errorf("unknown credential backend %q", c.CredentialBackend)
	}

	switch c.MultiToolPolicy {
	case agentflow.MultiToolFirst, agentflow.MultiToolReject:
	default:
		return fmt.Errorf("unknown multi-tool policy %q", c.MultiToolPolicy)
	}
	if c.DispatchDelay < 0 || c.TurnTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestNewValidProvider(t *testing.T) {
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", settings.LLM.Provider)
	}
}

func TestNewWithAlias(t *testing.T) {
	settings, err := New("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", settings.LLM.Provider)
	}
}

func TestNewProviderFromEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "google")
	settings, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "gemini" {
		t.Errorf("expected provider 'gemini', got %q", settings.LLM.Provider)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("unknown_provider")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Key != "LLM_PROVIDER" {
		t.Errorf("expected key LLM_PROVIDER, got %q", cfgErr.Key)
	}
}

func TestNewDefaults(t *testing.T) {
	for _, key := range []string{
		"LLM_MAX_TOKENS", "AGENT_MAX_TURNS", "AGENT_MAX_INPUT_CHARS", "AGENT_INJECTION_ACTION",
		"HOST", "PORT", "CORS_ORIGINS", "QUOTA_PER_DAY", "QUOTA_STORE", "MCP_CALL_TIMEOUT", "PORTFOLIO_DATA_DIR",
	} {
		t.Setenv(key, "")
	}

	settings, err := New("anthropic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.MaxTokens != DefaultMaxTokens {
		t.Errorf("expected max tokens %d, got %d", DefaultMaxTokens, settings.LLM.MaxTokens)
	}
	if settings.Agent.MaxTurns != DefaultMaxTurns || settings.Agent.MaxInputChars != DefaultMaxInputChars {
		t.Errorf("unexpected agent defaults %+v", settings.Agent)
	}
	if settings.Agent.InjectionAction != "warn" {
		t.Errorf("expected injection action warn, got %q", settings.Agent.InjectionAction)
	}
	if settings.Server.Addr() != "0.0.0.0:8000" {
		t.Errorf("expected default addr, got %q", settings.Server.Addr())
	}
	if len(settings.Server.CORSOrigins) != len(DefaultCORSOrigins) {
		t.Errorf("expected default CORS origins, got %v", settings.Server.CORSOrigins)
	}
	if settings.RateLimit.QuotaPerDay != DefaultQuotaPerDay || settings.RateLimit.Store != "memory" {
		t.Errorf("unexpected rate limit defaults %+v", settings.RateLimit)
	}
	if settings.MCP.CallTimeout != DefaultMCPCallTimeout {
		t.Errorf("expected call timeout %v, got %v", DefaultMCPCallTimeout, settings.MCP.CallTimeout)
	}
	if settings.Data.Dir != DefaultDataDir {
		t.Errorf("expected data dir %q, got %q", DefaultDataDir, settings.Data.Dir)
	}
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("AGENT_MAX_TURNS", "3")
	t.Setenv("AGENT_INJECTION_ACTION", "BLOCK")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("MCP_CALL_TIMEOUT", "5")
	t.Setenv("QUOTA_PER_DAY", "0")

	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Agent.MaxTurns != 3 {
		t.Errorf("expected 3 turns, got %d", settings.Agent.MaxTurns)
	}
	if settings.Agent.InjectionAction != "block" {
		t.Errorf("expected block, got %q", settings.Agent.InjectionAction)
	}
	origins := settings.Server.CORSOrigins
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", origins)
	}
	if settings.MCP.CallTimeout != 5*time.Second {
		t.Errorf("expected bare seconds to parse, got %v", settings.MCP.CallTimeout)
	}
	if settings.RateLimit.QuotaPerDay != 0 {
		t.Errorf("expected quota disabled, got %d", settings.RateLimit.QuotaPerDay)
	}
}

func TestNewRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"LLM_MAX_TOKENS":         "not-a-number",
		"AGENT_MAX_TURNS":        "0",
		"AGENT_INJECTION_ACTION": "explode",
		"MCP_CALL_TIMEOUT":       "soon",
		"QUOTA_STORE":            "etcd",
		"LOG_FORMAT":             "xml",
		"RATE_LIMIT_RPM":         "-1",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := New("openai")
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Key != key {
				t.Errorf("expected key %s, got %s", key, cfgErr.Key)
			}
		})
	}
}

func TestRedisStoreRequiresURL(t *testing.T) {
	t.Setenv("QUOTA_STORE", "redis")
	t.Setenv("REDIS_URL", "")
	if _, err := New("openai"); err == nil {
		t.Error("expected error for redis store without REDIS_URL")
	}
}

func TestRequireAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	settings, err := New("anthropic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = settings.RequireAPIKey()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Key != "ANTHROPIC_API_KEY" {
		t.Fatalf("expected ConfigurationError for ANTHROPIC_API_KEY, got %v", err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	settings, _ = New("anthropic")
	key, err := settings.RequireAPIKey()
	if err != nil || key != "sk-test" {
		t.Errorf("expected key, got %q %v", key, err)
	}
}

func TestAPIKeyForValidProvider(t *testing.T) {
	original := os.Getenv("OPENAI_API_KEY")
	os.Setenv("OPENAI_API_KEY", "test-key")
	defer os.Setenv("OPENAI_API_KEY", original)

	key, err := APIKeyFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-key" {
		t.Errorf("expected 'test-key', got %q", key)
	}
}

func TestAPIKeyForMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := APIKeyFor("openai")
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestAPIKeyForUnknownProvider(t *testing.T) {
	_, err := APIKeyFor("unknown")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestModelFor(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "")
	model, err := ModelFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "gpt-4o" {
		t.Errorf("expected default model gpt-4o, got %q", model)
	}
}

func TestMustNewPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for unknown provider")
		}
	}()
	MustNew("unknown_provider")
}

func TestSupportedProviders(t *testing.T) {
	providers := SupportedProviders()
	if len(providers) != 4 {
		t.Fatalf("expected 4 supported providers, got %v", providers)
	}
	if providers[0] != "anthropic" {
		t.Errorf("expected sorted providers, got %v", providers)
	}
}

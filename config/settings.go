// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup
//
// The binary loads a .env file before calling New; this package only reads
// the process environment.

package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sahana359/sahanarajashekara/llm"
)

// Defaults for settings not present in the environment.
const (
	DefaultProvider         = "anthropic"
	DefaultMaxTokens        = 1024
	DefaultTemperature      = 0.7
	DefaultMaxTurns         = 10
	DefaultMaxInputChars    = 2000
	DefaultMaxParallelTools = 4
	DefaultInjectionAction  = "warn"
	DefaultDataDir          = "data"
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 8000
	DefaultQuotaPerDay      = 20
	DefaultQuotaStore       = "memory"
	DefaultQuotaSQLitePath  = "data/quota.db"
	DefaultMCPCallTimeout   = 30 * time.Second
)

// DefaultCORSOrigins are the browser origins allowed when CORS_ORIGINS is unset.
var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"https://sahanarajashekara.vercel.app",
}

// ConfigurationError reports a missing or invalid setting.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

// Settings holds all application configuration.
type Settings struct {
	LLM       LLMConfig
	Agent     AgentConfig
	MCP       MCPConfig
	Data      DataConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Tracing   TracingConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	MaxTokens   uint32
	Temperature float64
}

// AgentConfig holds agent execution configuration.
type AgentConfig struct {
	MaxTurns         int
	MaxInputChars    int
	MaxParallelTools int
	InjectionAction  string
	Owner            string
}

// MCPConfig locates the capability provider.
type MCPConfig struct {
	// ServerURL is an SSE endpoint. It takes precedence over ConfigPath.
	ServerURL   string
	ConfigPath  string
	ServerName  string
	CallTimeout time.Duration
}

// Enabled returns true if a capability provider is configured.
func (c MCPConfig) Enabled() bool {
	return c.ServerURL != "" || c.ConfigPath != ""
}

// DataConfig locates the static corpus.
type DataConfig struct {
	Dir string
}

// ServerConfig holds HTTP listener configuration.
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	RPM         int
	Burst       int
	QuotaPerDay int
	Store       string
	SQLitePath  string
	RedisURL    string
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string
}

// TracingConfig holds OpenTelemetry export configuration.
type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", llm.ModelOpenAIGPT4o, "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", llm.ModelAnthropicClaudeSonnet4, "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", llm.ModelDeepSeekChat, "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", llm.ModelGeminiFlash25, "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// New creates settings for the specified provider, loading values from environment variables.
// An empty provider uses LLM_PROVIDER, then anthropic.
// Returns a *ConfigurationError if the provider is unknown or a value is invalid.
// A missing API key is not an error here; see RequireAPIKey.
func New(provider string) (Settings, error) {
	if provider == "" {
		provider = getEnvString("LLM_PROVIDER", DefaultProvider)
	}
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	s.LLM.Provider = provider
	s.LLM.Model = getEnvString(info.modelEnv, info.defaultModel)
	s.LLM.APIKey = os.Getenv(info.apiKeyEnv)

	s.LLM.MaxTokens, err = getEnvUint32("LLM_MAX_TOKENS", DefaultMaxTokens)
	collect(err)
	s.LLM.Temperature, err = getEnvFloat64("LLM_TEMPERATURE", DefaultTemperature)
	collect(err)

	s.Agent.MaxTurns, err = getEnvPositiveInt("AGENT_MAX_TURNS", DefaultMaxTurns)
	collect(err)
	s.Agent.MaxInputChars, err = getEnvPositiveInt("AGENT_MAX_INPUT_CHARS", DefaultMaxInputChars)
	collect(err)
	s.Agent.MaxParallelTools, err = getEnvPositiveInt("AGENT_MAX_PARALLEL_TOOLS", DefaultMaxParallelTools)
	collect(err)
	s.Agent.InjectionAction, err = getEnvChoice("AGENT_INJECTION_ACTION", DefaultInjectionAction, "off", "log", "warn", "block")
	collect(err)
	s.Agent.Owner = os.Getenv("PORTFOLIO_OWNER")

	s.MCP.ServerURL = os.Getenv("MCP_SERVER_URL")
	s.MCP.ConfigPath = os.Getenv("MCP_CONFIG")
	s.MCP.ServerName = os.Getenv("MCP_SERVER_NAME")
	s.MCP.CallTimeout, err = getEnvDuration("MCP_CALL_TIMEOUT", DefaultMCPCallTimeout)
	collect(err)

	s.Data.Dir = getEnvString("PORTFOLIO_DATA_DIR", DefaultDataDir)

	s.Server.Host = getEnvString("HOST", DefaultHost)
	s.Server.Port, err = getEnvPositiveInt("PORT", DefaultPort)
	collect(err)
	s.Server.CORSOrigins = getEnvList("CORS_ORIGINS", DefaultCORSOrigins)

	s.RateLimit.RPM, err = getEnvInt("RATE_LIMIT_RPM", 0)
	collect(err)
	s.RateLimit.Burst, err = getEnvInt("RATE_LIMIT_BURST", 0)
	collect(err)
	s.RateLimit.QuotaPerDay, err = getEnvInt("QUOTA_PER_DAY", DefaultQuotaPerDay)
	collect(err)
	s.RateLimit.Store, err = getEnvChoice("QUOTA_STORE", DefaultQuotaStore, "memory", "sqlite", "redis")
	collect(err)
	s.RateLimit.SQLitePath = getEnvString("QUOTA_SQLITE_PATH", DefaultQuotaSQLitePath)
	s.RateLimit.RedisURL = os.Getenv("REDIS_URL")
	if s.RateLimit.Store == "redis" && s.RateLimit.RedisURL == "" {
		collect(&ConfigurationError{Key: "REDIS_URL", Reason: "required when QUOTA_STORE=redis"})
	}

	s.Log.Level = getEnvString("LOG_LEVEL", "info")
	s.Log.Format, err = getEnvChoice("LOG_FORMAT", "text", "text", "json")
	collect(err)

	s.Tracing.Endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	s.Tracing.ServiceName = getEnvString("OTEL_SERVICE_NAME", "portfolio-chat")

	if len(errs) > 0 {
		return Settings{}, errs[0]
	}
	return s, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// RequireAPIKey returns the selected provider's API key, or a
// *ConfigurationError naming the variable to set.
func (s Settings) RequireAPIKey() (string, error) {
	if s.LLM.APIKey != "" {
		return s.LLM.APIKey, nil
	}
	info, err := getProviderInfo(s.LLM.Provider)
	if err != nil {
		return "", err
	}
	return "", &ConfigurationError{Key: info.apiKeyEnv, Reason: "not set"}
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, &ConfigurationError{Key: "LLM_PROVIDER", Reason: fmt.Sprintf("unknown provider %q", provider)}
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", &ConfigurationError{Key: info.apiKeyEnv, Reason: "not set"}
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}
	return getEnvString(info.modelEnv, info.defaultModel), nil
}

// SupportedProviders returns the sorted list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Environment variable helpers with proper error handling

func getEnvString(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func invalid(key, val string, err error) error {
	reason := fmt.Sprintf("invalid value %q", val)
	if err != nil {
		reason = fmt.Sprintf("%s: %v", reason, err)
	}
	return &ConfigurationError{Key: key, Reason: reason}
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return 0, invalid(key, val, err)
	}
	return i, nil
}

func getEnvPositiveInt(key string, defaultVal int) (int, error) {
	i, err := getEnvInt(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if i == 0 {
		return 0, &ConfigurationError{Key: key, Reason: "must be positive"}
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, invalid(key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, invalid(key, val, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		// Bare numbers are seconds.
		secs, convErr := strconv.ParseFloat(val, 64)
		if convErr != nil {
			return 0, invalid(key, val, err)
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d <= 0 {
		return 0, &ConfigurationError{Key: key, Reason: "must be positive"}
	}
	return d, nil
}

func getEnvChoice(key, defaultVal string, choices ...string) (string, error) {
	val := strings.ToLower(getEnvString(key, defaultVal))
	for _, c := range choices {
		if val == c {
			return val, nil
		}
	}
	return "", &ConfigurationError{Key: key, Reason: fmt.Sprintf("must be one of %s, got %q", strings.Join(choices, ", "), val)}
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if strings.TrimSpace(val) == "" {
		return append([]string(nil), defaultVal...)
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Provider factory.
//
// Each supported provider is described once in the providers table: its
// name and aliases, API key variable, default model and constructor. The
// builder reads from that table so adding a provider is a single entry.
//
//	claude, err := llm.ProviderAnthropic.FromEnv()
//
//	gpt, err := llm.ProviderOpenAI.
//	    Model(llm.ModelOpenAIGPT4oMini).
//	    MaxTokens(512).
//	    Temperature(0.2).
//	    APIKey(key)

package llm

import (
	"fmt"
	"os"
	"strings"
)

// DefaultMaxTokens caps the length of a single model response.
const DefaultMaxTokens = 1024

// DefaultTemperature is used when the builder is given none.
const DefaultTemperature float32 = 0.7

// Model identifiers.
const (
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelAnthropicClaudeHaiku35 = "claude-3-5-haiku-20241022"

	ModelOpenAIGPT4o     = "gpt-4o"
	ModelOpenAIGPT4oMini = "gpt-4o-mini"

	ModelDeepSeekChat = "deepseek-chat"

	ModelGeminiFlash25 = "gemini-2.5-flash"
	ModelGeminiPro25   = "gemini-2.5-pro"
)

// ProviderType identifies a model vendor.
type ProviderType int

const (
	ProviderOpenAI ProviderType = iota
	ProviderAnthropic
	ProviderDeepSeek
	ProviderGemini
)

type constructor func(apiKey, model string, maxTokens uint32, temperature float32) Provider

type providerSpec struct {
	name         string
	aliases      []string
	envVar       string
	defaultModel string
	build        constructor
}

var providers = map[ProviderType]providerSpec{
	ProviderAnthropic: {
		name:         "anthropic",
		aliases:      []string{"claude"},
		envVar:       "ANTHROPIC_API_KEY",
		defaultModel: ModelAnthropicClaudeSonnet4,
		build: func(key, model string, max uint32, temp float32) Provider {
			return NewAnthropicProvider(key, model, max, temp)
		},
	},
	ProviderOpenAI: {
		name:         "openai",
		aliases:      []string{"gpt"},
		envVar:       "OPENAI_API_KEY",
		defaultModel: ModelOpenAIGPT4o,
		build: func(key, model string, max uint32, temp float32) Provider {
			return NewOpenAIProvider(key, model, max, temp)
		},
	},
	ProviderDeepSeek: {
		name:         "deepseek",
		envVar:       "DEEPSEEK_API_KEY",
		defaultModel: ModelDeepSeekChat,
		build: func(key, model string, max uint32, temp float32) Provider {
			return NewDeepSeekProvider(key, model, max, temp)
		},
	},
	ProviderGemini: {
		name:         "gemini",
		aliases:      []string{"google"},
		envVar:       "GEMINI_API_KEY",
		defaultModel: ModelGeminiFlash25,
		build: func(key, model string, max uint32, temp float32) Provider {
			return NewGeminiProvider(key, model, max, temp)
		},
	},
}

func (p ProviderType) spec() (providerSpec, bool) {
	s, ok := providers[p]
	return s, ok
}

func (p ProviderType) String() string {
	if s, ok := p.spec(); ok {
		return s.name
	}
	return "unknown"
}

// EnvVar returns the environment variable holding this provider's API key.
func (p ProviderType) EnvVar() string {
	s, _ := p.spec()
	return s.envVar
}

// DefaultModel returns the model used when none is configured.
func (p ProviderType) DefaultModel() string {
	s, _ := p.spec()
	return s.defaultModel
}

// ParseProviderType resolves a provider name or alias, case-insensitively.
func ParseProviderType(s string) (ProviderType, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for typ, spec := range providers {
		if spec.name == want {
			return typ, nil
		}
		for _, alias := range spec.aliases {
			if alias == want {
				return typ, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown provider: %s", s)
}

// FromEnv builds the provider with defaults, reading the key from the environment.
func (p ProviderType) FromEnv() (Provider, error) {
	return NewProviderBuilder(p).FromEnv()
}

// Model starts a builder for this provider with the given model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// APIKey builds the provider with defaults and an explicit key.
func (p ProviderType) APIKey(key string) (Provider, error) {
	return NewProviderBuilder(p).APIKey(key)
}

// MissingAPIKeyError is returned when a provider's API key is not configured.
type MissingAPIKeyError struct {
	Provider ProviderType
	EnvVar   string
}

func (e *MissingAPIKeyError) Error() string {
	return fmt.Sprintf("%s: %s environment variable not set", e.Provider, e.EnvVar)
}

// ProviderBuilder configures a provider before construction.
type ProviderBuilder struct {
	typ         ProviderType
	model       string
	maxTokens   uint32
	temperature *float32
}

// NewProviderBuilder starts a builder for typ.
func NewProviderBuilder(typ ProviderType) *ProviderBuilder {
	return &ProviderBuilder{typ: typ}
}

func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

// Temperature sets sampling temperature; 0 is deterministic.
func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// FromEnv builds the provider, reading the API key from the environment.
func (b *ProviderBuilder) FromEnv() (Provider, error) {
	envVar := b.typ.EnvVar()
	key := os.Getenv(envVar)
	if key == "" {
		return nil, &MissingAPIKeyError{Provider: b.typ, EnvVar: envVar}
	}
	return b.APIKey(key)
}

// APIKey builds the provider with an explicit API key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	spec, ok := b.typ.spec()
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %d", int(b.typ))
	}

	model := b.model
	if model == "" {
		model = spec.defaultModel
	}
	maxTokens := b.maxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := DefaultTemperature
	if b.temperature != nil {
		temperature = *b.temperature
	}

	return spec.build(key, model, maxTokens, temperature), nil
}

// DeepSeek Provider - OpenAI-compatible API with a different base URL.

package llm

const deepseekBaseURL = "https://api.deepseek.com/v1"

// NewDeepSeekProvider creates a provider for DeepSeek's chat models.
func NewDeepSeekProvider(apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return NewOpenAICompatibleProvider("deepseek", deepseekBaseURL, apiKey, model, maxTokens, temperature)
}

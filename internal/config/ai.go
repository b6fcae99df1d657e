package config

import "os"

// AIModels defines which OpenAI models to use for different tasks
type AIModels struct {
	// Generation is for quiz generation (quality over speed)
	Generation string `json:"generation"`

	// Validation is for per-answer judgment (needs to be fast)
	Validation string `json:"validation"`

	// Analysis is for uploaded-content analysis (short, cheap)
	Analysis string `json:"analysis"`
}

// AIConfig holds all AI-related configuration
type AIConfig struct {
	APIKey    string   `json:"-"` // Never serialize
	Models    AIModels `json:"models"`
	TimeoutMS int      `json:"timeoutMs"`
}

// DefaultAIConfig returns the default AI configuration
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		APIKey: os.Getenv("OPENAI_API_KEY"),
		Models: AIModels{
			Generation: getEnvOrDefault("OPENAI_MODEL_GENERATION", "gpt-4"),
			Validation: getEnvOrDefault("OPENAI_MODEL_VALIDATION", "gpt-4"),
			Analysis:   getEnvOrDefault("OPENAI_MODEL_ANALYSIS", "gpt-4"),
		},
		TimeoutMS: 30000,
	}
}

// IsEnabled returns true if the AI API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// CostPerToken returns the blended per-token price estimate for a model.
func CostPerToken(model string) float64 {
	// GPT-4 pricing averages input/output rates; anything else is priced
	// at the 3.5-turbo tier.
	if len(model) >= 5 && model[:5] == "gpt-4" {
		return 0.045 / 1000
	}
	return 0.0015 / 1000
}

package llm

import (
	"os"
	"time"

	"go.uber.org/zap"

	"docq/internal/domain"
)

// SelectConfig lists the candidate chat backends in preference order.
type SelectConfig struct {
	GroqBaseURL   string
	GroqModel     string
	OpenAIBaseURL string
	OpenAIModel   string
	Timeout       time.Duration
}

// Select evaluates the ranked backend candidates once at startup and
// returns a single concrete completer: Groq if GROQ_API_KEY is set,
// then OpenAI if OPENAI_API_KEY is set, then the rule-based fallback.
// No per-call dispatch happens afterwards.
func Select(cfg SelectConfig, logger *zap.Logger) domain.Completer {
	if cfg.GroqBaseURL == "" {
		cfg.GroqBaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.GroqModel == "" {
		cfg.GroqModel = "llama3-70b-8192"
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-3.5-turbo"
	}

	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		client, err := NewChatClient(ChatConfig{
			Name:    "groq",
			BaseURL: cfg.GroqBaseURL,
			APIKey:  key,
			Model:   cfg.GroqModel,
			Timeout: cfg.Timeout,
		})
		if err == nil {
			logger.Info("answer synthesis backend selected", zap.String("backend", "groq"), zap.String("model", cfg.GroqModel))
			return client
		}
		logger.Warn("groq backend unavailable", zap.Error(err))
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		client, err := NewChatClient(ChatConfig{
			Name:    "openai",
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  key,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.Timeout,
		})
		if err == nil {
			logger.Info("answer synthesis backend selected", zap.String("backend", "openai"), zap.String("model", cfg.OpenAIModel))
			return client
		}
		logger.Warn("openai backend unavailable", zap.Error(err))
	}

	logger.Warn("no chat backend configured, using rule-based fallback")
	return NewRuleBased()
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8100"`
	DBPath     string `env:"DB_PATH" envDefault:"shuaib.db"`

	// Remote inference endpoint. Any OpenAI-compatible chat-completions
	// host works: a hosted provider, OpenRouter, or local Ollama.
	APIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"http://localhost:11434/v1/"`
	APIKey     string `env:"OPENAI_API_KEY"`
	Model      string `env:"MODEL" envDefault:"llama3.1:8b"`

	// Sampling parameters for the tutoring model.
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.7"`
	TopP        float64 `env:"TOP_P" envDefault:"0.95"`
	TopK        int     `env:"TOP_K" envDefault:"64"`

	// HistoryTokenBudget caps how much prior conversation is replayed when
	// a chat context is seeded.
	HistoryTokenBudget int `env:"HISTORY_TOKEN_BUDGET" envDefault:"6000"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

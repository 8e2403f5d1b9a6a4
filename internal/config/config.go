// Package config loads the YAML application config and applies
// defaults so a missing or partial file still yields a runnable setup.
package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
}

// DatabaseConfig points at the Postgres registry. DATABASE_URL
// overrides the DSN when set.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// LLMConfig configures answer synthesis. Which backend runs is decided
// by the API keys present in the environment.
type LLMConfig struct {
	GroqBaseURL   string `yaml:"groq_base_url"`
	GroqModel     string `yaml:"groq_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
}

// ChunkingConfig configures how extracted text is split.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig carries the similarity search policy.
type RetrievalConfig struct {
	ScoreThreshold   float64 `yaml:"score_threshold"`
	DefaultMaxChunks int     `yaml:"default_max_chunks"`
	SearchLimit      int     `yaml:"search_limit"`
}

// UploadConfig bounds and places incoming files.
type UploadConfig struct {
	Dir         string `yaml:"dir"`
	MaxFileSize int64  `yaml:"max_file_size"`
}

// OCRConfig points at the external OCR service, optional.
type OCRConfig struct {
	ServiceURL          string  `yaml:"service_url"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	TimeoutSecs         int     `yaml:"timeout_secs"`
}

// PipelineConfig sizes the background processing pool.
type PipelineConfig struct {
	Workers        int `yaml:"workers"`
	JobTimeoutSecs int `yaml:"job_timeout_secs"`
}

// ReaperConfig schedules expired-session cleanup.
type ReaperConfig struct {
	IntervalSecs int `yaml:"interval_secs"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	LLM         LLMConfig         `yaml:"llm"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Upload      UploadConfig      `yaml:"upload"`
	OCR         OCRConfig         `yaml:"ocr"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Reaper      ReaperConfig      `yaml:"reaper"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "development"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "host=localhost user=docq password=docq dbname=docq port=5432 sslmode=disable"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "documents"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 30
		}
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 256
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.LLM.GroqBaseURL == "" {
		cfg.LLM.GroqBaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.LLM.GroqModel == "" {
		cfg.LLM.GroqModel = "llama3-70b-8192"
	}
	if cfg.LLM.OpenAIBaseURL == "" {
		cfg.LLM.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.OpenAIModel == "" {
		cfg.LLM.OpenAIModel = "gpt-3.5-turbo"
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 300
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 50
	}
	if cfg.Retrieval.ScoreThreshold == 0 {
		cfg.Retrieval.ScoreThreshold = 0.3
	}
	if cfg.Retrieval.DefaultMaxChunks == 0 {
		cfg.Retrieval.DefaultMaxChunks = 3
	}
	if cfg.Retrieval.SearchLimit == 0 {
		cfg.Retrieval.SearchLimit = 5
	}
	if cfg.Upload.Dir == "" {
		cfg.Upload.Dir = "./data/uploads"
	}
	if cfg.Upload.MaxFileSize == 0 {
		cfg.Upload.MaxFileSize = 50 << 20
	}
	if cfg.OCR.ConfidenceThreshold == 0 {
		cfg.OCR.ConfidenceThreshold = 0.3
	}
	if cfg.OCR.TimeoutSecs == 0 {
		cfg.OCR.TimeoutSecs = 120
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.JobTimeoutSecs == 0 {
		cfg.Pipeline.JobTimeoutSecs = 300
	}
	if cfg.Reaper.IntervalSecs == 0 {
		cfg.Reaper.IntervalSecs = 300
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if url := os.Getenv("QDRANT_URL"); url != "" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{Collection: "documents", TimeoutSecs: 30}
		}
		cfg.VectorStore.Type = "qdrant"
		cfg.VectorStore.Qdrant.URL = url
	}
	if url := os.Getenv("OCR_SERVICE_URL"); url != "" {
		cfg.OCR.ServiceURL = url
	}
}

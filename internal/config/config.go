// Package config loads the TOML configuration file, applies defaults and
// environment overrides, and validates the result before anything else
// starts. A watcher re-reads the file on change so long-lived processes
// can pick up new query tunables without a restart.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

// Default tunables. Chunk sizing defaults live in the chunking package;
// these cover the rest of the pipeline.
const (
	DefaultStrategy    = domain.StrategyHybrid
	DefaultTopK        = 5
	DefaultThreshold   = 0.0
	DefaultCacheTTL    = 7 * 24 * time.Hour
	DefaultBatchWidth  = 4
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 200 * time.Millisecond
	DefaultCallTimeout = 30 * time.Second
)

// Config is the full application configuration.
type Config struct {
	Verbose  bool           `toml:"verbose"`
	Chunking ChunkingConfig `toml:"chunking"`
	Indexing IndexingConfig `toml:"indexing"`
	Query    QueryConfig    `toml:"query"`
	Storage  StorageConfig  `toml:"storage"`
	AI       AIConfig       `toml:"ai"`
}

// ChunkingConfig selects and sizes the chunking strategy.
type ChunkingConfig struct {
	// Strategy is one of fixed_size, semantic, structural, hybrid.
	Strategy string `toml:"strategy"`

	// ChunkSize is the target chunk length in characters.
	ChunkSize int `toml:"chunk_size"`

	// OverlapSize is the trailing overlap in characters, strictly less
	// than ChunkSize.
	OverlapSize int `toml:"overlap_size"`
}

// IndexingConfig tunes the embedding pipeline.
type IndexingConfig struct {
	// BatchWidth bounds concurrent embedding calls.
	BatchWidth int `toml:"batch_width"`

	// MaxRetries bounds retries of transient embedding failures.
	MaxRetries int `toml:"max_retries"`

	// RetryBaseDelayMS is the first backoff delay in milliseconds.
	RetryBaseDelayMS int `toml:"retry_base_delay_ms"`

	// CallTimeoutS bounds each embedding call, in seconds.
	CallTimeoutS int `toml:"call_timeout_s"`
}

// QueryConfig tunes retrieval. These are the live-reloadable settings.
type QueryConfig struct {
	// Strategy is one of simple, subquestion, router, auto.
	Strategy string `toml:"strategy"`

	// TopK is the number of chunks retrieved per query.
	TopK int `toml:"top_k"`

	// Threshold is the minimum normalised similarity in [0, 1).
	Threshold float64 `toml:"threshold"`
}

// StorageConfig locates the SQLite database and sizes the cache.
type StorageConfig struct {
	// DataDir holds the database file. Empty means ~/.scorpius/data.
	DataDir string `toml:"data_dir"`

	// CacheTTLHours is the embedding cache time-to-live in hours.
	CacheTTLHours int `toml:"cache_ttl_hours"`
}

// AIConfig holds the remote backend settings.
type AIConfig struct {
	Embedding  ProviderConfig `toml:"embedding"`
	Completion ProviderConfig `toml:"completion"`
}

// ProviderConfig configures one remote AI backend. The API key may come
// from the file or from the provider's environment variable.
type ProviderConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`

	// RequestsPerSecond caps the call rate. Zero disables limiting.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Chunking: ChunkingConfig{
			Strategy:    string(DefaultStrategy),
			ChunkSize:   1000,
			OverlapSize: 200,
		},
		Indexing: IndexingConfig{
			BatchWidth:       DefaultBatchWidth,
			MaxRetries:       DefaultMaxRetries,
			RetryBaseDelayMS: int(DefaultRetryDelay / time.Millisecond),
			CallTimeoutS:     int(DefaultCallTimeout / time.Second),
		},
		Query: QueryConfig{
			Strategy:  string(domain.QueryAuto),
			TopK:      DefaultTopK,
			Threshold: DefaultThreshold,
		},
		Storage: StorageConfig{
			CacheTTLHours: int(DefaultCacheTTL / time.Hour),
		},
		AI: AIConfig{
			Embedding: ProviderConfig{
				Provider: string(domain.AIProviderMistral),
				Model:    "mistral-embed",
			},
			Completion: ProviderConfig{
				Provider: string(domain.AIProviderMistral),
				Model:    "mistral-small-latest",
			},
		},
	}
}

// DefaultPath returns ~/.scorpius/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".scorpius", "config.toml"), nil
}

// Load reads the configuration file at path, layered over the defaults.
// An empty path means the default location; a missing file is not an
// error. Environment API keys override empty file values.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

// applyEnv fills empty API keys from the conventional variables.
func applyEnv(cfg *Config) {
	fill := func(p *ProviderConfig) {
		if p.APIKey != "" {
			return
		}
		switch domain.AIProvider(p.Provider) {
		case domain.AIProviderMistral:
			p.APIKey = os.Getenv("MISTRAL_API_KEY")
		case domain.AIProviderOpenAI:
			p.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	fill(&cfg.AI.Embedding)
	fill(&cfg.AI.Completion)
}

// Validate rejects impossible settings eagerly, before any adapter is
// built.
func (c Config) Validate() error {
	if !domain.ChunkingStrategy(c.Chunking.Strategy).Valid() {
		return fmt.Errorf("%w: unknown chunking strategy %q",
			domain.ErrConfiguration, c.Chunking.Strategy)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d",
			domain.ErrConfiguration, c.Chunking.ChunkSize)
	}
	if c.Chunking.OverlapSize < 0 || c.Chunking.OverlapSize >= c.Chunking.ChunkSize {
		return fmt.Errorf("%w: overlap_size (%d) must be in [0, chunk_size)",
			domain.ErrConfiguration, c.Chunking.OverlapSize)
	}
	if c.Indexing.BatchWidth <= 0 {
		return fmt.Errorf("%w: batch_width must be positive, got %d",
			domain.ErrConfiguration, c.Indexing.BatchWidth)
	}
	if c.Indexing.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative, got %d",
			domain.ErrConfiguration, c.Indexing.MaxRetries)
	}
	switch domain.QueryStrategy(c.Query.Strategy) {
	case domain.QuerySimple, domain.QuerySubQuestion, domain.QueryRouter, domain.QueryAuto:
	default:
		return fmt.Errorf("%w: unknown query strategy %q",
			domain.ErrConfiguration, c.Query.Strategy)
	}
	if c.Query.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d",
			domain.ErrConfiguration, c.Query.TopK)
	}
	if c.Query.Threshold < 0 || c.Query.Threshold >= 1 {
		return fmt.Errorf("%w: threshold must be in [0, 1), got %g",
			domain.ErrConfiguration, c.Query.Threshold)
	}
	return nil
}

// RetryBaseDelay returns the configured backoff start as a duration.
func (c IndexingConfig) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMS) * time.Millisecond
}

// CallTimeout returns the per-call bound as a duration.
func (c IndexingConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutS) * time.Second
}

// CacheTTL returns the cache time-to-live as a duration.
func (c StorageConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// EmbeddingSettings converts the provider section to domain settings.
// Returns nil when the section is not configured.
func (c AIConfig) EmbeddingSettings() *domain.EmbeddingSettings {
	s := &domain.EmbeddingSettings{
		Provider:          domain.AIProvider(c.Embedding.Provider),
		APIKey:            c.Embedding.APIKey,
		BaseURL:           c.Embedding.BaseURL,
		Model:             c.Embedding.Model,
		RequestsPerSecond: c.Embedding.RequestsPerSecond,
	}
	if !s.IsConfigured() || s.APIKey == "" {
		return nil
	}
	return s
}

// CompletionSettings converts the provider section to domain settings.
// Returns nil when the section is not configured, which disables answer
// synthesis without disabling retrieval.
func (c AIConfig) CompletionSettings() *domain.CompletionSettings {
	s := &domain.CompletionSettings{
		Provider: domain.AIProvider(c.Completion.Provider),
		APIKey:   c.Completion.APIKey,
		BaseURL:  c.Completion.BaseURL,
		Model:    c.Completion.Model,
	}
	if !s.IsConfigured() || s.APIKey == "" {
		return nil
	}
	return s
}

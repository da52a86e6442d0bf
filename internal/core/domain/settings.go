package domain

// AIProvider identifies a remote AI backend.
type AIProvider string

// Supported providers.
const (
	AIProviderMistral AIProvider = "mistral"
	AIProviderOpenAI  AIProvider = "openai"
)

// EmbeddingSettings configures the embedding backend.
type EmbeddingSettings struct {
	Provider AIProvider
	APIKey   string
	BaseURL  string
	Model    string

	// RequestsPerSecond caps the embedding call rate. Zero disables
	// client-side limiting.
	RequestsPerSecond float64
}

// IsConfigured reports whether the settings name a usable provider.
func (s *EmbeddingSettings) IsConfigured() bool {
	return s != nil && s.Provider != "" && s.Model != ""
}

// CompletionSettings configures the answer-synthesis backend.
type CompletionSettings struct {
	Provider AIProvider
	APIKey   string
	BaseURL  string
	Model    string
}

// IsConfigured reports whether the settings name a usable provider.
func (s *CompletionSettings) IsConfigured() bool {
	return s != nil && s.Provider != "" && s.Model != ""
}

// EmbeddingDimensions maps known embedding models to their vector size.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"mistral-embed":          1024,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
	}
}

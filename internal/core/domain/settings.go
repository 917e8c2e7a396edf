package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// TagRankMode defines how tag search selects matching tags.
type TagRankMode string

// Available tag ranking modes.
const (
	// TagRankDeterministic uses tiered string matching only.
	TagRankDeterministic TagRankMode = "deterministic"

	// TagRankLLM asks the LLM to rank candidate tags, falling back to
	// deterministic matching when it fails.
	TagRankLLM TagRankMode = "llm"
)

// IsValid returns true if the tag ranking mode is recognised.
func (m TagRankMode) IsValid() bool {
	switch m {
	case TagRankDeterministic, TagRankLLM:
		return true
	default:
		return false
	}
}

// RequiresLLM returns true if this mode needs an LLM provider.
func (m TagRankMode) RequiresLLM() bool {
	return m == TagRankLLM
}

// String returns the string representation.
func (m TagRankMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m TagRankMode) Description() string {
	switch m {
	case TagRankDeterministic:
		return "Deterministic (tiered string matching)"
	case TagRankLLM:
		return "LLM (model-ranked with deterministic fallback)"
	default:
		return unknownDescription
	}
}

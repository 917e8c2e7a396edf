package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed defaults.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptSegment instructs the segmentation model. The template expects
	// %d (max length) and %s (tag hints) placeholders.
	PromptSegment = "segment"

	// PromptTagRank asks the model to rank vocabulary tags against a query.
	// The template expects %s (query) and %s (tag list) placeholders.
	PromptTagRank = "tag_rank"

	// PromptAnswerSystem is the system policy for retrieval-augmented
	// answering. No format placeholders.
	PromptAnswerSystem = "answer_system"
)

// PromptStoreAware is an optional interface for services that can use custom
// prompts injected after construction.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}

package domain

// UnscopedKB is the scope identifier meaning "search every knowledge base".
const UnscopedKB = "unscoped"

// ScoredFragment pairs a retrieved fragment with its similarity distance.
// Lower scores are more similar.
type ScoredFragment struct {
	Fragment Fragment
	Score    float64
}

// Source is the externally visible provenance of a retrieved fragment.
// The sources list shown to callers is always sorted ascending by score.
type Source struct {
	Title   string  `json:"title"`
	Path    string  `json:"path"`
	Ordinal int     `json:"ordinal"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// AskResult is the outcome of one retrieval-augmented generation call.
type AskResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// TagSearchResult is the outcome of a tag vocabulary search.
type TagSearchResult struct {
	Query       string     `json:"query"`
	MatchedTags []string   `json:"matched_tags"`
	Fragments   []Fragment `json:"fragments"`
	Message     string     `json:"message"`
}

// RetrievalOptions configures a retrieval call.
type RetrievalOptions struct {
	// K is the number of candidates for fixed-k search (default 6).
	K int

	// Threshold is the distance cutoff for threshold retrieval.
	// Candidates with score >= Threshold are discarded.
	Threshold float64

	// KCap bounds the candidate pool for threshold retrieval (default 200).
	KCap int

	// ScopeID restricts results to one knowledge base. UnscopedKB (or empty)
	// searches everything.
	ScopeID string
}

// WithDefaults fills unset option fields.
func (o RetrievalOptions) WithDefaults() RetrievalOptions {
	if o.K <= 0 {
		o.K = 6
	}
	if o.Threshold <= 0 {
		o.Threshold = 1.0
	}
	if o.KCap <= 0 {
		o.KCap = 200
	}
	if o.ScopeID == "" {
		o.ScopeID = UnscopedKB
	}
	return o
}

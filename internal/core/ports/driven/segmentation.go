package driven

import "context"

// SegmentationService splits a window of text into semantically coherent,
// tagged pieces via an external model.
//
// The wire contract is a JSON array of {chunk, tags} objects. Responses must
// be parsed permissively: trailing non-JSON noise is recovered by truncating
// to the last well-formed closing delimiter before giving up on the window.
type SegmentationService interface {
	// Segment splits window text into tagged pieces, each at most maxLen
	// characters with 1-3 short category labels. tagHints is a reference
	// vocabulary the model may reuse or ignore. A malformed response that
	// cannot be recovered returns SegmentResult with Malformed set rather
	// than an error; transport failures return an error.
	Segment(ctx context.Context, window string, maxLen int, tagHints []string) (*SegmentResult, error)

	// ModelName returns the name of the segmentation model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// SegmentedPiece is one tagged piece returned by the segmentation service.
type SegmentedPiece struct {
	Chunk string   `json:"chunk"`
	Tags  []string `json:"tags"`
}

// SegmentResult is the tagged outcome of one segmentation call.
// Either Pieces is populated, or Malformed is true and Raw holds the
// unparseable model output for offline prompt tuning.
type SegmentResult struct {
	Pieces    []SegmentedPiece
	Malformed bool
	Raw       string
}

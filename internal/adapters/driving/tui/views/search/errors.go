package search

import "errors"

// ErrNoRetriever is returned when a search is attempted without a retriever.
var ErrNoRetriever = errors.New("search: retriever not available")

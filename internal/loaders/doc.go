// Package loaders provides implementations of the Loader interface for
// various source formats. Each loader knows how to extract raw text segments
// from specific file extensions.
//
// Loaders are registered with the Registry at startup.
package loaders

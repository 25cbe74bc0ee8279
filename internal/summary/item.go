// Package summary derives a ranked list of context items from the workbench
// and keeps it current.
//
// The pipeline has three stages:
//
//   - Extractor reads a workbench snapshot and builds the items.
//   - Updater watches the store, waits for changes to settle, re-runs the
//     extractor and publishes the result.
//   - Render formats the published list as a prompt block.
package summary

import "unicode/utf8"

// Kind classifies a context item.
type Kind string

const (
	KindFile    Kind = "file"
	KindProject Kind = "project"
	// KindError is reserved for extraction diagnostics and not produced yet.
	KindError Kind = "error"
)

// Fixed relevance per kind. Scores only order items; they are not computed.
const (
	RelevanceActiveFile = 0.9
	RelevanceProject    = 0.6
)

// Default limits.
const (
	DefaultFileExcerptChars   = 1500
	DefaultProjectMaxFiles    = 15
	DefaultPromptExcerptChars = 400
)

const projectItemID = "project:overview"

// Item is one ranked piece of context. Items are values: each extraction
// builds a fresh list and nothing is updated in place.
type Item struct {
	ID        string  `json:"id" yaml:"id"`
	Kind      Kind    `json:"kind" yaml:"kind"`
	Title     string  `json:"title" yaml:"title"`
	Content   string  `json:"content" yaml:"content"`
	Relevance float64 `json:"relevance" yaml:"relevance"`
}

func fileItemID(path string) string {
	return "file:" + path
}

// cloneItems returns a copy callers may keep or modify.
func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// truncate returns at most n leading characters of s, counting code points.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func charCount(s string) int {
	return utf8.RuneCountInString(s)
}

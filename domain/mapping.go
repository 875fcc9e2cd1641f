package domain

import (
	"path/filepath"
	"strings"
)

// BlockMapping is a verified source↔target code-block correspondence.
// HelperSnippets is nil when no helper is referenced, never an empty slice.
type BlockMapping struct {
	PairID         string    `json:"pairId"`
	PairName       string    `json:"pairName"`
	SourceSnippet  string    `json:"sourceSnippet"`
	TargetSnippet  string    `json:"targetSnippet"`
	SourceType     BlockType `json:"sourceType"`
	TargetType     BlockType `json:"targetType"`
	HelperSnippets []string  `json:"helperSnippets,omitempty"`
}

// EmbeddingText is the text embedded for the mapping corpus.
func (m BlockMapping) EmbeddingText() string {
	return m.SourceSnippet + " " + m.TargetSnippet
}

// PairNameFor derives a pair name from a source file path.
func PairNameFor(sourcePath string) string {
	if sourcePath == "" {
		return "unknown"
	}
	base := filepath.Base(sourcePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		return "unknown"
	}
	return name
}

// SourcePair is one discovered PL/SQL file and its Java counterpart.
type SourcePair struct {
	Name       string `json:"name"`
	SourcePath string `json:"sourcePath"`
	TargetPath string `json:"targetPath"`
}

// RetrievalResult is a mapping hit from the corpus with its similarity.
type RetrievalResult struct {
	Mapping BlockMapping `json:"mapping"`
	Score   float64      `json:"score"`
}

package domain

import "strings"

// SymbolKind classifies a framework type by its role.
type SymbolKind string

const (
	KindValueObject SymbolKind = "value-object"
	KindDTO         SymbolKind = "dto"
	KindService     SymbolKind = "service"
	KindContext     SymbolKind = "context"
	KindUtil        SymbolKind = "util"
)

// FrameworkSymbol is a scanned API member exposed as a usage example.
type FrameworkSymbol struct {
	DeclaringType  string     `json:"declaringType"`
	SymbolID       string     `json:"symbolId"`
	Signature      string     `json:"signature"`
	ExampleSnippet string     `json:"exampleSnippet"`
	Kind           SymbolKind `json:"kind"`
	Tags           []string   `json:"tags,omitempty"`
}

// Key identifies a symbol for deduplication.
func (s FrameworkSymbol) Key() string {
	return s.DeclaringType + "\x00" + s.SymbolID + "\x00" + s.Signature
}

// EmbeddingText is the text embedded for the framework corpus.
func (s FrameworkSymbol) EmbeddingText() string {
	return strings.TrimSpace(s.SymbolID + " " + s.Signature + " " + s.ExampleSnippet)
}

// FrameworkHit is a framework symbol surfaced for a question.
type FrameworkHit struct {
	Symbol FrameworkSymbol `json:"symbol"`
	Score  float64         `json:"score"`
}

// DedupeSymbols drops repeated symbols, keeping the first occurrence and
// the input order.
func DedupeSymbols(symbols []FrameworkSymbol) []FrameworkSymbol {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]FrameworkSymbol, 0, len(symbols))
	for _, s := range symbols {
		k := s.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

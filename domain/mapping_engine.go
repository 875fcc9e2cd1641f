package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MappingEngine pairs source blocks with target blocks using a RuleSet.
type MappingEngine struct {
	rules      *RuleSet
	classifier *HelperClassifier
	newID      func() string
}

// NewMappingEngine creates a MappingEngine over rules.
func NewMappingEngine(rules *RuleSet, classifier *HelperClassifier) *MappingEngine {
	if classifier == nil {
		classifier = NewHelperClassifier()
	}
	return &MappingEngine{
		rules:      rules,
		classifier: classifier,
		newID:      func() string { return uuid.New().String() },
	}
}

// Map returns at most one mapping per source block.
//
// Among the primary (non-helper) target blocks some rule accepts, the one
// with the shortest text wins and ties go to the first encountered. The
// chosen block's helpers are the helper declarations of the same target
// file whose identifier it references. Source blocks with no candidate are
// skipped.
func (e *MappingEngine) Map(sourceBlocks, targetBlocks []Block) []BlockMapping {
	tagged := e.classifier.Classify(targetBlocks)

	var helpers, primaries []Block
	for _, b := range tagged {
		if b.IsHelper {
			helpers = append(helpers, b)
		} else {
			primaries = append(primaries, b)
		}
	}

	log.Debug().
		Int("source_blocks", len(sourceBlocks)).
		Int("primary_targets", len(primaries)).
		Int("helpers", len(helpers)).
		Msg("mapping blocks")

	var mappings []BlockMapping
	for _, s := range sourceBlocks {
		chosen, ok := e.choose(s, primaries)
		if !ok {
			unmappedBlocks.WithLabelValues(string(s.Type)).Inc()
			log.Debug().
				Str("type", string(s.Type)).
				Str("source", s.SourcePath).
				Str("text", shorten(s.Text)).
				Msg("no mapping found for source block")
			continue
		}

		m := BlockMapping{
			PairID:         e.newID(),
			PairName:       PairNameFor(s.SourcePath),
			SourceSnippet:  s.Text,
			TargetSnippet:  chosen.Text,
			SourceType:     s.Type,
			TargetType:     chosen.Type,
			HelperSnippets: usedHelpers(chosen, helpers),
		}
		mappings = append(mappings, m)

		log.Debug().
			Str("source", string(s.Type)+":"+shorten(s.Text)).
			Str("target", string(chosen.Type)+":"+shorten(chosen.Text)).
			Int("helpers", len(m.HelperSnippets)).
			Msg("mapped block")
	}
	return mappings
}

func (e *MappingEngine) choose(s Block, candidates []Block) (Block, bool) {
	var best Block
	bestLen, found := 0, false
	for _, t := range candidates {
		if e.rules.equivalent(s, t) == noMatch {
			continue
		}
		if n := utf8.RuneCountInString(t.Text); !found || n < bestLen {
			best, bestLen, found = t, n, true
		}
	}
	return best, found
}

// usedHelpers returns the texts of helpers from chosen's file that chosen
// references, or nil when there are none.
func usedHelpers(chosen Block, helpers []Block) []string {
	var out []string
	for _, h := range helpers {
		if h.SourcePath != chosen.SourcePath {
			continue
		}
		id := declaredIdentifier(h.Text)
		if id != "" && strings.Contains(chosen.Text, id) {
			out = append(out, h.Text)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func shorten(text string) string {
	r := []rune(text)
	if len(r) > 40 {
		return string(r[:37]) + "..."
	}
	return text
}

package domain

import (
	"fmt"
	"math"
	"strings"
)

// Technique names a prompt-construction strategy.
type Technique string

const (
	TechniqueZeroShot          Technique = "ZERO_SHOT"
	TechniqueRAGStandard       Technique = "RAG_STANDARD"
	TechniqueFrameworkFirst    Technique = "FRAMEWORK_FIRST"
	TechniqueFewShot           Technique = "FEW_SHOT"
	TechniqueJSONStructured    Technique = "JSON_STRUCTURED"
	TechniqueCritiqueAndRevise Technique = "CRITIQUE_AND_REVISE"
)

// Techniques lists every technique in display order.
func Techniques() []Technique {
	return []Technique{
		TechniqueZeroShot,
		TechniqueRAGStandard,
		TechniqueFrameworkFirst,
		TechniqueFewShot,
		TechniqueJSONStructured,
		TechniqueCritiqueAndRevise,
	}
}

// Valid reports whether t is one of Techniques.
func (t Technique) Valid() bool {
	for _, known := range Techniques() {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTechnique resolves a technique name case-insensitively. An empty
// name selects RAG_STANDARD.
func ParseTechnique(name string) (Technique, error) {
	if strings.TrimSpace(name) == "" {
		return TechniqueRAGStandard, nil
	}
	want := strings.ToUpper(strings.TrimSpace(name))
	for _, t := range Techniques() {
		if string(t) == want {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown prompting technique %q", ErrInvalidRequest, name)
}

const (
	// PerSnippetCharLimit caps each rendered snippet, in characters.
	PerSnippetCharLimit = 4000
	// DocPromptLimit caps the number of documents rendered into a prompt.
	DocPromptLimit = math.MaxInt

	maxFrameworkGroups   = 4
	maxMembersPerGroup   = 5
	assistantPreamble    = "You are a precise assistant for software code questions.\n"
	truncationMarker     = " …"
	sourcesAppendixTitle = "\n\n---\nSources used (docs/code chunks):\n"
	noSourcesUsed        = "No documents were used."
)

const zeroShotTemplate = assistantPreamble + `Answer the user's question directly and concisely.

=== Task ===
Question: %s
`

const fewShotTemplate = assistantPreamble + `
=== Examples ===
Q: How do I map a PL/SQL cursor to a Java DTO?
A: Describe the cursor columns, then show a Java record/class with matching fields. Provide a minimal mapping snippet.

Q: How can I paginate PL/SQL results in Java?
A: Use rownum/offset in PL/SQL or db-specific pagination; show a Java method calling it and mapping results.

=== Task ===
Question: %s
Provide a clear, step-by-step solution with minimal working snippets.
`

const structuredTemplate = assistantPreamble + `Respond ONLY with a single-line JSON object, no prose.
Required fields: %s

"question": "%s"
`

const critiqueTemplate = assistantPreamble + `
Step 1 - Draft:
Produce a concise solution.

Step 2 - Critique:
List 2-3 risks or mistakes.

Step 3 - Revised Answer:
Provide the improved final answer, clearly labeled.

=== Task ===
Question: %s
`

// ComposePrompt renders the prompt for technique. It is a pure function of
// its inputs; ZERO_SHOT, FEW_SHOT, JSON_STRUCTURED and CRITIQUE_AND_REVISE
// ignore the retrieved hits.
func ComposePrompt(t Technique, question string, docs []RetrievalResult, fw []FrameworkHit, perSnippetLimit, maxDocs int) string {
	switch t {
	case TechniqueZeroShot:
		return fmt.Sprintf(zeroShotTemplate, question)
	case TechniqueFrameworkFirst:
		return composite(question, docs, fw, perSnippetLimit, maxDocs, true)
	case TechniqueFewShot:
		return fmt.Sprintf(fewShotTemplate, question)
	case TechniqueJSONStructured:
		return fmt.Sprintf(structuredTemplate, requiredFieldsLine(), EscapeJSONString(question))
	case TechniqueCritiqueAndRevise:
		return fmt.Sprintf(critiqueTemplate, question)
	default:
		return composite(question, docs, fw, perSnippetLimit, maxDocs, false)
	}
}

func composite(question string, docs []RetrievalResult, fw []FrameworkHit, perSnippetLimit, maxDocs int, frameworkFirst bool) string {
	var sb strings.Builder
	sb.Grow(4096)
	sb.WriteString(assistantPreamble)

	if frameworkFirst {
		renderFramework(&sb, fw)
	}
	renderDocs(&sb, docs, perSnippetLimit, maxDocs)
	if !frameworkFirst {
		renderFramework(&sb, fw)
	}

	sb.WriteString("\n=== Task ===\n")
	sb.WriteString("Question: " + question + "\n")
	sb.WriteString("When you leverage a framework API, cite it like Class#method.")
	return sb.String()
}

func renderFramework(sb *strings.Builder, hits []FrameworkHit) {
	if len(hits) == 0 {
		return
	}
	sb.WriteString("\n=== Framework API Hints (most relevant first) ===\n")

	var order []string
	groups := make(map[string][]FrameworkSymbol)
	for _, h := range hits {
		key := h.Symbol.DeclaringType
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], h.Symbol)
	}

	for i, key := range order {
		if i >= maxFrameworkGroups {
			break
		}
		sb.WriteString("\n# " + key + "\n")
		for j, s := range groups[key] {
			if j >= maxMembersPerGroup {
				break
			}
			fmt.Fprintf(sb, "- %s  (kind=%s)\n", s.SymbolID, s.Kind)
			fmt.Fprintf(sb, "  signature: %s\n", s.Signature)
			fmt.Fprintf(sb, "  snippet:   %s\n", s.ExampleSnippet)
		}
	}
	sb.WriteString("\nUse these APIs exactly when relevant.\n")
}

func renderDocs(sb *strings.Builder, docs []RetrievalResult, perSnippetLimit, maxDocs int) {
	if len(docs) == 0 {
		return
	}
	sb.WriteString("\n=== Relevant Docs / Code Chunks ===\n")
	for i, d := range docs {
		if i >= maxDocs {
			break
		}
		sb.WriteString("\n")
		sb.WriteString(RenderDocHit(i+1, d, perSnippetLimit))
	}
	sb.WriteString("\nUse these references for facts; do not invent details.\n")
}

// RenderDocHit renders one mapping hit: a header with its 1-based index,
// score and ids, the block types, both snippets truncated to limit
// characters, and any helpers.
func RenderDocHit(index int, hit RetrievalResult, limit int) string {
	m := hit.Mapping
	var sb strings.Builder

	fmt.Fprintf(&sb, "[DOC %d | score=%.3f", index, hit.Score)
	if notBlank(m.PairID) {
		sb.WriteString(" | id=" + m.PairID)
	}
	if notBlank(m.PairName) {
		sb.WriteString(" | name=" + m.PairName)
	}
	sb.WriteString("]\n")

	src, tgt := string(m.SourceType), string(m.TargetType)
	if notBlank(src) || notBlank(tgt) {
		sb.WriteString("- types: ")
		if notBlank(src) {
			sb.WriteString("plsql=" + src)
		}
		if notBlank(src) && notBlank(tgt) {
			sb.WriteString(", ")
		}
		if notBlank(tgt) {
			sb.WriteString("java=" + tgt)
		}
		sb.WriteString("\n")
	}

	if notBlank(m.SourceSnippet) {
		sb.WriteString("\n-- PL/SQL\n```\n" + Truncate(m.SourceSnippet, limit) + "\n```\n")
	} else {
		sb.WriteString("\n-- PL/SQL\n(no plsqlSnippet available)\n")
	}
	if notBlank(m.TargetSnippet) {
		sb.WriteString("\n-- Java\n```\n" + Truncate(m.TargetSnippet, limit) + "\n```\n")
	}
	if len(m.HelperSnippets) > 0 {
		sb.WriteString("\n- javaHelpers: " + strings.Join(m.HelperSnippets, ", ") + "\n")
	}
	return sb.String()
}

// SourcesAppendix renders the "sources used" section appended to answers.
func SourcesAppendix(docs []RetrievalResult) string {
	if len(docs) == 0 {
		return noSourcesUsed
	}
	var sb strings.Builder
	for i, d := range docs {
		sb.WriteString("\n")
		sb.WriteString(RenderDocHit(i+1, d, PerSnippetCharLimit))
	}
	return sb.String()
}

// Truncate shortens s to max characters, marking the cut with " …".
func Truncate(s string, max int) string {
	r := []rune(s)
	if max < 0 || len(r) <= max {
		return s
	}
	return string(r[:max]) + truncationMarker
}

var jsonStringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

// EscapeJSONString escapes s for use inside a one-line JSON string literal.
func EscapeJSONString(s string) string {
	return jsonStringEscaper.Replace(s)
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

package domain

import (
	"strings"
	"unicode"
)

// HelperClassifier labels target declarations that are utilities rather
// than the primary translation of a source construct.
type HelperClassifier struct{}

// NewHelperClassifier creates a new HelperClassifier.
func NewHelperClassifier() *HelperClassifier {
	return &HelperClassifier{}
}

// Classify returns blocks with helper declarations flagged. The result has
// the same length and order as the input. Non-declaration blocks, and
// declarations no rule fires on, are returned as given, so an existing
// IsHelper=true is never cleared.
func (c *HelperClassifier) Classify(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		if c.IsHelper(b) {
			out[i] = b.AsHelper()
			continue
		}
		out[i] = b
	}
	return out
}

// IsHelper reports whether a helper rule fires for b.
func (c *HelperClassifier) IsHelper(b Block) bool {
	if !b.Type.IsDeclaration() {
		return false
	}
	h := parseDeclHeader(b.Text)
	if h.restricted() {
		return true
	}
	return h.predicateLike() && !h.overrides()
}

// declHeader is the part of a Java declaration before its parameter list,
// initializer or terminator.
type declHeader struct {
	annotations []string
	modifiers   []string
	returnType  string
	name        string
}

var javaModifiers = map[string]bool{
	"public": true, "protected": true, "private": true, "static": true,
	"final": true, "abstract": true, "synchronized": true, "native": true,
	"default": true, "transient": true, "volatile": true, "strictfp": true,
}

func parseDeclHeader(text string) declHeader {
	var h declHeader
	h.annotations, text = stripAnnotations(text)

	head := text
	if i := strings.IndexAny(head, "(={;"); i >= 0 {
		head = head[:i]
	}

	var rest []string
	for _, tok := range strings.Fields(head) {
		if javaModifiers[tok] {
			h.modifiers = append(h.modifiers, tok)
			continue
		}
		rest = append(rest, tok)
	}
	// Generic type parameters (<T>) may precede the return type.
	if len(rest) > 0 && strings.HasPrefix(rest[0], "<") {
		rest = rest[1:]
	}
	if n := len(rest); n > 0 {
		h.name = rest[n-1]
		h.returnType = strings.Join(rest[:n-1], " ")
	}
	return h
}

// stripAnnotations removes annotations, including parenthesised arguments,
// from a declaration and returns their names.
func stripAnnotations(text string) ([]string, string) {
	var names []string
	var b strings.Builder
	for i := 0; i < len(text); {
		if text[i] != '@' || (i > 0 && !unicode.IsSpace(rune(text[i-1]))) {
			b.WriteByte(text[i])
			i++
			continue
		}
		j := i + 1
		for j < len(text) && (isIdentByte(text[j]) || text[j] == '.') {
			j++
		}
		if j == i+1 || strings.HasPrefix(text[i+1:], "interface") {
			b.WriteByte(text[i])
			i++
			continue
		}
		names = append(names, text[i:j])
		k := j
		for k < len(text) && (text[k] == ' ' || text[k] == '\t') {
			k++
		}
		if k < len(text) && text[k] == '(' {
			depth := 0
			for ; k < len(text); k++ {
				if text[k] == '(' {
					depth++
				} else if text[k] == ')' {
					depth--
					if depth == 0 {
						k++
						break
					}
				}
			}
			j = k
		}
		b.WriteByte(' ')
		i = j
	}
	return names, b.String()
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// restricted reports non-public visibility: private, protected or package
// private. Interface default methods are public without saying so.
func (h declHeader) restricted() bool {
	for _, m := range h.modifiers {
		if m == "public" || m == "default" {
			return false
		}
	}
	return true
}

func (h declHeader) overrides() bool {
	for _, a := range h.annotations {
		if a == "@Override" || strings.HasSuffix(a, ".Override") {
			return true
		}
	}
	return false
}

func (h declHeader) predicateLike() bool {
	rt := h.returnType
	if rt == "boolean" || rt == "Boolean" || strings.Contains(rt, "Predicate") {
		return true
	}
	if strings.Contains(strings.ToLower(h.name), "predicate") {
		return true
	}
	for _, prefix := range []string{"is", "has", "can", "should"} {
		rest, ok := strings.CutPrefix(h.name, prefix)
		if ok && rest != "" && unicode.IsUpper([]rune(rest)[0]) {
			return true
		}
	}
	return false
}

// declaredIdentifier returns the identifier a helper declaration introduces:
// the text before the first "(" or "=" on its first declaration line,
// reduced to its last whitespace-delimited token. Annotations are skipped.
func declaredIdentifier(text string) string {
	_, text = stripAnnotations(text)
	var line string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	i := strings.IndexAny(line, "(=")
	if i < 0 {
		return ""
	}
	fields := strings.Fields(line[:i])
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

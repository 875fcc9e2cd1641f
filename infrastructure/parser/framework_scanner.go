package parser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/andratr/bmtool1/domain"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
)

// FrameworkScanner implements domain.FrameworkScanner. It reads Java
// sources with tree-sitter and turns the public API of every top-level
// type into framework symbols with a usage snippet.
type FrameworkScanner struct{}

// NewFrameworkScanner creates a new FrameworkScanner.
func NewFrameworkScanner() *FrameworkScanner {
	return &FrameworkScanner{}
}

// javaMember is a public method or constructor of a scanned type.
// Constructors have an empty ret.
type javaMember struct {
	name   string
	ret    string
	static bool
	params []string
}

func (m javaMember) isConstructor() bool { return m.ret == "" }

// Scan walks rootDir and returns the symbols of all types whose package
// is one of basePackages or nested below one. Files with syntax errors
// are logged and skipped.
func (s *FrameworkScanner) Scan(ctx context.Context, rootDir string, basePackages []string) ([]domain.FrameworkSymbol, error) {
	var bases []string
	for _, b := range basePackages {
		if b = strings.Trim(strings.TrimSpace(b), "."); b != "" {
			bases = append(bases, b)
		}
	}
	if len(bases) == 0 {
		return nil, fmt.Errorf("%w: at least one base package is required", domain.ErrInvalidRequest)
	}

	var out []domain.FrameworkSymbol
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != rootDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".java") {
			return nil
		}

		symbols, err := s.scanFile(ctx, path, bases)
		if errors.Is(err, domain.ErrMalformedSource) {
			log.Warn().Err(err).Str("file", path).Msg("skipping unparseable framework source")
			return nil
		}
		if err != nil {
			return err
		}
		out = append(out, symbols...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", rootDir, err)
	}

	log.Info().Str("root", rootDir).Strs("packages", bases).Int("symbols", len(out)).Msg("framework scan finished")
	if out == nil {
		out = []domain.FrameworkSymbol{}
	}
	return out, nil
}

func (s *FrameworkScanner) scanFile(ctx context.Context, path string, bases []string) ([]domain.FrameworkSymbol, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(src) == 0 {
		return nil, nil
	}
	tree, err := parseJava(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	pkg := packageName(root, src)
	if !inPackages(pkg, bases) {
		return nil, nil
	}

	var out []domain.FrameworkSymbol
	for _, n := range namedChildren(root) {
		switch n.Type() {
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			out = append(out, typeSymbols(n, pkg, src)...)
		}
	}
	return out, nil
}

func inPackages(pkg string, bases []string) bool {
	for _, b := range bases {
		if pkg == b || strings.HasPrefix(pkg, b+".") {
			return true
		}
	}
	return false
}

func packageName(root *sitter.Node, src []byte) string {
	for _, n := range namedChildren(root) {
		if n.Type() != "package_declaration" {
			continue
		}
		for _, c := range namedChildren(n) {
			if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
				return c.Content(src)
			}
		}
	}
	return ""
}

// typeSymbols lists the public members of one top-level type declaration.
func typeSymbols(decl *sitter.Node, pkg string, src []byte) []domain.FrameworkSymbol {
	nameNode := decl.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	class := nameNode.Content(src)
	declaring := class
	if pkg != "" {
		declaring = pkg + "." + class
	}
	kind := kindOf(pkg)
	baseTags := classTags(class, kind)

	var out []domain.FrameworkSymbol
	for _, m := range publicMembers(decl, class, src) {
		sym := domain.FrameworkSymbol{
			DeclaringType: declaring,
			Kind:          kind,
		}
		if m.isConstructor() {
			sym.SymbolID = class + "#<init>"
			sym.Signature = class + "(" + strings.Join(m.params, ", ") + ")"
			sym.ExampleSnippet = constructorSnippet(class, m, kind)
			sym.Tags = mergeTags(baseTags, []string{"factory"})
		} else {
			sym.SymbolID = class + "#" + m.name
			sym.Signature = methodSignature(m)
			sym.ExampleSnippet = methodSnippet(class, m, kind)
			sym.Tags = mergeTags(baseTags, methodTags(m.name))
		}
		out = append(out, sym)
	}
	return out
}

// publicMembers collects public methods and constructors in declaration
// order, followed by the members the compiler would generate: the default
// constructor of a public class, and the canonical constructor and
// accessors of a public record.
func publicMembers(decl *sitter.Node, class string, src []byte) []javaMember {
	typeKind := decl.Type()
	interfaceLike := typeKind == "interface_declaration"
	typePublic := hasModifier(decl, "public")

	body := decl.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	members := namedChildren(body)
	if typeKind == "enum_declaration" {
		// enum methods live in a nested enum_body_declarations node
		for _, c := range namedChildren(body) {
			if c.Type() == "enum_body_declarations" {
				members = append(members, namedChildren(c)...)
			}
		}
	}

	var (
		out       []javaMember
		seen      = map[string]bool{}
		hasCtor   bool
		methodSet = map[string]bool{}
	)
	add := func(m javaMember) {
		key := m.name + "(" + strings.Join(m.params, ",") + ")"
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, m)
	}

	for _, n := range members {
		switch n.Type() {
		case "method_declaration":
			name := fieldContent(n, "name", src)
			params := parameterTypes(n.ChildByFieldName("parameters"), src)
			if len(params) == 0 {
				methodSet[name] = true
			}
			public := hasModifier(n, "public") || interfaceLike && !hasModifier(n, "private")
			if !public {
				continue
			}
			add(javaMember{
				name:   name,
				ret:    simpleType(fieldContent(n, "type", src)),
				static: hasModifier(n, "static"),
				params: params,
			})
		case "constructor_declaration", "compact_constructor_declaration":
			hasCtor = true
			if !hasModifier(n, "public") {
				continue
			}
			params := parameterTypes(n.ChildByFieldName("parameters"), src)
			if n.Type() == "compact_constructor_declaration" {
				params = parameterTypes(decl.ChildByFieldName("parameters"), src)
			}
			add(javaMember{name: class, params: params})
		}
	}

	switch {
	case typeKind == "class_declaration" && typePublic && !hasCtor:
		add(javaMember{name: class})
	case typeKind == "record_declaration" && typePublic:
		comps := decl.ChildByFieldName("parameters")
		add(javaMember{name: class, params: parameterTypes(comps, src)})
		if comps != nil {
			for _, c := range namedChildren(comps) {
				if c.Type() != "formal_parameter" {
					continue
				}
				name := fieldContent(c, "name", src)
				if methodSet[name] {
					continue
				}
				add(javaMember{name: name, ret: simpleType(fieldContent(c, "type", src))})
			}
		}
	}
	return out
}

// hasModifier reports whether the modifiers of declaration n include word.
func hasModifier(n *sitter.Node, word string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || c.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(c.ChildCount()); j++ {
			if c.Child(j).Type() == word {
				return true
			}
		}
	}
	return false
}

func fieldContent(n *sitter.Node, field string, src []byte) string {
	if c := n.ChildByFieldName(field); c != nil {
		return c.Content(src)
	}
	return ""
}

// parameterTypes returns the simple type names of a formal_parameters
// node. Varargs are reported as arrays.
func parameterTypes(params *sitter.Node, src []byte) []string {
	if params == nil {
		return nil
	}
	var out []string
	for _, p := range namedChildren(params) {
		switch p.Type() {
		case "formal_parameter":
			out = append(out, simpleType(fieldContent(p, "type", src)))
		case "spread_parameter":
			for _, c := range namedChildren(p) {
				if c.Type() != "modifiers" && c.Type() != "variable_declarator" {
					out = append(out, simpleType(c.Content(src))+"[]")
					break
				}
			}
		}
	}
	return out
}

// simpleType reduces a declared type to its erased simple name, keeping
// array brackets: "java.util.List<String>[]" becomes "List[]".
func simpleType(t string) string {
	var b strings.Builder
	depth := 0
	for _, r := range t {
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
		case depth > 0:
		default:
			b.WriteRune(r)
		}
	}

	var fields []string
	for _, f := range strings.Fields(b.String()) {
		if !strings.HasPrefix(f, "@") {
			fields = append(fields, f)
		}
	}
	s := strings.Join(fields, "")

	dims := ""
	if i := strings.Index(s, "["); i >= 0 {
		dims = strings.ReplaceAll(s[i:], " ", "")
		s = s[:i]
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return s + dims
}

func kindOf(pkg string) domain.SymbolKind {
	p := pkg + "."
	switch {
	case strings.Contains(p, ".data."):
		return domain.KindDTO
	case strings.Contains(p, ".model."):
		return domain.KindValueObject
	case strings.Contains(p, ".service."):
		return domain.KindService
	case strings.Contains(pkg, ".foundation"):
		return domain.KindContext
	}
	return domain.KindUtil
}

func classTags(class string, kind domain.SymbolKind) []string {
	tags := []string{string(kind)}
	name := strings.ToLower(class)
	if strings.Contains(name, "date") {
		tags = append(tags, "date")
	}
	if strings.Contains(name, "money") || strings.Contains(name, "monetary") {
		tags = append(tags, "money")
	}
	if strings.Contains(name, "event") {
		tags = append(tags, "event")
	}
	return tags
}

func methodTags(method string) []string {
	n := strings.ToLower(method)
	var tags []string
	if strings.HasPrefix(n, "get") || strings.HasPrefix(n, "set") {
		tags = append(tags, "bean")
	}
	if strings.Contains(n, "parse") {
		tags = append(tags, "parse")
	}
	if strings.Contains(n, "between") {
		tags = append(tags, "range")
	}
	if strings.Contains(n, "zero") || strings.Contains(n, "empty") {
		tags = append(tags, "factory")
	}
	if strings.Contains(n, "signum") || strings.Contains(n, "compare") {
		tags = append(tags, "compare")
	}
	return tags
}

// mergeTags concatenates a and b, dropping repeats and keeping order.
func mergeTags(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, t := range append(append([]string{}, a...), b...) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func methodSignature(m javaMember) string {
	prefix := ""
	if m.static {
		prefix = "static "
	}
	return prefix + m.ret + " " + m.name + "(" + strings.Join(m.params, ", ") + ")"
}

func methodSnippet(class string, m javaMember, kind domain.SymbolKind) string {
	if m.static {
		if m.name == "parse" && len(m.params) == 1 && m.params[0] == "String" {
			return "var x = " + class + `.parse("EUR-100.00");`
		}
		if m.name == "zero" {
			return "var x = " + class + `.zero("EUR");`
		}
	}
	if m.name == "signum" {
		return "if (x.signum() >= 0) { /* ... */ }"
	}
	if kind == domain.KindDTO && strings.HasPrefix(m.name, "set") && len(m.params) == 1 {
		return "var d = new " + class + "();\nd." + m.name + "(" + placeholder(m.params[0]) + ");"
	}
	return "// use " + class + "#" + m.name + "()"
}

func constructorSnippet(class string, m javaMember, kind domain.SymbolKind) string {
	if kind == domain.KindValueObject || kind == domain.KindDTO {
		args := make([]string, len(m.params))
		for i, p := range m.params {
			args[i] = placeholder(p)
		}
		return "var d = new " + class + "(" + strings.Join(args, ", ") + ");"
	}
	return "var x = new " + class + "();"
}

func placeholder(t string) string {
	switch t {
	case "String":
		return `"S"`
	case "int", "Integer":
		return "0"
	case "long", "Long":
		return "0L"
	case "boolean", "Boolean":
		return "false"
	case "BigDecimal":
		return "java.math.BigDecimal.ZERO"
	case "LocalDate":
		return "java.time.LocalDate.now()"
	}
	return "null"
}

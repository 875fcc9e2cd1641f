package parser

import (
	"context"
	"fmt"
	"os"

	"github.com/andratr/bmtool1/domain"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// javaStatementKinds are the tree-sitter node kinds emitted as STATEMENT
// blocks. Local variable declarations are not statements in the Java
// grammar and are left out.
var javaStatementKinds = map[string]bool{
	"expression_statement":         true,
	"if_statement":                 true,
	"while_statement":              true,
	"do_statement":                 true,
	"for_statement":                true,
	"enhanced_for_statement":       true,
	"return_statement":             true,
	"throw_statement":              true,
	"try_statement":                true,
	"try_with_resources_statement": true,
	"break_statement":              true,
	"continue_statement":           true,
	"yield_statement":              true,
	"synchronized_statement":       true,
	"labeled_statement":            true,
	"assert_statement":             true,
	"switch_expression":            true,
}

// JavaExtractor implements domain.BlockExtractor for Java sources.
//
// It is safe for concurrent use; each Extract call creates its own
// tree-sitter parser.
type JavaExtractor struct{}

// NewJavaExtractor creates a new JavaExtractor.
func NewJavaExtractor() *JavaExtractor {
	return &JavaExtractor{}
}

// Extract reads path and returns its METHOD, FIELD and STATEMENT blocks in
// source order. Any syntax error in the file fails the whole extraction.
func (e *JavaExtractor) Extract(ctx context.Context, path string) ([]domain.Block, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(src) == 0 {
		return []domain.Block{}, nil
	}

	tree, err := parseJava(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer tree.Close()

	blocks := domain.FoldBlocks(tree.RootNode(), namedChildren, javaBlockRule, src, path)
	log.Debug().Str("file", path).Int("blocks", len(blocks)).Msg("extracted java blocks")
	if blocks == nil {
		blocks = []domain.Block{}
	}
	return blocks, nil
}

func javaBlockRule(n *sitter.Node) (domain.BlockType, int, int, bool) {
	var t domain.BlockType
	switch kind := n.Type(); {
	case kind == "method_declaration":
		t = domain.BlockMethod
	case kind == "field_declaration" || kind == "constant_declaration":
		t = domain.BlockField
	case javaStatementKinds[kind]:
		t = domain.BlockStatement
	case kind == "block" && n.Parent() != nil && n.Parent().Type() == "block":
		// a bare nested block; method and lambda bodies are not statements
		t = domain.BlockStatement
	default:
		return "", 0, 0, false
	}
	return t, int(n.StartByte()), int(n.EndByte()), true
}

// parseJava parses src and rejects trees containing syntax errors.
func parseJava(ctx context.Context, src []byte) (*sitter.Tree, error) {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())

	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse java: %w", err)
	}
	if root := tree.RootNode(); root.HasError() {
		line := firstErrorLine(root)
		tree.Close()
		return nil, fmt.Errorf("%w: java syntax error near line %d", domain.ErrMalformedSource, line)
	}
	return tree, nil
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// firstErrorLine returns the 1-based line of the first ERROR or MISSING
// node below n, or 0 when none is found.
func firstErrorLine(n *sitter.Node) int {
	if n.Type() == "ERROR" || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || !c.HasError() && !c.IsMissing() {
			continue
		}
		if line := firstErrorLine(c); line > 0 {
			return line
		}
	}
	return 0
}

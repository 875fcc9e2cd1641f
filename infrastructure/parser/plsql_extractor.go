package parser

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/andratr/bmtool1/domain"

	"github.com/rs/zerolog/log"
)

// PLSQLExtractor implements domain.BlockExtractor for PL/SQL sources:
// procedures, functions, package bodies, triggers and anonymous blocks.
type PLSQLExtractor struct{}

// NewPLSQLExtractor creates a new PLSQLExtractor.
func NewPLSQLExtractor() *PLSQLExtractor {
	return &PLSQLExtractor{}
}

// Extract reads path and returns its string assignments, IF statements,
// INSERT statements and exception handlers in source order, nested ones
// included.
func (e *PLSQLExtractor) Extract(_ context.Context, path string) ([]domain.Block, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	blocks, err := extractPLSQL(src, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug().Str("file", path).Int("blocks", len(blocks)).Msg("extracted plsql blocks")
	return blocks, nil
}

func extractPLSQL(src []byte, path string) ([]domain.Block, error) {
	if len(src) == 0 {
		return []domain.Block{}, nil
	}
	root, err := parsePLSQL(src)
	if err != nil {
		return nil, err
	}

	rule := func(n *plsqlNode) (domain.BlockType, int, int, bool) {
		switch n.kind {
		case nodeAssignment:
			if strings.Contains(string(src[n.start:n.end]), "'") {
				return domain.BlockAssignmentConstString, n.start, n.end, true
			}
		case nodeIf:
			return domain.BlockCondition, n.start, n.end, true
		case nodeInsert:
			return domain.BlockInsertStatement, n.start, n.end, true
		case nodeHandler:
			return domain.BlockExceptionHandler, n.start, n.end, true
		}
		return "", 0, 0, false
	}
	children := func(n *plsqlNode) []*plsqlNode { return n.children }

	blocks := domain.FoldBlocks(root, children, rule, src, path)
	if blocks == nil {
		blocks = []domain.Block{}
	}
	return blocks, nil
}

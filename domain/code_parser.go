package domain

import "context"

// BlockExtractor turns one source file into typed blocks. Each call reads
// and parses the file once. An empty file yields no blocks; unparseable
// input yields an error wrapping ErrMalformedSource.
type BlockExtractor interface {
	Extract(ctx context.Context, path string) ([]Block, error)
}

// PairReader discovers source/target file pairs below a root directory.
type PairReader interface {
	DiscoverPairs(ctx context.Context, rootDir string) ([]SourcePair, error)
}

// BlockRule decides whether node n becomes a block. It returns the block
// type and the node's byte span in the source.
type BlockRule[N any] func(n N) (t BlockType, start, end int, ok bool)

// FoldBlocks walks the tree rooted at root in pre-order and emits one Block
// per node accepted by rule. Block text is the exact byte span of the node,
// so formatting and whitespace are preserved. Children of accepted nodes are
// still visited, so an IF nested in an IF yields two blocks.
func FoldBlocks[N any](root N, children func(N) []N, rule BlockRule[N], src []byte, path string) []Block {
	var blocks []Block
	stack := []N{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if t, start, end, ok := rule(n); ok {
			if start >= 0 && end >= start && end <= len(src) {
				blocks = append(blocks, NewBlock(t, string(src[start:end]), path))
			}
		}

		kids := children(n)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return blocks
}

// FrameworkScanner discovers framework API symbols in a source tree,
// limited to packages starting with one of basePackages.
type FrameworkScanner interface {
	Scan(ctx context.Context, rootDir string, basePackages []string) ([]FrameworkSymbol, error)
}

package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andratr/bmtool1/domain"

	"github.com/rs/zerolog/log"
)

var sourceExtensions = map[string]bool{
	".sql":   true,
	".plsql": true,
	".pkb":   true,
	".pks":   true,
}

const targetExtension = ".java"

// PairReader implements domain.PairReader by matching PL/SQL and Java
// files that share a base name anywhere below the root.
type PairReader struct{}

// NewPairReader creates a new PairReader.
func NewPairReader() *PairReader {
	return &PairReader{}
}

// DiscoverPairs walks rootDir and pairs every PL/SQL file with the Java
// file of the same base name. Extensions match case-insensitively. When a
// base name occurs more than once on one side, the last file in walk
// order is kept. Pairs are sorted by name.
func (r *PairReader) DiscoverPairs(ctx context.Context, rootDir string) ([]domain.SourcePair, error) {
	sources := map[string]string{}
	targets := map[string]string{}

	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		name := baseName(d.Name())
		switch {
		case sourceExtensions[ext]:
			remember(sources, name, path)
		case ext == targetExtension:
			remember(targets, name, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", rootDir, err)
	}

	pairs := make([]domain.SourcePair, 0, len(sources))
	for name, src := range sources {
		target, ok := targets[name]
		if !ok {
			log.Debug().Str("file", src).Msg("no java counterpart")
			continue
		}
		pairs = append(pairs, domain.SourcePair{Name: name, SourcePath: src, TargetPath: target})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })

	for _, p := range pairs {
		log.Debug().Str("plsql", p.SourcePath).Str("java", p.TargetPath).Msg("discovered pair")
	}
	log.Info().Str("root", rootDir).Int("pairs", len(pairs)).Msg("pair discovery finished")
	return pairs, nil
}

func remember(m map[string]string, name, path string) {
	if prev, ok := m[name]; ok {
		log.Debug().Str("name", name).Str("replaced", prev).Str("kept", path).Msg("duplicate base name")
	}
	m[name] = path
}

// baseName strips the last extension. Names starting with a dot keep it.
func baseName(file string) string {
	if i := strings.LastIndexByte(file, '.'); i > 0 {
		return file[:i]
	}
	return file
}

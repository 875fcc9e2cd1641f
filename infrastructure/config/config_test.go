package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andratr/bmtool1/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.EqualValues(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, 2, cfg.Ingestion.Workers)
	assert.Equal(t, "plsql_java_mappings", cfg.Qdrant.Collection)
	assert.Equal(t, 0.35, cfg.Carbon.GridKgPerKWh)
	assert.Empty(t, cfg.WatchedFiles())
	assert.Equal(t, "llama3.1", cfg.Providers.ModelFor(cfg.Providers.Default))
	assert.Empty(t, cfg.Providers.ModelFor("bard"))
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeYAML(t, "bmtool.yml", `
http:
  addr: ":9000"
embedding:
  provider: openai
  model: text-embedding-3-small
  dimensions: 1536
qdrant:
  addr: qdrant:6334
ingestion:
  workers: 4
carbon:
  whPerKtkn:
    claude: 2.5
`)
	t.Setenv("QDRANT_ADDR", "override:6334")
	t.Setenv("OPENAI_API_KEY", " sk-test ")
	t.Setenv("BMTOOL_TRACES", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.EqualValues(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, "override:6334", cfg.Qdrant.Addr)
	assert.Equal(t, "sk-test", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, 4, cfg.Ingestion.Workers)
	assert.True(t, cfg.Logging.Traces)
	assert.Equal(t, 2.5, cfg.Carbon.WhPerKTokens["claude"])
	assert.Equal(t, 1.5, cfg.Carbon.WhPerKTokens["llama"], "defaults survive a partial map")
	assert.Equal(t, []string{path}, cfg.WatchedFiles())
}

func TestLoad_Invalid(t *testing.T) {
	path := writeYAML(t, "bad.yml", "embedding:\n  provider: nope\n  dimensions: 0\ningestion:\n  workers: 0\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding.dimensions")
	assert.Contains(t, err.Error(), "embedding.provider")
	assert.Contains(t, err.Error(), "ingestion.workers")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRules_BuiltIn(t *testing.T) {
	rules, err := Default().LoadRules()
	require.NoError(t, err)
	require.Positive(t, rules.Len())

	first := rules.Rules()[0]
	assert.Equal(t, domain.BlockAssignmentConstString, first.SourceType)
	assert.Equal(t, "code", first.SourceContains)
	assert.Equal(t, domain.BlockMethod, first.TargetType)
	assert.Equal(t, "eventcode", first.TargetContains)
}

func TestLoadRules_FromPath(t *testing.T) {
	cfg := Default()
	cfg.Rules.Path = writeYAML(t, "rules.yml", `
rules:
  - sourceType: CONDITION
    targetType: METHOD
    targetContains: isValid
`)
	rules, err := cfg.LoadRules()
	require.NoError(t, err)
	assert.Equal(t, 1, rules.Len())
	assert.Contains(t, cfg.WatchedFiles(), cfg.Rules.Path)
}

func TestParseRules_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":          "rules: []\n",
		"missing target": "rules:\n  - sourceType: CONDITION\n    targetType: METHOD\n",
		"bad pattern":    "rules:\n  - sourceType: CONDITION\n    sourceContains: '('\n    targetType: METHOD\n    targetContains: x\n",
		"not yaml":       "rules: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRules([]byte(doc), name)
			assert.Error(t, err)
		})
	}
}

func TestWatch_FiresOnceOnWrite(t *testing.T) {
	path := writeYAML(t, "bmtool.yml", "http:\n  addr: ':1'\n")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fired := make(chan struct{}, 2)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{path}, 20*time.Millisecond, func() { fired <- struct{}{} })
	}()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: ':2'\n"), 0o644))

	select {
	case <-fired:
	case <-ctx.Done():
		t.Fatal("watch did not fire")
	}
	require.NoError(t, <-done)
	assert.Empty(t, fired)
}

func TestWatch_NoFilesWaitsForContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Watch(ctx, nil, DefaultDebounce, func() { t.Fatal("unexpected change") }))
}

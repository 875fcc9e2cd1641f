package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/andratr/bmtool1/domain"
	"github.com/andratr/bmtool1/infrastructure/config"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := parseDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseDate("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.March, d.Month())

	_, err = parseDate("01/03/2025")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestPrintExperiments(t *testing.T) {
	latency, co2, tokens := 812.4, 0.00123, 420
	list := []domain.Experiment{
		{ID: 2, Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Technique: "FEW_SHOT", LLMModel: "llama3.1",
			EmbeddingModel: "nomic-embed-text", DocHits: 4, KDocs: 6, FrameworkHits: 1, KFramework: 6,
			LatencyMs: &latency, CO2Grams: &co2, TotalTokens: &tokens},
		{ID: 1, Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Technique: "ZERO_SHOT", LLMModel: "gpt-4o-mini"},
	}

	var buf bytes.Buffer
	require.NoError(t, printExperiments(&buf, list))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Equal(t, []string{"2", "2025-03-01", "FEW_SHOT", "llama3.1", "nomic-embed-text", "4/6", "1/6", "812", "0.0012", "420"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "2025-03-01", "ZERO_SHOT", "gpt-4o-mini", "0/0", "0/0", "-", "-", "-"}, strings.Fields(lines[2]))
}

func TestPrintAnswer(t *testing.T) {
	ans := &domain.Answer{
		Text: "Use EventWriter.write",
		DocHits: []domain.RetrievalResult{{
			Mapping: domain.BlockMapping{PairName: "orders", SourceType: domain.BlockInsertStatement, TargetType: domain.BlockMethod},
			Score:   0.91,
		}},
	}

	var buf bytes.Buffer
	printAnswer(&buf, ans, false)
	assert.Equal(t, "Use EventWriter.write\n", buf.String())

	buf.Reset()
	printAnswer(&buf, ans, true)
	assert.Contains(t, buf.String(), "0.910  orders  INSERT_STATEMENT -> METHOD")
	assert.Contains(t, buf.String(), "-- 0 framework hits")
}

func TestAskDefaults(t *testing.T) {
	a := &app{cfg: config.Default()}
	req := a.askDefaults()
	assert.Equal(t, "ollama", req.Provider)
	assert.Equal(t, "llama3.1", req.LLMModel)
	assert.Equal(t, "nomic-embed-text", req.EmbeddingModel)
	assert.Equal(t, domain.TechniqueRAGStandard, req.Technique)
	assert.Equal(t, 6, req.KDocs)
}

func TestAskOptions_Request(t *testing.T) {
	a := &app{cfg: config.Default()}
	cmd := &cobra.Command{Use: "test"}
	opts := addAskFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--provider", "openai", "--tag", "date,money", "--prompting", "zero_shot", "--k-docs", "2"}))

	req, err := opts.request(a)
	require.NoError(t, err)
	assert.Equal(t, "openai", req.Provider)
	assert.Equal(t, "gpt-4o-mini", req.LLMModel)
	assert.Equal(t, []string{"date", "money"}, req.Tags)
	assert.Equal(t, domain.TechniqueZeroShot, req.Technique)
	assert.Equal(t, 2, req.KDocs)
	assert.Equal(t, 6, req.KFramework)

	require.NoError(t, cmd.Flags().Set("prompting", "telepathy"))
	_, err = opts.request(a)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

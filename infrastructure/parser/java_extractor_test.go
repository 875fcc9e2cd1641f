package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/andratr/bmtool1/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventWriterSource = `package com.acme.events;

public class EventWriter {
    private static final String CODE = "EVT";
    private int count;

    public void write(String msg) {
        if (msg == null) {
            return;
        }
        count++;
        log(msg);
    }

    private void log(String msg) {
        System.out.println(msg);
    }
}
`

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestJavaExtractor_Blocks(t *testing.T) {
	path := writeFile(t, t.TempDir(), "EventWriter.java", eventWriterSource)

	blocks, err := NewJavaExtractor().Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{
		`FIELD: private static final String CODE = "EVT";`,
		"FIELD: private int count;",
		"METHOD: public void write(String msg) {\n        if (msg == null) {\n            return;\n        }\n        count++;\n        log(msg);\n    }",
		"STATEMENT: if (msg == null) {\n            return;\n        }",
		"STATEMENT: return;",
		"STATEMENT: count++;",
		"STATEMENT: log(msg);",
		"METHOD: private void log(String msg) {\n        System.out.println(msg);\n    }",
		"STATEMENT: System.out.println(msg);",
	}, blockTexts(blocks))
	for _, b := range blocks {
		assert.Equal(t, path, b.SourcePath)
		assert.False(t, b.IsHelper)
	}
}

func TestJavaExtractor_EmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Empty.java", "")

	blocks, err := NewJavaExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestJavaExtractor_Malformed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Broken.java", "public class {\n  void x( {\n}\n")

	_, err := NewJavaExtractor().Extract(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedSource)
}

func TestJavaExtractor_MissingFile(t *testing.T) {
	_, err := NewJavaExtractor().Extract(context.Background(), filepath.Join(t.TempDir(), "Nope.java"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrMalformedSource)
}

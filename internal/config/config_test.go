package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "whole", cfg.Edit.Format)
	assert.Equal(t, 3, cfg.Chat.MaxReflections)
	assert.True(t, cfg.Git.AutoCommits)
	assert.True(t, cfg.Git.DirtyCommits)
	assert.True(t, cfg.Lint.Auto)
	assert.False(t, cfg.Test.Auto)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
model:
  name: test-model
  max_input_tokens: 1000
edit:
  format: udiff
chat:
  max_reflections: 5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "test-model", cfg.Model.Name)
	assert.Equal(t, 1000, cfg.Model.MaxInputTokens)
	assert.Equal(t, "udiff", cfg.Edit.Format)
	assert.Equal(t, 5, cfg.Chat.MaxReflections)
	// untouched keys keep defaults
	assert.True(t, cfg.Git.AutoCommits)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Chat.MaxReflections, cfg.Chat.MaxReflections)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, DefaultConfigFilename, `{
		"host": "0.0.0.0",
		"port": 9000,
		"ollama_base_url": "http://localhost:11434",
		"default_model": "llama3",
		"fallback_model": "qwen2",
		"system_prompt": {"default": "Be helpful.", "format": "simple_prepend"},
		"retry": {"max_retries": 1, "delay_ms": 50}
	}`)

	mgr := NewManager(dir, testLogger())

	cfg, err := mgr.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "llama3", cfg.DefaultModel)
	assert.Equal(t, "qwen2", cfg.FallbackModel)
	assert.Equal(t, "simple_prepend", cfg.SystemPrompt.Format)
	assert.True(t, cfg.SystemPrompt.IsEnabled())
	assert.Equal(t, 1, cfg.Retry.MaxRetries)
	assert.Equal(t, 50, cfg.Retry.DelayMS)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, DefaultYAMLFilename, `
host: 0.0.0.0
port: 9000
default_model: llama3
system_prompt:
  format: assistant_acknowledgment
  enabled: false
`)

	mgr := NewManager(dir, testLogger())

	cfg, err := mgr.Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "assistant_acknowledgment", cfg.SystemPrompt.Format)
	assert.False(t, cfg.SystemPrompt.IsEnabled())
}

func TestLoadJSONTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, DefaultConfigFilename, `{"port": 7001}`)
	writeConfig(t, dir, DefaultYAMLFilename, `port: 7002`)

	cfg, err := NewManager(dir, testLogger()).Load()
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Port)
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, DefaultConfigFilename, `{}`)

	cfg, err := NewManager(dir, testLogger()).Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultRetryMax, cfg.Retry.MaxRetries)
	assert.Equal(t, DefaultRetryDelayMS, cfg.Retry.DelayMS)
	assert.Equal(t, DefaultSystemPromptFormat, cfg.SystemPrompt.Format)
}

func TestInvalidFormatFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, DefaultConfigFilename, `{"system_prompt": {"format": "shouting"}}`)

	cfg, err := NewManager(dir, testLogger()).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSystemPromptFormat, cfg.SystemPrompt.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewManager(t.TempDir(), testLogger()).Load()
	assert.Error(t, err)
}

func TestGetFallsBackToDefaults(t *testing.T) {
	mgr := NewManager(t.TempDir(), testLogger())

	cfg := mgr.Get()
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultPort, cfg.Port)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir, testLogger())

	require.NoError(t, mgr.Save(&Config{DefaultModel: "llama3"}))
	assert.True(t, mgr.Exists())

	cfg, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, "llama3", cfg.DefaultModel)
	assert.Equal(t, DefaultPort, cfg.Port, "defaults are applied on load")
}

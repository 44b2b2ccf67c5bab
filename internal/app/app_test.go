package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/landcover/internal/config"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)
}

func TestNewLogger_TextAndUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "verbose", "text")

	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	logger.Info("hello")
	assert.True(t, strings.HasPrefix(buf.String(), "time="))
}

func TestCollections_Default(t *testing.T) {
	registry, err := Collections(config.CollectionsConfig{})
	require.NoError(t, err)
	assert.True(t, registry.Has("sentinel-2-l2a"))
}

func TestCollections_Dir(t *testing.T) {
	dir := t.TempDir()
	yaml := `id: custom-l2a
title: Custom L2A
description: Test collection
bands:
  red: B04
  green: B03
  blue: B02
  scl: SCL
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(yaml), 0o644))

	registry, err := Collections(config.CollectionsConfig{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"custom-l2a"}, registry.IDs())
	assert.Equal(t, "B04", registry.AssetKeys("custom-l2a")["red"])
}

func TestCollections_MissingDir(t *testing.T) {
	_, err := Collections(config.CollectionsConfig{Dir: filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}

func TestSessionPolicy(t *testing.T) {
	assert.True(t, SessionPolicy(config.SessionConfig{RetainOnFailure: true}).RetainOnFailure)
	assert.False(t, SessionPolicy(config.SessionConfig{}).RetainOnFailure)
}

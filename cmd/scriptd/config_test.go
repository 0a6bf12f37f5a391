// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/diffeo/go-scripted/backend"
	"github.com/diffeo/go-scripted/cache"
	"github.com/diffeo/go-scripted/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
listen: ":8080"
source: memory
cache: lru:32
cache_ttl: 90s
media_types:
  - text/plain
  - text/html
languages: en,fr
compile: false
shell:
  allow_exec: true
  env:
    - GREETING=hello
`

func TestLoadConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "scriptd.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(sampleConfig), 0o644))

	cfg := defaultConfig()
	require.NoError(t, loadConfig(filename, &cfg))
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "memory", cfg.Source)
	assert.Equal(t, "lru:32", cfg.Cache)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, []string{"text/plain", "text/html"}, cfg.MediaTypes)
	assert.Equal(t, []string{"en", "fr"}, cfg.Languages)
	assert.False(t, cfg.Compile)
	assert.True(t, cfg.Shell.AllowExec)
	assert.Equal(t, []string{"GREETING=hello"}, cfg.Shell.Env)
	// untouched defaults survive
	assert.Equal(t, ".html", cfg.Extension)
	assert.Equal(t, "index", cfg.DefaultName)
}

func TestLoadConfigUnknownKey(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "scriptd.yaml")
	require.NoError(t, os.WriteFile(filename, []byte("listne: \":80\"\n"), 0o644))
	cfg := defaultConfig()
	assert.Error(t, loadConfig(filename, &cfg))
}

func TestFlagsOverride(t *testing.T) {
	flags := flag.NewFlagSet("scriptd", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.String("listen", ":5980", "")
	source := backend.Source{}
	flags.Var(&source, "source", "")
	flags.Duration("cache-ttl", 0, "")
	flags.Bool("compile", true, "")
	flags.String("config", "", "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{
		"-source", "dir:/srv/pages",
		"-cache-ttl", "1m",
		"-compile=false",
		"-config", "ignored.yaml",
	}))

	settings := flagSettings(flags, "config")
	assert.Equal(t, map[string]interface{}{
		"source":    "dir:/srv/pages",
		"cache_ttl": "1m0s",
		"compile":   "false",
	}, settings)

	cfg := defaultConfig()
	require.NoError(t, decodeConfig(settings, &cfg))
	assert.Equal(t, "dir:/srv/pages", cfg.Source)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.Compile)
	assert.Equal(t, ":5980", cfg.Listen)
}

func TestResource(t *testing.T) {
	logger := logrus.New()
	logger.Out = io.Discard
	cfg := defaultConfig()
	cfg.Source = "memory"
	cfg.Cache = "lru:8"
	cfg.CharacterSet = "iso-8859-1"

	resource, err := cfg.resource(context.Background(), logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.Source{}, resource.Source)
	assert.IsType(t, &cache.LRU{}, resource.Cache)
	assert.Equal(t, "iso-8859-1", resource.DefaultCharacterSet)

	cfg.DefaultEngine = "cobol"
	_, err = cfg.resource(context.Background(), logger)
	assert.Error(t, err)

	cfg = defaultConfig()
	cfg.Source = "memory"
	cfg.Cache = "memcached"
	_, err = cfg.resource(context.Background(), logger)
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	cfg := defaultConfig()
	cfg.LogLevel = "debug"
	logger, err := cfg.logger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.Level)

	cfg.LogLevel = "chatty"
	_, err = cfg.logger()
	assert.Error(t, err)
}

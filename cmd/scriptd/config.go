// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/diffeo/go-scripted/backend"
	"github.com/diffeo/go-scripted/embedded"
	"github.com/diffeo/go-scripted/restserver"
	"github.com/diffeo/go-scripted/scripted"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config holds the daemon settings.  Values come from defaultConfig,
// then the YAML file named by -config, then command-line flags.  Keys
// in the file are the flag names with "-" replaced by "_".
type Config struct {
	Listen        string        `mapstructure:"listen"`
	Source        string        `mapstructure:"source"`
	Extension     string        `mapstructure:"extension"`
	Cache         string        `mapstructure:"cache"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	CachePrefix   string        `mapstructure:"cache_prefix"`
	DefaultName   string        `mapstructure:"default_name"`
	DefaultEngine string        `mapstructure:"default_engine"`
	MediaTypes    []string      `mapstructure:"media_types"`
	Languages     []string      `mapstructure:"languages"`
	CharacterSet  string        `mapstructure:"character_set"`
	Compile       bool          `mapstructure:"compile"`
	LogLevel      string        `mapstructure:"log_level"`
	LogRequests   bool          `mapstructure:"log_requests"`
	Shell         ShellConfig   `mapstructure:"shell"`
}

// ShellConfig configures the shell engine.  It can only be set from
// the configuration file.
type ShellConfig struct {
	AllowExec bool     `mapstructure:"allow_exec"`
	Dir       string   `mapstructure:"dir"`
	Env       []string `mapstructure:"env"`
}

func defaultConfig() Config {
	return Config{
		Listen:        ":5980",
		Source:        "dir:.",
		Extension:     ".html",
		Cache:         "lru",
		DefaultName:   restserver.DefaultName,
		DefaultEngine: embedded.ShellEngineName,
		CharacterSet:  scripted.DefaultCharacterSet,
		Compile:       true,
		LogLevel:      "info",
	}
}

// decodeConfig merges loosely typed settings into cfg.  Strings are
// accepted for durations, booleans, and comma-separated lists.
func decodeConfig(input map[string]interface{}, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// loadConfig reads a YAML file into cfg.
func loadConfig(filename string, cfg *Config) error {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	var settings map[string]interface{}
	if err := yaml.Unmarshal(bytes, &settings); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	if err := decodeConfig(settings, cfg); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	return nil
}

// flagSettings collects the flags that were explicitly set, keyed
// the same way as the configuration file.  skip names flags that are
// not settings.
func flagSettings(flags *flag.FlagSet, skip ...string) map[string]interface{} {
	settings := make(map[string]interface{})
	flags.Visit(func(f *flag.Flag) {
		for _, s := range skip {
			if f.Name == s {
				return
			}
		}
		settings[strings.ReplaceAll(f.Name, "-", "_")] = f.Value.String()
	})
	return settings
}

// logger creates the daemon's logger at the configured level.
func (cfg *Config) logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.Level = level
	return logger, nil
}

// manager creates the engine registry, with the shell engine set up
// from the shell settings.
func (cfg *Config) manager() (*embedded.Manager, error) {
	m := embedded.NewManager()
	shell := &embedded.ShellEngine{
		Env:       cfg.Shell.Env,
		Dir:       cfg.Shell.Dir,
		AllowExec: cfg.Shell.AllowExec,
	}
	err := m.Register(embedded.ShellEngineName, func() (embedded.Engine, error) { return shell, nil }, "sh")
	if err == nil {
		err = m.Register(embedded.TemplateEngineName, func() (embedded.Engine, error) { return &embedded.TemplateEngine{}, nil }, "tmpl")
	}
	if err == nil {
		err = m.Register(embedded.MarkdownEngineName, func() (embedded.Engine, error) { return embedded.NewMarkdownEngine(), nil }, "md")
	}
	if err != nil {
		return nil, err
	}
	if _, ok := m.Canonical(cfg.DefaultEngine); !ok {
		return nil, embedded.ErrNoSuchEngine{Name: cfg.DefaultEngine}
	}
	return m, nil
}

// resource builds the script resource: its source, its cache, and an
// embedded-script compiler.
func (cfg *Config) resource(ctx context.Context, logger *logrus.Logger) (*scripted.Resource, error) {
	source := backend.Source{Extension: cfg.Extension}
	if err := source.Set(cfg.Source); err != nil {
		return nil, err
	}
	scripts, err := source.Source()
	if err != nil {
		return nil, err
	}

	cacheBackend := backend.Cache{TTL: cfg.CacheTTL, Prefix: cfg.CachePrefix}
	if err := cacheBackend.Set(cfg.Cache); err != nil {
		return nil, err
	}
	results, err := cacheBackend.Cache(ctx, logger.WithField("cache", cacheBackend.String()))
	if err != nil {
		return nil, err
	}

	manager, err := cfg.manager()
	if err != nil {
		return nil, err
	}
	compiler := &embedded.Compiler{
		Manager:          manager,
		DefaultEngine:    cfg.DefaultEngine,
		AllowCompilation: cfg.Compile,
	}

	resource := scripted.NewResource(scripts, compiler, results)
	resource.DefaultCharacterSet = cfg.CharacterSet
	resource.Logger = logger
	return resource, nil
}

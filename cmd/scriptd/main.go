// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Scriptd serves scripted text resources over HTTP.  Each request path
// names a script, which is run in a fresh container; its output is
// negotiated, cached, or streamed as the script decides.
//
//     scriptd -source dir:./site -extension .html -cache lru:4096
//
// Settings may also be given in a YAML file with -config; flags given
// on the command line take precedence over the file.
package main

import (
	"context"
	"flag"
	"net/http"
	"strings"

	"github.com/diffeo/go-scripted/backend"
	"github.com/diffeo/go-scripted/restserver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := defaultConfig()

	flag.String("listen", cfg.Listen, "[ip]:port for HTTP interface")
	source := backend.Source{}
	_ = source.Set(cfg.Source)
	flag.Var(&source, "source", "impl[:address] of script storage (memory, dir, postgres)")
	flag.String("extension", cfg.Extension, "default file extension for dir sources")
	cache := backend.Cache{}
	_ = cache.Set(cfg.Cache)
	flag.Var(&cache, "cache", "impl[:address] of the output cache (none, lru, redis)")
	flag.Duration("cache-ttl", cfg.CacheTTL, "expiry time of redis cache entries")
	flag.String("default-name", cfg.DefaultName, "script to run for the root path")
	flag.String("default-engine", cfg.DefaultEngine, "engine for code blocks that do not name one")
	flag.String("media-types", strings.Join(restserver.DefaultMediaTypes, ","), "comma-separated media types to offer")
	flag.String("languages", "", "comma-separated languages to offer")
	flag.Bool("compile", cfg.Compile, "keep compiled scripts between requests")
	flag.String("log-level", cfg.LogLevel, "minimum level of log messages")
	flag.Bool("log-requests", cfg.LogRequests, "log all requests")
	configFile := flag.String("config", "", "YAML configuration file")
	flag.Parse()

	if *configFile != "" {
		if err := loadConfig(*configFile, &cfg); err != nil {
			logrus.WithError(err).Fatal("Could not load YAML configuration")
		}
	}
	if err := decodeConfig(flagSettings(flag.CommandLine, "config"), &cfg); err != nil {
		logrus.WithError(err).Fatal("Invalid command-line settings")
	}

	logger, err := cfg.logger()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid log level")
	}

	resource, err := cfg.resource(context.Background(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Could not create scripted resource")
	}

	server := &restserver.Server{
		Resource:    resource,
		DefaultName: cfg.DefaultName,
		MediaTypes:  cfg.MediaTypes,
		Languages:   cfg.Languages,
		Metrics:     restserver.NewMetrics(prometheus.DefaultRegisterer),
		Logger:      logger,
	}
	handler := newHandler(server, prometheus.DefaultGatherer, logger, cfg.LogRequests)

	logger.WithFields(logrus.Fields{
		"listen": cfg.Listen,
		"source": cfg.Source,
		"cache":  cfg.Cache,
	}).Info("Serving scripts")
	if err := http.ListenAndServe(cfg.Listen, handler); err != nil {
		logger.WithError(err).Fatal("HTTP server failed")
	}
}

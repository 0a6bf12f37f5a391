// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"net/http"
	"time"

	"github.com/diffeo/go-scripted/restserver"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
)

// newHandler builds the complete HTTP stack: Prometheus metrics at
// /metrics, scripts everywhere else, behind panic recovery and
// optional request logging.
func newHandler(server *restserver.Server, gatherer prometheus.Gatherer, logger logrus.FieldLogger, logRequests bool) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	restserver.PopulateRouter(r, server)

	recovery := negroni.NewRecovery()
	recovery.PrintStack = false
	n := negroni.New(recovery)
	if logRequests {
		n.Use(requestLogger(logger))
	}
	n.UseHandler(r)
	return n
}

// requestLogger logs one line per request.
func requestLogger(logger logrus.FieldLogger) negroni.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
		start := time.Now()
		next(w, req)
		status := 0
		size := 0
		if rw, ok := w.(negroni.ResponseWriter); ok {
			status = rw.Status()
			size = rw.Size()
		}
		logger.WithFields(logrus.Fields{
			"method":   req.Method,
			"path":     req.URL.Path,
			"status":   status,
			"size":     size,
			"duration": time.Since(start),
			"remote":   req.RemoteAddr,
		}).Info("HTTP request")
	}
}

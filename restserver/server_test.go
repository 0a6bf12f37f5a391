// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diffeo/go-scripted/cache"
	"github.com/diffeo/go-scripted/embedded"
	"github.com/diffeo/go-scripted/memory"
	"github.com/diffeo/go-scripted/restdata"
	"github.com/diffeo/go-scripted/scripted"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t        *testing.T
	source   *memory.Source
	resource *scripted.Resource
	server   *Server
	registry *prometheus.Registry
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	logger := logrus.New()
	logger.Out = io.Discard
	source := memory.New()
	resource := scripted.NewResource(source, &embedded.Compiler{AllowCompilation: true}, cache.NewLRU(16))
	resource.Logger = logger
	registry := prometheus.NewRegistry()
	server := &Server{
		Resource: resource,
		Metrics:  NewMetrics(registry),
		Logger:   logger,
	}
	return &fixture{
		t:        t,
		source:   source,
		resource: resource,
		server:   server,
		registry: registry,
		handler:  NewRouter(server),
	}
}

func (f *fixture) put(name, text string) {
	require.NoError(f.t, f.source.Put(name, text))
}

func (f *fixture) do(method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(target string) *httptest.ResponseRecorder {
	return f.do(http.MethodGet, target, nil)
}

// errorResponse decodes the error in a response.
func (f *fixture) errorResponse(rec *httptest.ResponseRecorder) restdata.ErrorResponse {
	resp, err := restdata.DecodeError(rec.Header().Get("Content-Type"), rec.Body)
	require.NoError(f.t, err)
	assert.Equal(f.t, rec.Header().Get(restdata.RequestIDHeader), resp.RequestID)
	return resp
}

// counter sums the values of a counter family.
func (f *fixture) counter(name string, labels map[string]string) float64 {
	families, err := f.registry.Gather()
	require.NoError(f.t, err)
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue metrics
				}
			}
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestGetString(t *testing.T) {
	f := newFixture(t)
	f.put("hello", "Hello")
	rec := f.get("/hello")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello", rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "5", rec.Header().Get("Content-Length"))
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	assert.NotEmpty(t, rec.Header().Get(restdata.RequestIDHeader))

	assert.Equal(t, 1.0, f.counter("diffeo_scripted_requests_total",
		map[string]string{"method": "GET", "code": "200"}))
	assert.Equal(t, 1.0, f.counter("diffeo_scripted_responses_total",
		map[string]string{"kind": "string"}))
}

func TestRequestIDsDiffer(t *testing.T) {
	f := newFixture(t)
	f.put("hello", "Hello")
	first := f.get("/hello").Header().Get(restdata.RequestIDHeader)
	second := f.get("/hello").Header().Get(restdata.RequestIDHeader)
	assert.NotEqual(t, first, second)
}

func TestNotModified(t *testing.T) {
	f := newFixture(t)
	f.put("page", "<% echo -n dynamic %>")
	rec := f.get("/page")
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = f.do(http.MethodGet, "/page", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Equal(t, 0, rec.Body.Len())
	assert.Equal(t, etag, rec.Header().Get("ETag"))

	rec = f.do(http.MethodGet, "/page", map[string]string{"If-None-Match": `"stale"`})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dynamic", rec.Body.String())
}

func TestHead(t *testing.T) {
	f := newFixture(t)
	f.put("hello", "Hello")
	rec := f.do(http.MethodHead, "/hello", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Content-Length"))
	assert.Equal(t, 0, rec.Body.Len())
}

func TestDefaultName(t *testing.T) {
	f := newFixture(t)
	f.put("index", "Home")
	rec := f.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Home", rec.Body.String())

	f.server.DefaultName = "start"
	f.put("start", "Start")
	assert.Equal(t, "Start", f.get("/").Body.String())
}

func TestEncodedName(t *testing.T) {
	f := newFixture(t)
	f.put("-dash", "dashing")
	f.put("docs/page", "paged")
	assert.Equal(t, "dashing", f.get("/"+restdata.MaybeEncodeName("-dash")).Body.String())
	assert.Equal(t, "paged", f.get("/docs/page").Body.String())

	rec := f.get("/-!!")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.get("/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := f.errorResponse(rec)
	assert.Equal(t, "ErrNoSuchScript", resp.Error)
	assert.Equal(t, "missing", resp.Value)
}

func TestScriptFailure(t *testing.T) {
	f := newFixture(t)
	f.put("bad", "<% exit 1 %>")
	rec := f.get("/bad")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := f.errorResponse(rec)
	assert.Equal(t, "ScriptError", resp.Error)
	assert.Equal(t, "bad", resp.Value)
	assert.Equal(t, 1.0, f.counter("diffeo_scripted_responses_total",
		map[string]string{"kind": "error"}))
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	f.put("hello", "Hello")
	rec := f.do(http.MethodPost, "/hello", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestNotAcceptable(t *testing.T) {
	f := newFixture(t)
	f.put("hello", "Hello")
	rec := f.do(http.MethodGet, "/hello", map[string]string{"Accept": "image/png"})
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)

	rec = f.do(http.MethodGet, "/hello", map[string]string{"Accept": "text/html;q=2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNegotiatedVariant(t *testing.T) {
	f := newFixture(t)
	f.put("variant", "<% container media-type; container language %>")
	rec := f.do(http.MethodGet, "/variant", map[string]string{
		"Accept":          "text/plain",
		"Accept-Language": "fr;q=0.5, de",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain\nde\n", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "de", rec.Header().Get("Content-Language"))
}

func TestCharset(t *testing.T) {
	f := newFixture(t)
	f.put("hello", "Hello")
	rec := f.do(http.MethodGet, "/hello", map[string]string{"Accept-Charset": "iso-8859-1"})
	assert.Equal(t, "text/html; charset=iso-8859-1", rec.Header().Get("Content-Type"))
}

func TestParams(t *testing.T) {
	f := newFixture(t)
	f.put("greet", "Hi <%= $PARAM_NAME %>")
	assert.Equal(t, "Hi bob", f.get("/greet?name=bob&name=alice").Body.String())
}

func TestStreaming(t *testing.T) {
	f := newFixture(t)
	f.put("stream", "a<% container stream && exit %>b")
	rec := f.get("/stream")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ab", rec.Body.String())
	assert.Empty(t, rec.Header().Get("ETag"))
	assert.True(t, rec.Flushed)
	assert.Equal(t, 1.0, f.counter("diffeo_scripted_responses_total",
		map[string]string{"kind": "stream"}))
}

func TestNoContent(t *testing.T) {
	f := newFixture(t)
	f.resource.Cache = nil
	f.put("once", "<% script cache-duration 1h %>x")

	rec := f.get("/once")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "x", rec.Body.String())

	rec = f.get("/once")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, rec.Body.Len())
}

type panicSource struct{}

func (panicSource) Descriptor(context.Context, string) (*scripted.Descriptor, error) {
	panic("boom")
}

func TestPanic(t *testing.T) {
	f := newFixture(t)
	f.resource.Source = panicSource{}
	rec := f.get("/anything")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := f.errorResponse(rec)
	assert.Equal(t, "panic", resp.Error)
	assert.Equal(t, "boom", resp.Message)
	assert.Equal(t, 1.0, f.counter("diffeo_scripted_requests_total",
		map[string]string{"code": "500"}))
}

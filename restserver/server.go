// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"io"
	"net/http"
	"strconv"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-scripted/restdata"
	"github.com/diffeo/go-scripted/scripted"
	"github.com/gorilla/mux"
	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// DefaultName is the script served for the empty path.
const DefaultName = "index"

// DefaultMediaTypes are the media types a server offers if it is not
// configured otherwise.  The first is the default.
var DefaultMediaTypes = []string{"text/html", "text/plain", "application/json", "text/xml"}

// Server serves the scripts of one resource.
type Server struct {
	// Resource holds the scripts.  Required.
	Resource *scripted.Resource

	// DefaultName names the script for the empty path.  If
	// empty, DefaultName (the package constant) is used.
	DefaultName string

	// MediaTypes are the media types offered to clients, in order
	// of preference.  If empty, DefaultMediaTypes is used.
	MediaTypes []string

	// Languages are the languages offered to clients.  If empty,
	// the client's preferred language is passed to scripts as-is.
	Languages []string

	// Metrics, if not nil, receives request metrics.
	Metrics *Metrics

	// Logger receives request diagnostics.  If nil, the logrus
	// standard logger is used.
	Logger logrus.FieldLogger

	// Clock times requests.  If nil, the real clock is used.
	Clock clock.Clock
}

// NewRouter creates a new HTTP handler that serves scripts from the
// URL path root.  For more control over this setup, create a
// mux.Router and call PopulateRouter instead.
func NewRouter(s *Server) http.Handler {
	r := mux.NewRouter()
	PopulateRouter(r, s)
	return r
}

// PopulateRouter adds the script route to an existing
// github.com/gorilla/mux router object.  The route matches every
// path, so other routes must be added first.  This can be used, for
// instance, to place scripts under a subpath:
//
//     r := mux.NewRouter()
//     r.Handle("/metrics", promhttp.Handler())
//     s := r.PathPrefix("/pages").Subrouter()
//     restserver.PopulateRouter(s, server)
func PopulateRouter(r *mux.Router, s *Server) {
	r.Path("/{name:.*}").Name("script").Handler(s)
}

func (s *Server) logger() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

func (s *Server) clock() clock.Clock {
	if s.Clock == nil {
		return clock.New()
	}
	return s.Clock
}

func (s *Server) mediaTypes() []string {
	if len(s.MediaTypes) == 0 {
		return DefaultMediaTypes
	}
	return s.MediaTypes
}

func (s *Server) defaultName() string {
	if s.DefaultName == "" {
		return DefaultName
	}
	return s.DefaultName
}

// request holds the state of one HTTP request.
type request struct {
	server *Server
	req    *http.Request
	resp   *responseWriter
	id     string
	log    logrus.FieldLogger
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := s.clock().Now()
	r := &request{
		server: s,
		req:    req,
		resp:   &responseWriter{ResponseWriter: w},
		id:     uuid.NewV4().String(),
	}
	r.log = s.logger().WithFields(logrus.Fields{
		"request_id": r.id,
		"method":     req.Method,
		"path":       req.URL.Path,
	})
	r.resp.Header().Set(restdata.RequestIDHeader, r.id)

	// Recover from panics by sending an HTTP error.
	defer func() {
		if recovered := recover(); recovered != nil {
			response := restdata.ErrorResponse{RequestID: r.id}
			response.FromPanic(recovered)
			r.log.WithFields(logrus.Fields{
				"panic": response.Message,
				"stack": response.Stack,
			}).Error("Panic serving script")
			if !r.resp.committed {
				r.sendError(http.StatusInternalServerError, response)
			}
		}
		s.Metrics.request(req.Method, r.resp.status, s.clock().Since(start))
	}()

	r.serve()
}

func (r *request) serve() {
	if r.req.Method != http.MethodGet && r.req.Method != http.MethodHead {
		r.resp.Header().Set("Allow", "GET, HEAD")
		r.fail(errMethodNotAllowed{Method: r.req.Method})
		return
	}

	name, err := restdata.MaybeDecodeName(mux.Vars(r.req)["name"])
	if err != nil {
		r.fail(restdata.ErrBadRequest{Err: err})
		return
	}
	if name == "" {
		name = r.server.defaultName()
	}
	r.log = r.log.WithField("script", name)

	variant, err := r.negotiate()
	if err != nil {
		r.fail(err)
		return
	}

	params := make(map[string]string)
	for key, values := range r.req.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	container := r.server.Resource.NewContainer(r.req.Context(), variant, params)
	container.SetLogger(r.log)
	rep, err := container.Include(name)
	if diagnostics := container.ErrorOutput(); diagnostics != "" {
		r.log.WithField("stderr", diagnostics).Debug("Script diagnostics")
	}
	if err != nil {
		r.fail(err)
		return
	}

	switch rep := rep.(type) {
	case nil:
		r.server.Metrics.response("empty")
		r.resp.WriteHeader(http.StatusNoContent)
	case *scripted.StringRepresentation:
		r.sendString(rep.Text(), rep.Attributes())
	default:
		r.sendStream(rep)
	}
}

// negotiate picks the variant for the request's Accept headers.
func (r *request) negotiate() (scripted.Attributes, error) {
	var (
		variant scripted.Attributes
		err     error
	)
	variant.MediaType, err = negotiateMediaType(r.req.Header.Get("Accept"), r.server.mediaTypes())
	if err == nil {
		variant.CharacterSet, err = negotiateCharset(r.req.Header.Get("Accept-Charset"))
	}
	if err == nil {
		variant.Language, err = negotiateLanguage(r.req.Header.Get("Accept-Language"), r.server.Languages)
	}
	return variant, err
}

// setHeaders sets the headers that describe a representation.
func (r *request) setHeaders(attributes scripted.Attributes) {
	h := r.resp.Header()
	if attributes.MediaType != "" {
		h.Set("Content-Type", attributes.ContentType())
	}
	if attributes.Language != "" {
		h.Set("Content-Language", attributes.Language)
	}
	h.Set("Vary", "Accept, Accept-Charset, Accept-Language")
}

// sendString sends complete, cacheable output.
func (r *request) sendString(text string, attributes scripted.Attributes) {
	etag := restdata.ETag(text, attributes)
	r.setHeaders(attributes)
	r.resp.Header().Set("ETag", etag)
	if inm := r.req.Header.Get("If-None-Match"); inm != "" && restdata.MatchETag(inm, etag) {
		r.server.Metrics.response("not_modified")
		r.resp.WriteHeader(http.StatusNotModified)
		return
	}
	r.server.Metrics.response("string")
	r.resp.Header().Set("Content-Length", strconv.Itoa(len(text)))
	r.resp.WriteHeader(http.StatusOK)
	if r.req.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(r.resp, text); err != nil {
		r.log.WithError(err).Warn("Failed to send script output")
	}
}

// sendStream sends output produced while the script runs.  By the
// time the script can fail the status line is gone, so failures can
// only be logged.
func (r *request) sendStream(rep scripted.Representation) {
	r.server.Metrics.response("stream")
	r.setHeaders(rep.Attributes())
	r.resp.WriteHeader(http.StatusOK)
	if r.req.Method == http.MethodHead {
		return
	}
	n, err := rep.WriteTo(r.resp)
	if err != nil {
		r.log.WithError(err).WithField("bytes", n).Error("Streaming script failed")
	}
}

// fail sends an error response.
func (r *request) fail(err error) {
	response := restdata.ErrorResponse{RequestID: r.id}
	response.FromError(err)
	status := restdata.Status(err)
	log := r.log.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		r.server.Metrics.response("error")
		log.Error("Script request failed")
	} else {
		log.Debug("Script request rejected")
	}
	r.sendError(status, response)
}

func (r *request) sendError(status int, response restdata.ErrorResponse) {
	r.resp.Header().Set("Content-Type", restdata.JSONMediaType)
	r.resp.WriteHeader(status)
	if r.req.Method == http.MethodHead {
		return
	}
	if err := restdata.EncodeError(r.resp, response); err != nil {
		r.log.WithError(err).Warn("Failed to send error response")
	}
}

// responseWriter remembers the status code, and passes flushes
// through to the underlying writer.
type responseWriter struct {
	http.ResponseWriter
	status    int
	committed bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.committed {
		return
	}
	w.status = code
	w.committed = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

func (w *responseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

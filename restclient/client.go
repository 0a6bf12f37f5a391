// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restclient provides an HTTP client for the scripted REST
// server in the "restserver" package.
//
// Call New() with the base URL of the service; for instance,
//
//     c, err := restclient.New("http://localhost:8080/")
//     page, err := c.Get(ctx, "index", "text/html")
package restclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/diffeo/go-scripted/restdata"
	"github.com/jtacoma/uritemplates"
)

// ScriptTemplate is the URI template for a script, relative to the
// base URL.  It has one parameter, "name", which should be encoded
// with restdata.MaybeEncodeName.
const ScriptTemplate = "./{+name}"

// Client talks to a scripted REST server.
type Client struct {
	// URL is the base URL of the server.
	URL *url.URL

	// HTTPClient performs requests.  If nil, uses
	// http.DefaultClient.
	HTTPClient *http.Client

	template *uritemplates.UriTemplate
}

// New creates a client for the server at baseURL, which must be an
// absolute URL.
func New(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, errors.New("restclient: base URL must be absolute")
	}
	tmpl, err := uritemplates.Parse(ScriptTemplate)
	if err != nil {
		return nil, err
	}
	return &Client{URL: u, template: tmpl}, nil
}

// Request describes a request for a script.
type Request struct {
	// Name is the name of the script.  The empty name asks for
	// the server's default script.
	Name string

	// Accept, AcceptCharset, and AcceptLanguage are sent as the
	// corresponding HTTP headers, if not empty.
	Accept         string
	AcceptCharset  string
	AcceptLanguage string

	// IfNoneMatch is an entity tag from an earlier Page.  If the
	// output has not changed, the returned Page has NotModified
	// set and no text.
	IfNoneMatch string

	// Params are sent as query parameters.
	Params url.Values
}

// Page is a script's output.
type Page struct {
	Text        string
	ContentType string
	Language    string
	ETag        string
	RequestID   string
	NotModified bool
}

// ScriptURL returns the URL of a named script.
func (c *Client) ScriptURL(name string) (*url.URL, error) {
	expanded, err := c.template.Expand(map[string]interface{}{
		"name": restdata.MaybeEncodeName(name),
	})
	if err != nil {
		return nil, err
	}
	return c.URL.Parse(expanded)
}

// Get retrieves a script's output, asking for a media type.
func (c *Client) Get(ctx context.Context, name, accept string) (*Page, error) {
	return c.Do(ctx, Request{Name: name, Accept: accept})
}

// Do performs a request for a script.
func (c *Client) Do(ctx context.Context, r Request) (page *Page, err error) {
	u, err := c.ScriptURL(r.Name)
	if err != nil {
		return nil, err
	}
	if len(r.Params) > 0 {
		u.RawQuery = r.Params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for header, value := range map[string]string{
		"Accept":          r.Accept,
		"Accept-Charset":  r.AcceptCharset,
		"Accept-Language": r.AcceptLanguage,
		"If-None-Match":   r.IfNoneMatch,
	} {
		if value != "" {
			req.Header.Set(header, value)
		}
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = firstError(err, resp.Body.Close())
	}()

	if err = checkHTTPStatus(resp); err != nil {
		return nil, err
	}

	page = &Page{
		ContentType: resp.Header.Get("Content-Type"),
		Language:    resp.Header.Get("Content-Language"),
		ETag:        resp.Header.Get("ETag"),
		RequestID:   resp.Header.Get(restdata.RequestIDHeader),
		NotModified: resp.StatusCode == http.StatusNotModified,
	}
	body, err := readBody(resp)
	page.Text = body
	return page, err
}

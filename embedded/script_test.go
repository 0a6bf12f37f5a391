// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package embedded

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-scripted/cache"
	"github.com/diffeo/go-scripted/memory"
	"github.com/diffeo/go-scripted/scripted"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t        *testing.T
	clock    *clock.Mock
	source   *memory.Source
	resource *scripted.Resource
}

func newFixture(t *testing.T, allowCompilation bool) *fixture {
	clk := clock.NewMock()
	clk.Add(24 * time.Hour)
	source := memory.NewWithClock(clk)
	compiler := &Compiler{AllowCompilation: allowCompilation, Clock: clk}
	resource := scripted.NewResource(source, compiler, cache.NewLRU(16))
	resource.Clock = clk
	return &fixture{t: t, clock: clk, source: source, resource: resource}
}

func (f *fixture) put(name, text string) {
	require.NoError(f.t, f.source.Put(name, text))
}

func (f *fixture) container(params map[string]string) *scripted.Container {
	return f.resource.NewContainer(context.Background(), scripted.Attributes{MediaType: "text/html"}, params)
}

// render includes name in a new container and returns the complete
// output.
func (f *fixture) render(name string, params map[string]string) (string, scripted.Representation) {
	rep, err := f.container(params).Include(name)
	require.NoError(f.t, err)
	require.NotNil(f.t, rep)
	var buf bytes.Buffer
	_, err = rep.WriteTo(&buf)
	require.NoError(f.t, err)
	return buf.String(), rep
}

func TestShellCode(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", "a<% echo -n b %>c")
	out, _ := f.render("main", nil)
	assert.Equal(t, "abc", out)
}

func TestShellVariablesPersist(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", "<% X=hello %>[<%= $X %>]")
	out, _ := f.render("main", nil)
	assert.Equal(t, "[hello]", out)
}

func TestShellParams(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", "<%= $PARAM_USER_NAME %>/<% container param user-name %>")
	out, _ := f.render("main", map[string]string{"user-name": "bob"})
	assert.Equal(t, "bob/bob\n", out)
}

func TestShellAttributes(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", "<% container media-type text/plain; container media-type %>")
	out, rep := f.render("main", nil)
	assert.Equal(t, "text/plain\n", out)
	assert.Equal(t, "text/plain", rep.Attributes().MediaType)
}

func TestShellInclude(t *testing.T) {
	f := newFixture(t, true)
	f.put("header", "<% echo -n H %>")
	f.put("main", "<% container include header %>-<%& header %>.")
	out, _ := f.render("main", nil)
	assert.Equal(t, "H-H.", out)
}

func TestShellIncludeMissing(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", "<%& header %>")
	_, err := f.container(nil).Include("main")
	assert.True(t, scripted.IsScriptError(err))
	assert.ErrorAs(t, err, &scripted.ErrNoSuchScript{})
}

func TestShellStream(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", "before<% container stream && exit %>after")
	out, rep := f.render("main", nil)
	assert.IsType(t, &scripted.StreamingRepresentation{}, rep)
	assert.Equal(t, "beforeafter", out)
}

func TestShellStop(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", "a<% exit %>b")
	out, _ := f.render("main", nil)
	assert.Equal(t, "a", out)
}

func TestShellExitStatus(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", "a<% exit 3 %>b")
	_, err := f.container(nil).Include("main")
	var scriptErr *scripted.ScriptError
	require.ErrorAs(t, err, &scriptErr)
	assert.Equal(t, "main", scriptErr.Name)
	assert.Equal(t, "shell", scriptErr.Engine)
}

func TestShellSyntaxError(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", "<% if then %>")
	_, err := f.container(nil).Include("main")
	assert.True(t, scripted.IsScriptError(err))
}

func TestShellNoExec(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", "<% ls %>")
	c := f.container(nil)
	_, err := c.Include("main")
	require.NoError(t, err)
	assert.Contains(t, c.ErrorOutput(), "ls: command not found")
}

func TestShellCacheDuration(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", "<% script cache-duration 1m %><%= $PARAM_N %>")

	out, _ := f.render("main", map[string]string{"n": "1"})
	assert.Equal(t, "1", out)

	out, _ = f.render("main", map[string]string{"n": "2"})
	assert.Equal(t, "1", out, "output within the cache duration")

	f.clock.Add(2 * time.Minute)
	out, _ = f.render("main", map[string]string{"n": "3"})
	assert.Equal(t, "3", out)
}

func TestCacheDurationWithStream(t *testing.T) {
	f := newFixture(t, true)
	f.put("big", `<%template {{cacheDuration "1h"}}{{if streaming}}body {{index .Params "n"}}{{else}}{{stream}}{{end}}%>`)

	out, rep := f.render("big", map[string]string{"n": "1"})
	assert.IsType(t, &scripted.StreamingRepresentation{}, rep)
	assert.Equal(t, " body 1", out)

	f.clock.Add(time.Minute)
	out, rep = f.render("big", map[string]string{"n": "2"})
	assert.IsType(t, &scripted.StreamingRepresentation{}, rep)
	assert.Equal(t, " body 2", out)
}

func TestShellCacheDurationWithStream(t *testing.T) {
	f := newFixture(t, true)
	f.put("big", "<% script cache-duration 1h; container stream && exit %>body")

	out, rep := f.render("big", nil)
	assert.IsType(t, &scripted.StreamingRepresentation{}, rep)
	assert.Equal(t, "body", out)

	out, rep = f.render("big", nil)
	assert.IsType(t, &scripted.StreamingRepresentation{}, rep)
	assert.Equal(t, "body", out)
}

func TestNoCompilation(t *testing.T) {
	f := newFixture(t, false)
	f.put("main", "<% X=${X:-0}; echo -n $((X+1)) %>")
	out, _ := f.render("main", nil)
	assert.Equal(t, "1", out)
	out, _ = f.render("main", nil)
	assert.Equal(t, "1", out)
}

func TestIncludeWithEngine(t *testing.T) {
	f := newFixture(t, true)
	f.put("plain", "echo -n hi")
	rep, err := f.container(nil).IncludeWith("plain", "sh")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = rep.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "hi", buf.String())
}

func TestTemplate(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", `<%template Hello {{.Params.name}}{{setMediaType "text/plain"}}%>`)
	out, rep := f.render("main", map[string]string{"name": "world"})
	assert.Equal(t, " Hello world", out)
	assert.Equal(t, "text/plain", rep.Attributes().MediaType)
}

func TestTemplateInclude(t *testing.T) {
	f := newFixture(t, true)
	f.put("header", "<% echo -n H %>")
	f.put("main", `<%template {{include "header"}}-{{.Name}}%>`)
	out, _ := f.render("main", nil)
	assert.Equal(t, " H-main", out)
}

func TestTemplateStream(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", `<%template {{if streaming}}streamed{{else}}{{stream}}{{end}}%>`)
	out, rep := f.render("main", nil)
	assert.IsType(t, &scripted.StreamingRepresentation{}, rep)
	assert.Equal(t, " streamed", out)
}

func TestMarkdown(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", "<%markdown\n# Title\n%>")
	out, _ := f.render("main", nil)
	assert.Equal(t, "<h1>Title</h1>\n", out)
}

func TestEngineSwitch(t *testing.T) {
	f := newFixture(t, true)
	f.put("main", `<%= "a" %><%template {{"b"}}%><%= "c" %>`)
	out, _ := f.render("main", nil)
	assert.Equal(t, "a bc", out)
}

func TestRunWithoutContainer(t *testing.T) {
	script, err := (&Compiler{}).Compile("direct", "a<% echo -n b %>", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	ran, err := script.Run(&scripted.Invocation{Name: "direct", Out: &buf})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "ab", buf.String())

	script, err = (&Compiler{}).Compile("direct", "<% container stream %>", "")
	require.NoError(t, err)
	_, err = script.Run(&scripted.Invocation{Name: "direct"})
	assert.True(t, scripted.IsScriptError(err))
}

func TestCompileUnterminated(t *testing.T) {
	_, err := (&Compiler{}).Compile("bad", "a<% echo", "")
	assert.True(t, scripted.IsScriptError(err))
}

// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package embedded

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// MarkdownEngineName is the canonical name of the markdown engine.
const MarkdownEngineName = "markdown"

// MarkdownEngine renders Markdown segments as HTML.
type MarkdownEngine struct {
	md goldmark.Markdown
}

// NewMarkdownEngine creates a markdown engine supporting
// GitHub-flavored Markdown.
func NewMarkdownEngine() *MarkdownEngine {
	return &MarkdownEngine{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Name returns MarkdownEngineName.
func (e *MarkdownEngine) Name() string {
	return MarkdownEngineName
}

// Compile keeps the Markdown source; rendering happens on every run.
func (e *MarkdownEngine) Compile(code string) (Program, error) {
	return &markdownProgram{engine: e, source: []byte(code)}, nil
}

// Expression treats expr as Markdown.
func (e *MarkdownEngine) Expression(expr string) string {
	return expr
}

type markdownProgram struct {
	engine *MarkdownEngine
	source []byte
}

func (p *markdownProgram) Run(rc *RunContext) error {
	return p.engine.md.Convert(p.source, rc.Out)
}

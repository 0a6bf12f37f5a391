// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package embedded

import (
	"text/template"
	"time"

	"github.com/diffeo/go-scripted/scripted"
)

// TemplateEngineName is the canonical name of the template engine.
const TemplateEngineName = "template"

// TemplateEngine runs text/template code.  The template sees a
// TemplateData as ".", and functions to control its container.
type TemplateEngine struct{}

// TemplateData is the data passed to templates.
type TemplateData struct {
	Name    string
	Params  map[string]string
	Variant scripted.Attributes
}

// Name returns TemplateEngineName.
func (e *TemplateEngine) Name() string {
	return TemplateEngineName
}

// Compile parses template code.
func (e *TemplateEngine) Compile(code string) (Program, error) {
	tmpl, err := template.New("script").Funcs(templateFuncs(nil)).Parse(code)
	if err != nil {
		return nil, err
	}
	return &templateProgram{tmpl: tmpl}, nil
}

// Expression wraps expr in an action.
func (e *TemplateEngine) Expression(expr string) string {
	return "{{" + expr + "}}"
}

type templateProgram struct {
	tmpl *template.Template
}

func (p *templateProgram) Run(rc *RunContext) error {
	// Functions are bound to the run, so each run gets its own
	// copy of the parsed template
	tmpl, err := p.tmpl.Clone()
	if err != nil {
		return err
	}
	tmpl.Funcs(templateFuncs(rc))

	data := TemplateData{Name: rc.Name}
	if container, err := rc.Container(); err == nil {
		data.Params = container.Params()
		data.Variant = container.Variant()
	}
	return tmpl.Execute(rc.Out, data)
}

// templateFuncs builds the functions templates may call.  rc may be
// nil when only the names matter, at parse time.
func templateFuncs(rc *RunContext) template.FuncMap {
	container := func() (*scripted.Container, error) {
		return rc.Container()
	}
	return template.FuncMap{
		"include": func(name string) (string, error) {
			return "", rc.Include(name)
		},
		"stream": func() (bool, error) {
			c, err := container()
			if err != nil {
				return false, err
			}
			return c.Stream(), nil
		},
		"streaming": func() (bool, error) {
			c, err := container()
			if err != nil {
				return false, err
			}
			return c.IsStreaming(), nil
		},
		"param": func(name string) (string, error) {
			c, err := container()
			if err != nil {
				return "", err
			}
			return c.Params()[name], nil
		},
		"mediaType": func() (string, error) {
			c, err := container()
			if err != nil {
				return "", err
			}
			return c.MediaType(), nil
		},
		"setMediaType": func(value string) (string, error) {
			c, err := container()
			if err != nil {
				return "", err
			}
			return "", c.SetMediaType(value)
		},
		"language": func() (string, error) {
			c, err := container()
			if err != nil {
				return "", err
			}
			return c.Language(), nil
		},
		"setLanguage": func(value string) (string, error) {
			c, err := container()
			if err != nil {
				return "", err
			}
			return "", c.SetLanguage(value)
		},
		"characterSet": func() (string, error) {
			c, err := container()
			if err != nil {
				return "", err
			}
			return c.CharacterSet(), nil
		},
		"setCharacterSet": func(value string) (string, error) {
			c, err := container()
			if err != nil {
				return "", err
			}
			return "", c.SetCharacterSet(value)
		},
		"cacheDuration": func(value string) (string, error) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return "", err
			}
			rc.Script().SetCacheDuration(d)
			return "", nil
		},
	}
}

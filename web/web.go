// Package web embeds the dashboard templates and static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
)

//go:embed templates static
var files embed.FS

const layout = "templates/layouts/base.html"

// TemplateCache holds parsed page templates keyed by file name.
type TemplateCache map[string]*template.Template

// ParseTemplates parses every page together with the base layout.
func ParseTemplates(funcs template.FuncMap) (TemplateCache, error) {
	cache := make(TemplateCache)

	pages, err := fs.Glob(files, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		name := path.Base(page)

		tmpl, err := template.New(path.Base(layout)).Funcs(funcs).ParseFS(files, layout, page)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}

		cache[name] = tmpl
	}

	return cache, nil
}

// Static returns the embedded static assets rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

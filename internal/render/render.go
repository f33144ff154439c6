// Package render provides the HTML renderer for server-side pages.
package render

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.UGCPolicy()

// TemplateRegistry renders a page template inside base.html
type TemplateRegistry struct {
	templates map[string]*template.Template
}

// NewTemplateRegistry parses every named page together with base.html from fsys
func NewTemplateRegistry(fsys fs.FS, pages ...string) (*TemplateRegistry, error) {
	funcs := template.FuncMap{"markdown": Markdown}
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(fsys, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		templates[page] = tmpl
	}
	return &TemplateRegistry{templates: templates}, nil
}

func (t *TemplateRegistry) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.templates[name]
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}
	return tmpl.ExecuteTemplate(w, "base.html", data)
}

// Markdown converts a post body to sanitized HTML
func Markdown(source string) template.HTML {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(source))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	unsafe := markdown.Render(doc, renderer)

	return template.HTML(sanitizer.SanitizeBytes(unsafe))
}

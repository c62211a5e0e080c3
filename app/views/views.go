// Package views renders the server-side HTML pages
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

// Page names
const (
	PageHome    = "home"
	PageCounter = "counter"
	PageError   = "error"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is the data every page template receives
type Page struct {
	Title string
	Data  any
}

// ErrorPage is the data of the failure page
type ErrorPage struct {
	Heading   string
	Message   string
	RequestID string
}

// Renderer holds one parsed template set per page, each combined with the shared layout
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageHome, PageCounter, PageError} {
		tmpl, err := template.New(name).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render executes the named page and returns the HTML
func (r *Renderer) Render(name string, page Page) ([]byte, error) {
	tmpl, ok := r.pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return nil, fmt.Errorf("failed to render %s page: %w", name, err)
	}
	return buf.Bytes(), nil
}

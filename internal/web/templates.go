package web

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
)

//go:embed templates
var embedded embed.FS

// Templates returns the page templates bundled with the binary.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplateEngine handles HTML template rendering.
// Templates use [[ ]] delimiters.
type TemplateEngine struct {
	fsys      fs.FS
	templates *template.Template
}

// NewTemplateEngine creates a new template engine reading from fsys.
func NewTemplateEngine(fsys fs.FS) *TemplateEngine {
	return &TemplateEngine{fsys: fsys}
}

// Load parses every top-level .html file. Pages under pages/ are parsed on demand.
func (te *TemplateEngine) Load() error {
	tmpl := template.New("").Delims("[[", "]]").Funcs(template.FuncMap{
		"join": strings.Join,
	})

	matches, err := fs.Glob(te.fsys, "*.html")
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return errors.New("no layout templates found")
	}
	if _, err := tmpl.ParseFS(te.fsys, matches...); err != nil {
		return err
	}

	te.templates = tmpl
	return nil
}

// Render renders page name inside the layout.
func (te *TemplateEngine) Render(w io.Writer, name string, data any) error {
	tmpl, err := te.page(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// RenderContent renders only the content block of page name.
func (te *TemplateEngine) RenderContent(w io.Writer, name string, data any) error {
	tmpl, err := te.page(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "content", data)
}

func (te *TemplateEngine) page(name string) (*template.Template, error) {
	if te.templates == nil {
		return nil, errors.New("templates not loaded")
	}

	// Clone base templates and parse the page on top
	tmpl, err := te.templates.Clone()
	if err != nil {
		return nil, err
	}
	return tmpl.ParseFS(te.fsys, path.Join("pages", name+".html"))
}

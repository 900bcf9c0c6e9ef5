package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"home",
	"about",
	"eligibility",
	"contact",
	"application",
	"blog_index",
	"blog_post",
	"not_found",
}

// page is the data every template receives.
type page struct {
	Title      string
	Nav        string
	Year       int
	Notice     string
	Error      string
	Newsletter string
	Path       string
	Data       interface{}
}

type pageRenderer struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"lower": strings.ToLower,
	"add":   func(a, b int) int { return a + b },
}

func newPageRenderer() (*pageRenderer, error) {
	r := &pageRenderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (p *pageRenderer) render(w http.ResponseWriter, status int, name string, data page) error {
	t, ok := p.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (s *Server) newPage(r *http.Request, title, nav string) page {
	return page{
		Title:      title,
		Nav:        nav,
		Year:       time.Now().Year(),
		Newsletter: r.URL.Query().Get("newsletter"),
		Path:       r.URL.Path,
	}
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data page) {
	if err := s.pages.render(w, status, name, data); err != nil {
		s.logger.Error("render page failed", map[string]interface{}{
			"page":  name,
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusNotFound, "not_found", s.newPage(r, "Not found", ""))
}

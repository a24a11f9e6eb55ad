// Package web - шаблоны и статика консоли.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin/render"
	"go.uber.org/zap"
)

//go:embed templates static
var assets embed.FS

const (
	layoutFile      = "layout.html"
	layoutTemplate  = "layout"
	partialsPattern = "partials/*.html"
)

// TemplateRenderer реализует render.HTMLRender для gin.
//
// Имя с суффиксом .html - страница: layout.html + partials + сама страница, исполняется "layout".
// Любое другое имя - фрагмент из partials (ответ на htmx-запрос).
type TemplateRenderer struct {
	fsys    fs.FS
	debug   bool // если true, шаблоны перечитываются с диска при каждом рендере
	funcMap template.FuncMap
	logger  *zap.Logger

	pages    map[string]*template.Template
	partials *template.Template
}

var _ render.HTMLRender = (*TemplateRenderer)(nil)

// NewTemplateRenderer создает рендерер. templateDir == "" - встроенные шаблоны,
// иначе шаблоны читаются из каталога при каждом запросе (удобно при разработке).
func NewTemplateRenderer(templateDir string, logger *zap.Logger) (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		funcMap: FuncMap(),
		logger:  logger.Named("TemplateRenderer"),
	}
	if templateDir != "" {
		r.fsys = os.DirFS(templateDir)
		r.debug = true
	} else {
		sub, err := fs.Sub(assets, "templates")
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded templates: %w", err)
		}
		r.fsys = sub
	}
	pages, partials, err := r.load()
	if err != nil {
		return nil, err
	}
	r.pages, r.partials = pages, partials
	r.logger.Info("Templates loaded", zap.Int("pages", len(pages)), zap.Bool("reload", r.debug))
	return r, nil
}

// load разбирает partials и каждую страницу в отдельный набор шаблонов.
func (r *TemplateRenderer) load() (map[string]*template.Template, *template.Template, error) {
	partials, err := template.New("").Funcs(r.funcMap).ParseFS(r.fsys, partialsPattern)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse partial templates: %w", err)
	}

	names, err := fs.Glob(r.fsys, "*.html")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list page templates: %w", err)
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		if name == layoutFile {
			continue
		}
		base, err := partials.Clone()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to clone partials for %s: %w", name, err)
		}
		tmpl, err := base.ParseFS(r.fsys, layoutFile, name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, partials, nil
}

// Instance реализует render.HTMLRender.
func (r *TemplateRenderer) Instance(name string, data any) render.Render {
	pages, partials := r.current()

	if strings.HasSuffix(name, ".html") {
		tmpl, ok := pages[name]
		if !ok {
			r.logger.Error("Page template not found", zap.String("template", name))
			return missingTemplate{name: name}
		}
		return render.HTML{Template: tmpl, Name: layoutTemplate, Data: data}
	}
	if partials == nil || partials.Lookup(name) == nil {
		r.logger.Error("Partial template not found", zap.String("template", name))
		return missingTemplate{name: name}
	}
	return render.HTML{Template: partials, Name: name, Data: data}
}

func (r *TemplateRenderer) current() (map[string]*template.Template, *template.Template) {
	if r.debug {
		pages, partials, err := r.load()
		if err == nil {
			return pages, partials
		}
		r.logger.Error("Failed to reload templates, using previous set", zap.Error(err))
	}
	return r.pages, r.partials
}

type missingTemplate struct {
	name string
}

func (m missingTemplate) Render(w http.ResponseWriter) error {
	return fmt.Errorf("template %s not found", m.name)
}

func (missingTemplate) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "text/html; charset=utf-8")
	}
}

// StaticFS - встроенные статические файлы (css) для router.StaticFS.
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		// embed гарантирует наличие каталога
		panic(err)
	}
	return http.FS(sub)
}

// TemplateNames возвращает имена страниц (для тестов и логов).
func (r *TemplateRenderer) TemplateNames() []string {
	pages, _ := r.current()
	names := make([]string, 0, len(pages))
	for name := range pages {
		names = append(names, name)
	}
	return names
}

package echoapi

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
	appfs "github.com/trezcool/khollendar/fs"
)

const (
	pagesDir      = "templates/pages"
	partialsDir   = "templates/partials"
	layoutFile    = "_layout.gohtml"
	partialPrefix = "partial:"

	inputTimeLayout = "2006-01-02T15:04"
)

var (
	weekdays = [...]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"}
	months   = [...]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août",
		"septembre", "octobre", "novembre", "décembre"}
)

type (
	// pageView is the data of every page and partial; handler data lives in Data.
	pageView struct {
		AppName   string
		Title     string
		User      *Claims
		CSRF      string
		Animation animationView
		Data      interface{}
	}

	animationView struct {
		DurationMS int64
		Easing     string
	}

	renderer struct {
		conf     *core.Config
		pages    map[string]*template.Template
		partials *template.Template
	}
)

var _ echo.Renderer = (*renderer)(nil) // interface compliance check

func newRenderer(conf *core.Config) (*renderer, error) {
	return parseTemplates(appfs.FS, conf)
}

func parseTemplates(fsys fs.FS, conf *core.Config) (*renderer, error) {
	r := &renderer{conf: conf, pages: make(map[string]*template.Template)}

	partials, err := template.New("partials").Funcs(templateFuncs).ParseFS(fsys, path.Join(partialsDir, "*.gohtml"))
	if err != nil {
		return nil, errors.Wrap(err, partialsDir)
	}
	r.partials = partials

	fps, err := fs.Glob(fsys, path.Join(pagesDir, "*.gohtml"))
	if err != nil {
		return nil, err
	}
	for _, fp := range fps {
		fname := path.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		tmpl, err := template.New(fname).Funcs(templateFuncs).ParseFS(
			fsys,
			path.Join(pagesDir, layoutFile),
			path.Join(partialsDir, "*.gohtml"),
			fp,
		)
		if err != nil {
			return nil, errors.Wrap(err, fp)
		}
		r.pages[strings.TrimSuffix(fname, path.Ext(fname))] = tmpl
	}
	return r, nil
}

func partialName(name string) string { return partialPrefix + name }

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	if strings.HasPrefix(name, partialPrefix) {
		return r.partials.ExecuteTemplate(w, strings.TrimPrefix(name, partialPrefix), data)
	}
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("page template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, layoutFile, data)
}

func (r *renderer) view(ctx echo.Context, title string, data interface{}) pageView {
	v := pageView{
		AppName: r.conf.AppName,
		Title:   title,
		CSRF:    csrfToken(ctx),
		Animation: animationView{
			DurationMS: r.conf.Ranking.AnimationDuration.Milliseconds(),
			Easing:     r.conf.Ranking.Easing,
		},
		Data: data,
	}
	if claims, err := getContextClaims(ctx); err == nil {
		v.User = &claims
	}
	return v
}

func (r *renderer) renderPage(ctx echo.Context, code int, page, title string, data interface{}) error {
	if wantsJSON(ctx) {
		return ctx.JSON(code, data)
	}
	return ctx.Render(code, page, r.view(ctx, title, data))
}

func (r *renderer) renderPartial(ctx echo.Context, code int, partial string, data interface{}) error {
	if wantsJSON(ctx) {
		return ctx.JSON(code, data)
	}
	return ctx.Render(code, partialName(partial), r.view(ctx, "", data))
}

// render answers htmx requests with partial, and other requests with the full page.
func (r *renderer) render(ctx echo.Context, page, partial, title string, data interface{}) error {
	if isHTMX(ctx) && partial != "" {
		return r.renderPartial(ctx, http.StatusOK, partial, data)
	}
	return r.renderPage(ctx, http.StatusOK, page, title, data)
}

func staticHandler() echo.HandlerFunc {
	sub, err := fs.Sub(appfs.FS, "static")
	if err != nil {
		panic(err)
	}
	return echo.WrapHandler(http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
}

var templateFuncs = template.FuncMap{
	"inc":         func(i int) int { return i + 1 },
	"date":        formatDate,
	"time":        func(t time.Time) string { return t.Local().Format("15:04") },
	"inputTime":   func(t time.Time) string { return t.Local().Format(inputTimeLayout) },
	"statusLabel": func(s kholle.Status) string { return s.Label() },
	"firstSlot": func(s kholle.Session) time.Time {
		t, _ := s.FirstSlot()
		return t
	},
	"toJSON": func(v interface{}) (string, error) {
		data, err := json.Marshal(v)
		return string(data), err
	},
	"percent": func(f float64) string { return fmt.Sprintf("%.1f %%", f) },
}

// formatDate formats t in French, e.g. "lundi 2 mars 2026 à 09:00".
func formatDate(t time.Time) string {
	t = t.Local()
	return fmt.Sprintf("%s %d %s %d à %s", weekdays[t.Weekday()], t.Day(), months[t.Month()-1], t.Year(), t.Format("15:04"))
}

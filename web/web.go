// Package web embeds the dashboard templates and static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Pages lists every page template; each is parsed together with base.html.
var Pages = []string{
	"index.html",
	"logs.html",
	"logs_by_day.html",
	"no_result.html",
	"list.html",
	"chart.html",
	"chart2.html",
	"import.html",
	"error.html",
}

// Funcs are the helpers available to every template.
var Funcs = template.FuncMap{
	"statusClass": func(status string) string {
		switch status {
		case "no_result":
			return "is-danger"
		case "", "success":
			return "is-success"
		default:
			return "is-info"
		}
	},
	"seconds": func(f float64) string {
		return fmt.Sprintf("%.3f", f)
	},
	// dir picks the text direction for a cell holding s.
	"dir": func(s string) string {
		if hasArabic(s) {
			return "rtl"
		}
		return "ltr"
	},
	"add": func(a, b int) int { return a + b },
}

func hasArabic(s string) bool {
	for _, r := range s {
		if r >= 0x0600 && r <= 0x06FF {
			return true
		}
	}
	return false
}

// ParsePages parses each page with the base layout, keyed by file name.
func ParsePages() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(Pages))
	for _, page := range Pages {
		t, err := template.New("").Funcs(Funcs).ParseFS(templateFS, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("templates (%s): %w", page, err)
		}
		out[page] = t
	}
	return out, nil
}

// Static returns the static asset tree rooted at its own directory.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

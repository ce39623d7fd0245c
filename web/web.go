// Package web holds the HTML templates of the board UI.
package web

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.tmpl
var files embed.FS

// Templates parses the embedded templates with the helpers they use.
func Templates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"ago": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return time.Since(t).Round(time.Second).String() + " ago"
		},
	}
	return template.New("").Funcs(funcMap).ParseFS(files, "templates/*.tmpl")
}

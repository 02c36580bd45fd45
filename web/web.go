// Package web embeds the HTML pages served by the controllers
package web

import (
	"embed"
	"html/template"
	"net/url"
)

//go:embed templates/*.html
var templateFS embed.FS

// UploadsPath is where stored photos are served from
const UploadsPath = "/uploads"

// Templates parses every page together with the shared layout. Pages are
// looked up by file name, e.g. "index.html".
func Templates() (*template.Template, error) {
	return template.New("").
		Funcs(template.FuncMap{
			"uploadURL": func(name string) string {
				return UploadsPath + "/" + url.PathEscape(name)
			},
		}).
		ParseFS(templateFS, "templates/*.html")
}

// Package assets embeds the browser front end served at "/" and "/static/*".
package assets

import (
	"embed"
	"io/fs"
)

//go:embed web
var FS embed.FS

// Static returns the web directory as a root file system (index.html, app.js, style.css).
func Static() (fs.FS, error) {
	return fs.Sub(FS, "web")
}

// Package web serves the rank API and a small search page over HTTP.
// Binds to localhost by default; there is no auth.
package web

import "embed"

//go:embed static/index.html
var staticFS embed.FS

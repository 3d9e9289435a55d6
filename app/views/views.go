package views

import "embed"

// FS holds the HTML templates
//
//go:embed layout.html posts/*.html auth/*.html
var FS embed.FS

// Package web carries the console's HTML templates and static assets,
// compiled into the binary.
package web

import "embed"

// Templates holds layouts/, partials/ and pages/. view.Engine parses one
// template set per page.
//
//go:embed templates/layouts/*.html templates/partials/*.html templates/pages/*.html
var Templates embed.FS

// Static is served under /static/.
//
//go:embed static/css
var Static embed.FS

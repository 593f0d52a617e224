// Package web bundles the server-rendered templates and static assets into
// the binary so deployments are a single executable.
package web

import "embed"

// Templates holds the layout, partial, page and PDF document templates.
//
//go:embed templates
var Templates embed.FS

// Static holds the stylesheet and the POS autocomplete script.
//
//go:embed static
var Static embed.FS

package web

import "embed"

// Templates embeds HTML templates.
//
//go:embed templates/*/*.html
var Templates embed.FS

// Static embeds static assets.
//
//go:embed static/*/*
var Static embed.FS

// Content embeds the YAML sources of the static content pages.
//
//go:embed content/*.yaml
var Content embed.FS

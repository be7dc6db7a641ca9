package web

import "embed"

// Templates embeds the text templates used for terminal output.
//
//go:embed templates/*.tmpl
var Templates embed.FS

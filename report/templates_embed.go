package report

import "embed"

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// Package templates embeds the HTML templates so the binary and the tests
// render the same pages regardless of the working directory.
package templates

import "embed"

//go:embed *.tmpl
var FS embed.FS

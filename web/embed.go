// Package web embeds the HTML templates served by the page handlers.
package web

import "embed"

//go:embed templates/*.html
var Templates embed.FS

// Pages lists the page templates rendered inside templates/base.html
var Pages = []string{"index.html", "post.html"}

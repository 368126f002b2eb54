package core

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize strips all HTML from user supplied text and returns plain (unescaped) text.
// Escaping is left to the output: templates, JSON, spreadsheets.
func Sanitize(s string) string {
	return CleanString(html.UnescapeString(strictPolicy.Sanitize(s)))
}

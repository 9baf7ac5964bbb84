package parser

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// CleanText strips markup from feed or page fragments and collapses whitespace.
func CleanText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	return collapseSpace(html.UnescapeString(strictPolicy.Sanitize(fragment)))
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

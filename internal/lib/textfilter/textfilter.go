// Package textfilter renders user supplied plain text as safe HTML.
package textfilter

import (
	"strings"

	"mvdan.cc/xurls/v2"
)

var (
	strict = xurls.Strict()

	compat = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)

	newlines = strings.NewReplacer(
		"\r\n", "<br />\r\n",
		"\n", "<br />\n",
		"\r", "<br />\r",
	)
)

// EscapeCompat escapes &, <, > and double quotes. Single quotes are kept.
func EscapeCompat(s string) string {
	return compat.Replace(s)
}

// Text2HTML escapes s, turns URLs into links and newlines into <br />.
func Text2HTML(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	last := 0
	for _, loc := range strict.FindAllStringIndex(s, -1) {
		b.WriteString(EscapeCompat(s[last:loc[0]]))

		u := EscapeCompat(s[loc[0]:loc[1]])
		b.WriteString(`<a href="`)
		b.WriteString(u)
		b.WriteString(`" target="_blank">`)
		b.WriteString(u)
		b.WriteString(`</a>`)

		last = loc[1]
	}
	b.WriteString(EscapeCompat(s[last:]))

	return newlines.Replace(b.String())
}

// Filter is the function form used by services.
type Filter func(string) string

// Package format converts the loosely Markdown-like text produced by the
// model into structured HTML for display. It is a pure string transform: no
// side effects, deterministic, and idempotent on fully or partially
// accumulated streamed text, so callers may re-run it after every chunk.
package format

import (
	"regexp"
	"strings"
)

// Rule order matters and is fixed:
//  1. numbered items are preserved literally (never re-numbered),
//  2. '#' headings,
//  3. standalone '**heading**' lines,
//  4. inline bold before italics (a single-asterisk rule running first
//     would consume the double-asterisk markers),
//  5. bullets last.
var (
	reNumbered    = regexp.MustCompile(`^\d+\.\s`)
	reHeading     = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	reBoldHeading = regexp.MustCompile(`^\*\*([^*]+)\*\*:?\s*$`)
	reBold        = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reItalic      = regexp.MustCompile(`\*([^*\s][^*]*)\*`)
	reBullet      = regexp.MustCompile(`^[-•]\s+(.*)$`)
)

// Explanation renders text as HTML. Lines already in HTML form pass through
// untouched, which is what makes repeated application a no-op.
func Explanation(text string) string {
	lines := strings.Split(text, "\n")
	var (
		out    []string
		inList bool
	)
	closeList := func() {
		if inList {
			out = append(out, "</ul>")
			inList = false
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")

		switch {
		case strings.TrimSpace(trimmed) == "":
			closeList()
			out = append(out, "")

		case reNumbered.MatchString(strings.TrimSpace(trimmed)):
			// Original numbering is kept verbatim; only inline emphasis is
			// rendered inside the item.
			closeList()
			out = append(out, "<p>"+inline(strings.TrimSpace(trimmed))+"</p>")

		case reHeading.MatchString(trimmed):
			closeList()
			m := reHeading.FindStringSubmatch(trimmed)
			level := len(m[1])
			if level > 4 {
				level = 4
			}
			tag := []string{"h1", "h2", "h3", "h4"}[level-1]
			out = append(out, "<"+tag+">"+inline(m[2])+"</"+tag+">")

		case reBoldHeading.MatchString(strings.TrimSpace(trimmed)):
			closeList()
			m := reBoldHeading.FindStringSubmatch(strings.TrimSpace(trimmed))
			out = append(out, "<h4>"+m[1]+"</h4>")

		case reBullet.MatchString(strings.TrimSpace(trimmed)):
			if !inList {
				out = append(out, "<ul>")
				inList = true
			}
			m := reBullet.FindStringSubmatch(strings.TrimSpace(trimmed))
			out = append(out, "<li>"+inline(m[1])+"</li>")

		case isHTMLLine(strings.TrimSpace(trimmed)):
			closeList()
			out = append(out, strings.TrimSpace(trimmed))

		default:
			closeList()
			out = append(out, "<p>"+inline(strings.TrimSpace(trimmed))+"</p>")
		}
	}
	closeList()

	return strings.Join(out, "\n")
}

// inline renders bold then italics within a line.
func inline(s string) string {
	s = reBold.ReplaceAllString(s, "<strong>$1</strong>")
	s = reItalic.ReplaceAllString(s, "<em>$1</em>")
	return s
}

// isHTMLLine reports whether a line is already rendered markup. Such lines
// pass through unchanged so the transform is idempotent.
func isHTMLLine(s string) bool {
	return strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">")
}

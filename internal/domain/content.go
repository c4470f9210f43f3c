// Proposition codec for the brace-delimited node content format. A node's
// content is a list of propositions rendered as "{p1},{p2},...". Parsing and
// encoding live here so no other package splits the format by hand.
package domain

import "strings"

// Propositions parses brace-delimited content into its proposition list.
// Text outside braces is ignored; empty propositions are dropped. Content
// with no braces at all is treated as a single proposition when non-blank.
func Propositions(content string) []string {
	if !strings.ContainsRune(content, '{') {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}
	var out []string
	rest := content
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			break
		}
		close := strings.IndexByte(rest[open:], '}')
		if close < 0 {
			break
		}
		p := strings.TrimSpace(rest[open+1 : open+close])
		if p != "" {
			out = append(out, p)
		}
		rest = rest[open+close+1:]
	}
	return out
}

// EncodePropositions renders a proposition list back into the stored
// brace-delimited form. Blank entries are skipped.
func EncodePropositions(props []string) string {
	var b strings.Builder
	first := true
	for _, p := range props {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		b.WriteByte('{')
		b.WriteString(p)
		b.WriteByte('}')
		first = false
	}
	return b.String()
}

// FlattenContent strips the brace delimiters and collapses whitespace,
// yielding plain prose for prompts that want readable text rather than the
// stored list form.
func FlattenContent(content string) string {
	stripped := strings.NewReplacer("{", "", "}", "").Replace(content)
	return strings.Join(strings.Fields(stripped), " ")
}

package patch

import (
	"regexp"
	"strings"
)

// stringProp matches `key: <string literal>` for any of the three JS quote styles.
func stringProp(key string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(key) + `\s*:\s*(?:"[^"\n]*"|'[^'\n]*'|` + "`[^`]*`" + `)`)
}

// setOrInjectProp replaces the first string assignment matched by prop with
// assignment, or inserts assignment as the first property of the object
// opened by the first match of any of objects. ok is false when neither is possible.
func setOrInjectProp(src string, prop *regexp.Regexp, assignment string, objects []*regexp.Regexp) (string, bool) {
	if loc := prop.FindStringIndex(src); loc != nil {
		return src[:loc[0]] + assignment + src[loc[1]:], true
	}
	for _, re := range objects {
		if loc := re.FindStringIndex(src); loc != nil {
			return injectAt(src, loc[1], assignment+","), true
		}
	}
	return src, false
}

// injectAt inserts text right after the opening brace ending at pos, matching
// the layout of the object that follows.
func injectAt(src string, pos int, text string) string {
	rest := src[pos:]
	trimmed := strings.TrimLeft(rest, " \t\r\n")
	ws := rest[:len(rest)-len(trimmed)]

	prefix := " "
	if i := strings.LastIndex(ws, "\n"); i >= 0 {
		prefix = ws[i:]
		if strings.HasPrefix(trimmed, "}") {
			prefix += "  "
		}
	}
	return src[:pos] + prefix + text + rest
}

package normalize

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	attrRef = regexp.MustCompile(`(?i)\b(src|href)(\s*=\s*)("([^"]*)"|'([^']*)')`)
	cssURL  = regexp.MustCompile(`(?i)url\(([^)]+)\)`)
)

// RewriteHTML rewrites src and href attribute values in start and
// self-closing tags. Text, comments and script bodies are copied byte for byte.
func (r Rewriter) RewriteHTML(src []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(src))
	z := html.NewTokenizer(bytes.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// Raw holds any trailing bytes the tokenizer could not form into a token.
			out.Write(z.Raw())
			break
		}
		raw := z.Raw()
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			out.Write(r.rewriteTag(raw))
			continue
		}
		out.Write(raw)
	}
	return out.Bytes()
}

func (r Rewriter) rewriteTag(raw []byte) []byte {
	return attrRef.ReplaceAllFunc(raw, func(m []byte) []byte {
		sub := attrRef.FindSubmatch(m)
		quoted := sub[3]
		quote := quoted[0]
		value := string(quoted[1 : len(quoted)-1])
		fixed := r.Rewrite(value)
		if fixed == value {
			return m
		}
		var b bytes.Buffer
		b.Write(sub[1])
		b.Write(sub[2])
		b.WriteByte(quote)
		b.WriteString(fixed)
		b.WriteByte(quote)
		return b.Bytes()
	})
}

// RewriteCSS rewrites url(...) references, keeping the original quoting.
func (r Rewriter) RewriteCSS(src []byte) []byte {
	return cssURL.ReplaceAllFunc(src, func(m []byte) []byte {
		inner := string(cssURL.FindSubmatch(m)[1])
		value := trimQuotes(inner)
		fixed := r.Rewrite(value)
		if fixed == value {
			return m
		}
		switch {
		case strings.ContainsRune(inner, '"'):
			return []byte(`url("` + fixed + `")`)
		case strings.ContainsRune(inner, '\''):
			return []byte(`url('` + fixed + `')`)
		default:
			return []byte(`url(` + fixed + `)`)
		}
	})
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	for len(s) > 0 && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == '"' || s[len(s)-1] == '\'') {
		s = s[:len(s)-1]
	}
	return s
}

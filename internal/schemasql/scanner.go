package schemasql

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenWord   tokenKind = iota // bare identifier, keyword or number
	tokenQuoted                  // "ident", `ident` or [ident]
	tokenString                  // 'literal'
	tokenGroup                   // a balanced (...) group, kept whole
	tokenPunct                   // any other single character
)

// token is one lexical unit. raw is the source text; value is the unquoted
// form for quoted identifiers and strings, and raw otherwise.
type token struct {
	kind  tokenKind
	raw   string
	value string
}

// upper returns the keyword form of a bare word, or "" for other tokens.
func (t token) upper() string {
	if t.kind != tokenWord {
		return ""
	}
	return strings.ToUpper(t.raw)
}

// identifier reports whether the token can name a table or column.
func (t token) identifier() bool {
	return t.kind == tokenWord || t.kind == tokenQuoted || t.kind == tokenString
}

// inner returns the text between the parentheses of a group token.
func (t token) inner() string {
	if t.kind != tokenGroup || len(t.raw) < 2 {
		return ""
	}
	return t.raw[1 : len(t.raw)-1]
}

// tokenize splits s into tokens. Parenthesised groups are returned as a
// single token so that commas nested inside them never split a list.
// Comments are dropped.
func tokenize(s string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			i++
		case c == '-' && strings.HasPrefix(s[i:], "--"):
			i = skipLineComment(s, i)
		case c == '/' && strings.HasPrefix(s[i:], "/*"):
			end, err := skipBlockComment(s, i)
			if err != nil {
				return nil, err
			}
			i = end
		case c == '\'' || c == '"' || c == '`' || c == '[':
			end, err := skipQuoted(s, i)
			if err != nil {
				return nil, err
			}
			raw := s[i:end]
			kind := tokenQuoted
			if c == '\'' {
				kind = tokenString
			}
			tokens = append(tokens, token{kind: kind, raw: raw, value: unquote(raw)})
			i = end
		case c == '(':
			end, err := skipGroup(s, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenGroup, raw: s[i:end], value: s[i:end]})
			i = end
		case c == ')':
			return nil, fmt.Errorf("unbalanced ')' at offset %d", i)
		case isWordByte(c):
			start := i
			for i < len(s) && isWordByte(s[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenWord, raw: s[start:i], value: s[start:i]})
		default:
			_, size := utf8.DecodeRuneInString(s[i:])
			tokens = append(tokens, token{kind: tokenPunct, raw: s[i : i+size], value: s[i : i+size]})
			i += size
		}
	}
	return tokens, nil
}

// isWordByte accepts identifier characters. Bytes of multi-byte UTF-8
// sequences are treated as letters, as SQLite does.
func isWordByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c >= 0x80
}

func skipLineComment(s string, i int) int {
	if nl := strings.IndexByte(s[i:], '\n'); nl >= 0 {
		return i + nl + 1
	}
	return len(s)
}

func skipBlockComment(s string, i int) (int, error) {
	end := strings.Index(s[i+2:], "*/")
	if end < 0 {
		return 0, fmt.Errorf("unterminated comment at offset %d", i)
	}
	return i + 2 + end + 2, nil
}

// skipQuoted returns the offset just past the quoted run starting at i.
// Doubled closing quotes are escapes, except inside brackets.
func skipQuoted(s string, i int) (int, error) {
	open := s[i]
	closing := open
	if open == '[' {
		closing = ']'
	}
	for j := i + 1; j < len(s); j++ {
		if s[j] != closing {
			continue
		}
		if open != '[' && j+1 < len(s) && s[j+1] == closing {
			j++
			continue
		}
		return j + 1, nil
	}
	return 0, fmt.Errorf("unterminated %c at offset %d", open, i)
}

// skipGroup returns the offset just past the ')' matching the '(' at i,
// tracking nesting depth and skipping quoted runs and comments.
func skipGroup(s string, i int) (int, error) {
	depth := 0
	j := i
	for j < len(s) {
		c := s[j]
		switch {
		case c == '(':
			depth++
			j++
		case c == ')':
			depth--
			j++
			if depth == 0 {
				return j, nil
			}
		case c == '\'' || c == '"' || c == '`' || c == '[':
			end, err := skipQuoted(s, j)
			if err != nil {
				return 0, err
			}
			j = end
		case c == '-' && strings.HasPrefix(s[j:], "--"):
			j = skipLineComment(s, j)
		case c == '/' && strings.HasPrefix(s[j:], "/*"):
			end, err := skipBlockComment(s, j)
			if err != nil {
				return 0, err
			}
			j = end
		default:
			j++
		}
	}
	return 0, fmt.Errorf("unbalanced '(' at offset %d", i)
}

// unquote strips one level of quoting and collapses doubled quotes.
func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	open, body := raw[0], raw[1:len(raw)-1]
	switch open {
	case '[':
		return body
	case '\'', '"', '`':
		q := string(open)
		return strings.ReplaceAll(body, q+q, q)
	}
	return raw
}

// splitTopLevel splits tokens at comma punctuation. Groups are single
// tokens, so only depth-0 commas separate items.
func splitTopLevel(tokens []token) [][]token {
	var parts [][]token
	start := 0
	for i, t := range tokens {
		if t.kind == tokenPunct && t.raw == "," {
			parts = append(parts, tokens[start:i])
			start = i + 1
		}
	}
	return append(parts, tokens[start:])
}

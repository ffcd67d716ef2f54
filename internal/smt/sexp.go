package smt

import (
	"fmt"
	"strings"
)

// sexp is an atom or a list read from solver output.
type sexp struct {
	atom   string
	list   []sexp
	isList bool
}

func (s sexp) String() string {
	if !s.isList {
		return s.atom
	}
	parts := make([]string, len(s.list))
	for i, x := range s.list {
		parts[i] = x.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (s sexp) head() string {
	if !s.isList || len(s.list) == 0 || s.list[0].isList {
		return ""
	}
	return s.list[0].atom
}

// readAll splits solver output into top-level s-expressions. String
// literals keep their quotes; |quoted| symbols lose their bars.
func readAll(src string) ([]sexp, error) {
	var out []sexp
	var stack [][]sexp
	i := 0
	emit := func(x sexp) {
		if len(stack) == 0 {
			out = append(out, x)
			return
		}
		stack[len(stack)-1] = append(stack[len(stack)-1], x)
	}
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == ';':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '(':
			stack = append(stack, nil)
			i++
		case c == ')':
			if len(stack) == 0 {
				return out, fmt.Errorf("smt: unbalanced ) at %d", i)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			emit(sexp{list: top, isList: true})
			i++
		case c == '"':
			j := i + 1
			for j < len(src) {
				if src[j] == '"' {
					if j+1 < len(src) && src[j+1] == '"' {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j >= len(src) {
				return out, fmt.Errorf("smt: unterminated string at %d", i)
			}
			emit(sexp{atom: src[i : j+1]})
			i = j + 1
		case c == '|':
			j := strings.IndexByte(src[i+1:], '|')
			if j < 0 {
				return out, fmt.Errorf("smt: unterminated symbol at %d", i)
			}
			emit(sexp{atom: src[i+1 : i+1+j]})
			i += j + 2
		default:
			j := i
			for j < len(src) && !strings.ContainsRune(" \t\r\n()\";", rune(src[j])) {
				j++
			}
			emit(sexp{atom: src[i:j]})
			i = j
		}
	}
	if len(stack) > 0 {
		return out, fmt.Errorf("smt: %d unclosed lists", len(stack))
	}
	return out, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}

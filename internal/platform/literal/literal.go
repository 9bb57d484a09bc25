// Package literal parses the restricted structured-literal notation stored in
// flat-file cells, e.g. {'DoctorID': 'D002', 'DoctorName': 'Alice Hart'}.
//
// Only primitive literals (quoted strings, numbers, True/False/None), tuples,
// lists and string-keyed mappings are accepted. Names, calls, operators and
// anything else are rejected, so a cell can never do more than describe data.
package literal

import (
	"fmt"
	"strconv"
	"strings"
)

const maxDepth = 32

// SyntaxError reports where parsing stopped.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("literal: %s at offset %d", e.Msg, e.Offset)
}

// Tuple is a parenthesised sequence. Lists decode to []interface{}.
type Tuple []interface{}

// Parse decodes s into string, int64, float64, bool, nil, Tuple,
// []interface{} or map[string]interface{}.
func Parse(s string) (interface{}, error) {
	p := &parser{src: s}
	p.skipSpace()
	v, err := p.value(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input %q", p.src[p.pos:])
	}
	return v, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) value(depth int) (interface{}, error) {
	if depth > maxDepth {
		return nil, p.errorf("nesting too deep")
	}
	switch c := p.peek(); {
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	case c == '\'' || c == '"':
		return p.str()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	case c == '(':
		items, err := p.sequence(depth, '(', ')')
		if err != nil {
			return nil, err
		}
		return Tuple(items), nil
	case c == '[':
		return p.sequence(depth, '[', ']')
	case c == '{':
		return p.mapping(depth)
	default:
		return p.keyword()
	}
}

func (p *parser) keyword() (interface{}, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			break
		}
		p.pos++
	}
	switch word := p.src[start:p.pos]; word {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	case "":
		p.pos = start
		return nil, p.errorf("unexpected character %q", p.src[start])
	default:
		p.pos = start
		return nil, p.errorf("name %q is not a literal", word)
	}
}

func (p *parser) str() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return "", p.errorf("unterminated escape")
			}
			esc := p.src[p.pos+1]
			switch esc {
			case '\\', '\'', '"':
				b.WriteByte(esc)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				return "", p.errorf("unsupported escape \\%c", esc)
			}
			p.pos += 2
		case c == '\n':
			return "", p.errorf("newline in string")
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *parser) number() (interface{}, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	isFloat := false
scan:
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' || c == 'e' || c == 'E':
			isFloat = true
		case (c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E'):
		default:
			break scan
		}
		p.pos++
	}
	text := p.src[start:p.pos]
	if !isFloat {
		n, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return n, nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.pos = start
		return nil, p.errorf("invalid number %q", text)
	}
	return f, nil
}

func (p *parser) sequence(depth int, left, right byte) ([]interface{}, error) {
	p.pos++ // left
	items := []interface{}{}
	for {
		p.skipSpace()
		if p.peek() == right {
			p.pos++
			return items, nil
		}
		v, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case right:
			p.pos++
			return items, nil
		default:
			return nil, p.errorf("expected ',' or %q in %c%c", right, left, right)
		}
	}
}

func (p *parser) mapping(depth int) (map[string]interface{}, error) {
	p.pos++ // {
	m := make(map[string]interface{})
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return m, nil
		}
		if c := p.peek(); c != '\'' && c != '"' {
			return nil, p.errorf("mapping keys must be strings")
		}
		key, err := p.str()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' after key %q", key)
		}
		p.pos++
		p.skipSpace()
		v, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		m[key] = v
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return m, nil
		default:
			return nil, p.errorf("expected ',' or '}' in mapping")
		}
	}
}

// Quote renders s as a single-quoted literal, switching to double quotes when
// s contains a single quote but no double quote.
func Quote(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}
	var b strings.Builder
	b.WriteByte(q)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case q:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(q)
	return b.String()
}

// Pair is one entry of an ordered mapping.
type Pair struct {
	Key   string
	Value string
}

// FormatMapping renders string pairs as a mapping literal in the given order.
func FormatMapping(pairs ...Pair) string {
	parts := make([]string, len(pairs))
	for i, kv := range pairs {
		parts[i] = Quote(kv.Key) + ": " + Quote(kv.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

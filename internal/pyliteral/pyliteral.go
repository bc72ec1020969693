// Package pyliteral parses the literal structures that experiment frameworks dump into their
// logs (dicts, lists, tuples, sets, strings, numbers, True/False/None).
//
// Parsing is purely structural: names other than the three constants, calls (except the
// empty set()), operators other than unary sign, and attribute access are all rejected.
package pyliteral

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SyntaxError reports where a literal stopped being parseable.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("literal syntax error at offset %d: %s", e.Offset, e.Msg)
}

// Parse parses a single literal expression. Dicts become *Dict, lists/tuples/sets become
// []any, ints become int64 (float64 if they overflow), floats float64, None nil.
func Parse(src string) (any, error) {
	p := &parser{src: src}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected trailing input %q", truncate(p.src[p.pos:], 20))
	}
	return v, nil
}

// MaxDepth bounds container and sign nesting. Deeper input is a SyntaxError.
const MaxDepth = 200

type parser struct {
	src   string
	pos   int
	depth int
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			p.pos++
		case '\\':
			// explicit line continuation
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '\n' {
				p.pos += 2
				continue
			}
			return
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *parser) value() (any, error) {
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}
	if p.depth >= MaxDepth {
		return nil, p.errorf("nesting deeper than %d levels", MaxDepth)
	}
	p.depth++
	defer func() { p.depth-- }()

	c := p.src[p.pos]
	switch {
	case c == '{':
		return p.dictOrSet()
	case c == '[':
		p.pos++
		items, err := p.sequence(']')
		return items, err
	case c == '(':
		return p.tupleOrGroup()
	case c == '\'' || c == '"':
		return p.strings()
	case c == '-' || c == '+':
		return p.signed()
	case c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		return p.name()
	}
	return nil, p.errorf("unexpected character %q", c)
}

func (p *parser) dictOrSet() (any, error) {
	p.pos++ // '{'
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return NewDict(), nil
	}

	first, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() != ':' {
		// set display
		rest, err := p.sequenceAfterFirst('}')
		if err != nil {
			return nil, err
		}
		return append([]any{first}, rest...), nil
	}

	d := NewDict()
	key := first
	for {
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' after dict key")
		}
		p.pos++
		p.skipSpace()
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		k, err := keyString(key)
		if err != nil {
			return nil, p.errorf("%v", err)
		}
		d.Set(k, val)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == '}' {
				p.pos++
				return d, nil
			}
			key, err = p.value()
			if err != nil {
				return nil, err
			}
		case '}':
			p.pos++
			return d, nil
		default:
			return nil, p.errorf("expected ',' or '}' in dict")
		}
	}
}

func (p *parser) tupleOrGroup() (any, error) {
	p.pos++ // '('
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return []any{}, nil
	}
	first, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() == ')' {
		// parenthesised expression, not a tuple
		p.pos++
		return first, nil
	}
	rest, err := p.sequenceAfterFirst(')')
	if err != nil {
		return nil, err
	}
	return append([]any{first}, rest...), nil
}

// sequence parses comma separated values up to and including the closing byte.
func (p *parser) sequence(closing byte) ([]any, error) {
	items := make([]any, 0)
	for {
		p.skipSpace()
		if p.peek() == closing {
			p.pos++
			return items, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case closing:
			p.pos++
			return items, nil
		default:
			return nil, p.errorf("expected ',' or %q", closing)
		}
	}
}

// sequenceAfterFirst continues a sequence whose first element has been consumed.
func (p *parser) sequenceAfterFirst(closing byte) ([]any, error) {
	switch p.peek() {
	case closing:
		p.pos++
		return nil, nil
	case ',':
		p.pos++
		return p.sequence(closing)
	}
	return nil, p.errorf("expected ',' or %q", closing)
}

func (p *parser) signed() (any, error) {
	neg := p.src[p.pos] == '-'
	p.pos++
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	switch n := v.(type) {
	case int64:
		if neg {
			return -n, nil
		}
		return n, nil
	case float64:
		if neg {
			return -n, nil
		}
		return n, nil
	}
	return nil, p.errorf("unary sign applied to non-number")
}

func (p *parser) number() (any, error) {
	start := p.pos
	if p.peek() == '0' && p.pos+1 < len(p.src) {
		switch p.src[p.pos+1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			p.pos += 2
			for p.pos < len(p.src) && (isHexDigit(p.src[p.pos]) || p.src[p.pos] == '_') {
				p.pos++
			}
			n, err := strconv.ParseInt(p.src[start:p.pos], 0, 64)
			if err != nil {
				return nil, &SyntaxError{Offset: start, Msg: "invalid integer literal"}
			}
			return n, nil
		}
	}

	isFloat := false
scan:
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case isDigit(c) || c == '_':
			p.pos++
		case c == '.':
			isFloat = true
			p.pos++
		case c == 'e' || c == 'E':
			isFloat = true
			p.pos++
			if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
				p.pos++
			}
		case c == 'j' || c == 'J':
			return nil, p.errorf("complex literals are not supported")
		default:
			break scan
		}
	}
	text := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &SyntaxError{Offset: start, Msg: fmt.Sprintf("invalid float literal %q", text)}
		}
		return f, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			f, ferr := strconv.ParseFloat(text, 64)
			if ferr == nil || !math.IsInf(f, 0) {
				return f, nil
			}
		}
		return nil, &SyntaxError{Offset: start, Msg: fmt.Sprintf("invalid integer literal %q", text)}
	}
	return n, nil
}

func (p *parser) name() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	ident := p.src[start:p.pos]

	// string prefixes: r'', b'', u'', rb'' ...
	if p.pos < len(p.src) && (p.src[p.pos] == '\'' || p.src[p.pos] == '"') && isStringPrefix(ident) {
		p.pos = start
		return p.strings()
	}

	switch ident {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	case "set":
		p.skipSpace()
		if strings.HasPrefix(p.src[p.pos:], "()") {
			p.pos += 2
			return []any{}, nil
		}
	}
	return nil, &SyntaxError{Offset: start, Msg: fmt.Sprintf("name %q is not a literal", ident)}
}

// strings parses one or more adjacent string literals and concatenates them.
func (p *parser) strings() (any, error) {
	var sb strings.Builder
	for {
		s, err := p.stringLiteral()
		if err != nil {
			return nil, err
		}
		sb.WriteString(s)

		save := p.pos
		p.skipSpace()
		if p.pos < len(p.src) && (p.src[p.pos] == '\'' || p.src[p.pos] == '"' || p.hasStringPrefix()) {
			continue
		}
		p.pos = save
		return sb.String(), nil
	}
}

func (p *parser) hasStringPrefix() bool {
	i := p.pos
	for i < len(p.src) && isIdentPart(p.src[i]) {
		i++
	}
	return i > p.pos && i < len(p.src) && (p.src[i] == '\'' || p.src[i] == '"') && isStringPrefix(p.src[p.pos:i])
}

func (p *parser) stringLiteral() (string, error) {
	raw := false
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		if c := p.src[p.pos]; c == 'r' || c == 'R' {
			raw = true
		}
		p.pos++
	}
	if p.pos >= len(p.src) {
		return "", p.errorf("unterminated string")
	}

	quote := p.src[p.pos]
	triple := strings.HasPrefix(p.src[p.pos:], strings.Repeat(string(quote), 3))
	if triple {
		p.pos += 3
	} else {
		p.pos++
	}

	start := p.pos
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote && (!triple || strings.HasPrefix(p.src[p.pos:], strings.Repeat(string(quote), 3))):
			if triple {
				p.pos += 3
			} else {
				p.pos++
			}
			return sb.String(), nil
		case c == '\n' && !triple:
			return "", p.errorf("newline in single-quoted string")
		case c == '\\':
			if raw {
				sb.WriteByte(c)
				if p.pos+1 < len(p.src) {
					sb.WriteByte(p.src[p.pos+1])
				}
				p.pos += 2
				continue
			}
			if err := p.escape(&sb); err != nil {
				return "", err
			}
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", &SyntaxError{Offset: start, Msg: "unterminated string"}
}

func (p *parser) escape(sb *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("dangling escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\n':
	case '\\', '\'', '"':
		sb.WriteByte(c)
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'a':
		sb.WriteByte('\a')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case 'x':
		return p.codepoint(sb, 2)
	case 'u':
		return p.codepoint(sb, 4)
	case 'U':
		return p.codepoint(sb, 8)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		start := p.pos - 1
		end := start + 1
		for end < len(p.src) && end < start+3 && p.src[end] >= '0' && p.src[end] <= '7' {
			end++
		}
		n, _ := strconv.ParseUint(p.src[start:end], 8, 32)
		sb.WriteRune(rune(n))
		p.pos = end
	default:
		// unknown escapes are kept verbatim
		sb.WriteByte('\\')
		sb.WriteByte(c)
	}
	return nil
}

func (p *parser) codepoint(sb *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("truncated escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return p.errorf("invalid escape digits %q", p.src[p.pos:p.pos+digits])
	}
	sb.WriteRune(rune(n))
	p.pos += digits
	return nil
}

// keyString converts a hashable literal into the string key used for path lookups.
func keyString(k any) (string, error) {
	switch v := k.(type) {
	case string:
		return v, nil
	case []any:
		return "", fmt.Errorf("unhashable dict key %s", Repr(v))
	case *Dict:
		return "", fmt.Errorf("unhashable dict key %s", Repr(v))
	}
	return Repr(k), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isStringPrefix(s string) bool {
	switch strings.ToLower(s) {
	case "r", "u", "b", "br", "rb":
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

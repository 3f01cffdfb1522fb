// Package wktcrs scans CRS well-known text into a node tree. It understands
// both bracket styles and quoted strings with doubled-quote escapes; it does
// not interpret the nodes.
package wktcrs

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrEmpty      = errors.New("wkt: empty input")
	ErrUnexpected = errors.New("wkt: unexpected input")
)

// Node is KEYWORD[arg, ...]. Args hold either strings (quoted or bare
// numbers/enums) or child nodes.
type Node struct {
	Keyword  string
	Values   []string
	Children []*Node
}

// Child returns the first direct child with the keyword (case-insensitive).
func (n *Node) Child(keyword string) *Node {
	for _, c := range n.Children {
		if strings.EqualFold(c.Keyword, keyword) {
			return c
		}
	}
	return nil
}

// LastChild returns the last direct child with the keyword.
func (n *Node) LastChild(keyword string) *Node {
	for i := len(n.Children) - 1; i >= 0; i-- {
		if strings.EqualFold(n.Children[i].Keyword, keyword) {
			return n.Children[i]
		}
	}
	return nil
}

// Parse parses the first node of s and returns the unconsumed remainder.
func Parse(s string) (*Node, string, error) {
	p := &parser{s: s}
	p.skipSpace()
	if p.pos >= len(p.s) {
		return nil, s, ErrEmpty
	}
	n, err := p.node()
	if err != nil {
		return nil, s, err
	}
	return n, p.s[p.pos:], nil
}

// ParseStrict parses s and rejects anything but whitespace after the node.
func ParseStrict(s string) (*Node, error) {
	n, rest, err := Parse(s)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, fmt.Errorf("%w: trailing data %q", ErrUnexpected, abbreviate(rest))
	}
	return n, nil
}

// Extent returns the byte length of the first complete node of s, including
// any leading whitespace.
func Extent(s string) (int, error) {
	_, rest, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return len(s) - len(rest), nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) && unicode.IsSpace(rune(p.s[p.pos])) {
		p.pos++
	}
}

func (p *parser) node() (*Node, error) {
	kw := p.word()
	if kw == "" {
		return nil, p.errorf("keyword expected")
	}
	p.skipSpace()
	if p.pos >= len(p.s) {
		return nil, p.errorf("%q: opening bracket expected", kw)
	}
	var closing byte
	switch p.s[p.pos] {
	case '[':
		closing = ']'
	case '(':
		closing = ')'
	default:
		return nil, p.errorf("%q: opening bracket expected", kw)
	}
	p.pos++

	n := &Node{Keyword: kw}
	for {
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, p.errorf("%q: unterminated node", kw)
		}
		switch c := p.s[p.pos]; {
		case c == '"':
			v, err := p.quoted()
			if err != nil {
				return nil, err
			}
			n.Values = append(n.Values, v)
		case isWordByte(c):
			start := p.pos
			w := p.word()
			p.skipSpace()
			if p.pos < len(p.s) && (p.s[p.pos] == '[' || p.s[p.pos] == '(') {
				p.pos = start
				child, err := p.node()
				if err != nil {
					return nil, err
				}
				n.Children = append(n.Children, child)
			} else {
				n.Values = append(n.Values, w)
			}
		default:
			return nil, p.errorf("%q: unexpected %q", kw, c)
		}

		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, p.errorf("%q: unterminated node", kw)
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case closing:
			p.pos++
			return n, nil
		default:
			return nil, p.errorf("%q: ',' or %q expected", kw, closing)
		}
	}
}

func (p *parser) word() string {
	start := p.pos
	for p.pos < len(p.s) && isWordByte(p.s[p.pos]) {
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *parser) quoted() (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		p.pos++
		if c != '"' {
			b.WriteByte(c)
			continue
		}
		if p.pos < len(p.s) && p.s[p.pos] == '"' {
			b.WriteByte('"')
			p.pos++
			continue
		}
		return b.String(), nil
	}
	return "", p.errorf("unterminated string")
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrUnexpected, p.pos, fmt.Sprintf(format, args...))
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || c == '-' || c == '+' ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func abbreviate(s string) string {
	s = strings.TrimSpace(s)
	const max = 32
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

package remaster

import (
	"fmt"
	"strings"
)

// newickParser extracts leaves and their [&key=value,...] annotations from
// a Newick string. Internal node labels, branch lengths and annotations
// are consumed and discarded.
type newickParser struct {
	s      string
	pos    int
	leaves []Leaf
}

func (p *newickParser) parse() ([]Leaf, error) {
	p.skipSpace()
	// Rooting comments such as [&R] precede the tree.
	for p.peek() == '[' {
		if _, err := p.readBracket(); err != nil {
			return nil, err
		}
		p.skipSpace()
	}
	if err := p.subtree(); err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() != ';' {
		return nil, fmt.Errorf("unexpected %q at offset %d, expected ';'", p.peek(), p.pos)
	}
	return p.leaves, nil
}

func (p *newickParser) subtree() error {
	p.skipSpace()
	if p.peek() == '(' {
		p.pos++
		for {
			if err := p.subtree(); err != nil {
				return err
			}
			p.skipSpace()
			switch p.peek() {
			case ',':
				p.pos++
				continue
			case ')':
				p.pos++
			default:
				return fmt.Errorf("unexpected %q at offset %d in clade", p.peek(), p.pos)
			}
			break
		}
		p.readLabel()
		_, err := p.readNodeMeta()
		return err
	}

	label := p.readLabel()
	if label == "" {
		return fmt.Errorf("empty leaf label at offset %d", p.pos)
	}
	annotations, err := p.readNodeMeta()
	if err != nil {
		return err
	}
	p.leaves = append(p.leaves, Leaf{Label: label, Annotations: annotations})
	return nil
}

// readNodeMeta consumes any mix of [&...] comments and ':length' following
// a node label, merging all annotations. A comment may sit between the
// colon and the length.
func (p *newickParser) readNodeMeta() (map[string]string, error) {
	annotations := make(map[string]string)
	pendingLength := false
	for {
		p.skipSpace()
		switch p.peek() {
		case '[':
			body, err := p.readBracket()
			if err != nil {
				return nil, err
			}
			if strings.HasPrefix(body, "&") {
				for k, v := range parseAnnotations(body[1:]) {
					annotations[k] = v
				}
			}
		case ':':
			p.pos++
			pendingLength = !p.skipLength()
		default:
			if pendingLength && p.skipLength() {
				pendingLength = false
				continue
			}
			return annotations, nil
		}
	}
}

// skipLength consumes a branch length and reports whether one was present.
func (p *newickParser) skipLength() bool {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune("(),:;[ \t\r\n", rune(p.s[p.pos])) {
		p.pos++
	}
	return p.pos > start
}

func (p *newickParser) readLabel() string {
	p.skipSpace()
	if p.peek() == '\'' || p.peek() == '"' {
		quote := p.s[p.pos]
		p.pos++
		var b strings.Builder
		for p.pos < len(p.s) {
			c := p.s[p.pos]
			p.pos++
			if c == quote {
				// Doubled quotes escape a literal quote.
				if p.peek() == quote {
					b.WriteByte(quote)
					p.pos++
					continue
				}
				break
			}
			b.WriteByte(c)
		}
		return b.String()
	}
	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune("(),:;[ \t\r\n", rune(p.s[p.pos])) {
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *newickParser) readBracket() (string, error) {
	end := strings.IndexByte(p.s[p.pos:], ']')
	if end < 0 {
		return "", fmt.Errorf("unterminated comment at offset %d", p.pos)
	}
	body := p.s[p.pos+1 : p.pos+end]
	p.pos += end + 1
	return body, nil
}

func (p *newickParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *newickParser) skipSpace() {
	for p.pos < len(p.s) && strings.ContainsRune(" \t\r\n", rune(p.s[p.pos])) {
		p.pos++
	}
}

// parseAnnotations splits key=value pairs on commas outside quotes and
// braces. Values keep braces but lose surrounding quotes.
func parseAnnotations(s string) map[string]string {
	out := make(map[string]string)
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{':
			depth++
		case c == '}' && depth > 0:
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	for _, part := range parts {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = unquote(v)
	}
	return out
}

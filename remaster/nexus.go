// Package remaster turns ReMASTER simulation output (a Nexus alignment and
// a Nexus trees file with annotated leaves) into the sequence, date and
// type blocks of a BEAST 2 XML template.
package remaster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadAlignment parses the MATRIX block of a Nexus alignment and returns
// taxon → sequence, lowercased. Interleaved matrices are concatenated.
func ReadAlignment(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening alignment: %w", err)
	}
	defer func() { _ = f.Close() }()

	seqs, err := parseAlignment(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seqs, nil
}

func parseAlignment(in io.Reader) (map[string]string, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	parts := make(map[string]*strings.Builder)
	inMatrix := false
	done := false
	for scanner.Scan() && !done {
		line := stripComments(scanner.Text())
		trimmed := strings.TrimSpace(line)
		if !inMatrix {
			if strings.EqualFold(firstWord(trimmed), "matrix") {
				inMatrix = true
				trimmed = strings.TrimSpace(trimmed[len("matrix"):])
			} else {
				continue
			}
		}
		if i := strings.IndexByte(trimmed, ';'); i >= 0 {
			trimmed = trimmed[:i]
			done = true
		}
		if trimmed == "" {
			continue
		}
		taxon, rest := splitLabel(trimmed)
		if taxon == "" {
			continue
		}
		b, ok := parts[taxon]
		if !ok {
			b = &strings.Builder{}
			parts[taxon] = b
		}
		b.WriteString(strings.ToLower(strings.Join(strings.Fields(rest), "")))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading alignment: %w", err)
	}
	if !inMatrix {
		return nil, fmt.Errorf("no MATRIX block found")
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("MATRIX block is empty")
	}

	seqs := make(map[string]string, len(parts))
	for taxon, b := range parts {
		seqs[taxon] = b.String()
	}
	return seqs, nil
}

// Leaf is a tip of a simulated tree with its metadata annotations.
type Leaf struct {
	Label       string
	Annotations map[string]string
}

// Tree holds the leaves of the first tree in a Nexus trees file, with
// labels already mapped through the TRANSLATE table.
type Tree struct {
	Name   string
	Leaves []Leaf
}

// ReadTree parses the first tree of a Nexus trees file.
func ReadTree(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tree file: %w", err)
	}
	t, err := parseTreesBlock(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func parseTreesBlock(content string) (*Tree, error) {
	translate := make(map[string]string)
	statements := splitStatements(content)
	for _, stmt := range statements {
		keyword := strings.ToLower(firstWord(stmt))
		switch keyword {
		case "translate":
			// A trailing comma before the closing ';' yields an empty
			// entry, which is skipped.
			body := strings.TrimSpace(stmt[len("translate"):])
			for _, entry := range strings.Split(body, ",") {
				fields := strings.Fields(entry)
				if len(fields) < 2 {
					continue
				}
				translate[fields[0]] = unquote(strings.Join(fields[1:], " "))
			}
		case "tree", "utree":
			eq := strings.IndexByte(stmt, '=')
			if eq < 0 {
				return nil, fmt.Errorf("tree statement without '='")
			}
			name := strings.TrimSpace(stmt[len(keyword):eq])
			p := &newickParser{s: stmt[eq+1:] + ";"}
			leaves, err := p.parse()
			if err != nil {
				return nil, fmt.Errorf("tree %s: %w", name, err)
			}
			for i := range leaves {
				if label, ok := translate[leaves[i].Label]; ok {
					leaves[i].Label = label
				}
			}
			return &Tree{Name: name, Leaves: leaves}, nil
		}
	}
	return nil, fmt.Errorf("no tree statement found")
}

// splitStatements splits Nexus text on ';' outside brackets and quotes.
func splitStatements(s string) []string {
	var out []string
	var b strings.Builder
	depth := 0
	inQuote := false
	for _, r := range s {
		switch {
		case r == '\'' && depth == 0:
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case r == ';' && depth == 0:
			out = append(out, strings.TrimSpace(b.String()))
			b.Reset()
			continue
		}
		b.WriteRune(r)
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

// stripComments removes [...] comments that open and close on one line.
func stripComments(line string) string {
	for {
		start := strings.IndexByte(line, '[')
		if start < 0 {
			return line
		}
		end := strings.IndexByte(line[start:], ']')
		if end < 0 {
			return line[:start]
		}
		line = line[:start] + line[start+end+1:]
	}
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// splitLabel splits a matrix row into its (possibly quoted) taxon label
// and the remainder.
func splitLabel(s string) (label, rest string) {
	if strings.HasPrefix(s, "'") {
		end := strings.Index(s[1:], "'")
		if end < 0 {
			return "", ""
		}
		return s[1 : end+1], s[end+2:]
	}
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

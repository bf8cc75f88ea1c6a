package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// indexColumns are leading iteration-index column names dropped on read.
var indexColumns = map[string]bool{
	"sample": true,
	"state":  true,
}

// Read parses a tab-delimited BEAST log. Lines starting with '#' and blank
// lines are skipped; the first remaining line is the header. Every data cell
// must be numeric: a mixed-type column is rejected here rather than during
// analysis. A leading Sample/state column is dropped.
func Read(in io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var header []string
	var values [][]float64
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if header == nil {
			header = make([]string, len(fields))
			for i, f := range fields {
				header[i] = strings.TrimSpace(f)
			}
			values = make([][]float64, len(header))
			continue
		}
		if len(fields) != len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrMalformedTrace, lineNo, len(fields), len(header))
		}
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %q: non-numeric value %q",
					ErrMalformedTrace, lineNo, header[i], f)
			}
			values[i] = append(values[i], v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	if header == nil {
		return nil, fmt.Errorf("%w: no header found", ErrMalformedTrace)
	}
	if len(values[0]) == 0 {
		return nil, fmt.Errorf("%w: no data rows found", ErrMalformedTrace)
	}

	columns := make([]Column, 0, len(header))
	for i, name := range header {
		if i == 0 && indexColumns[strings.ToLower(name)] {
			logrus.Debugf("trace: dropping index column %q", name)
			continue
		}
		columns = append(columns, Column{Name: name, Values: values[i]})
	}
	return NewTable(columns...)
}

// ReadFile parses the BEAST log at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace: %w", err)
	}
	defer func() { _ = f.Close() }()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logrus.Debugf("trace: read %d columns x %d samples from %s", t.NumColumns(), t.Len(), path)
	return t, nil
}

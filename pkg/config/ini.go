package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseINI reads a moses.ini style stream into its sections. Each section
// keeps its lines in file order; blank lines and '#' comments are dropped.
func ParseINI(r io.Reader) (map[string][]string, error) {
	sections := make(map[string][]string)
	current := ""
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, fmt.Errorf("line %d: unterminated section header %q", lineNo, line)
			}
			current = strings.TrimSpace(line[1 : len(line)-1])
			if _, ok := sections[current]; !ok {
				sections[current] = nil
			}
			continue
		}
		if current == "" {
			return nil, fmt.Errorf("line %d: value %q outside any section", lineNo, line)
		}
		sections[current] = append(sections[current], line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning ini: %w", err)
	}
	return sections, nil
}

// LoadINI replaces the feature and weight lines of d with the [feature] and
// [weight] sections of the moses.ini file at path. Sections absent from the
// file leave the existing lines untouched.
func LoadINI(path string, d *DecoderConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening ini file %s: %w", path, err)
	}
	defer f.Close()
	sections, err := ParseINI(f)
	if err != nil {
		return fmt.Errorf("parsing ini file %s: %w", path, err)
	}
	if lines, ok := sections["feature"]; ok {
		d.Features = lines
	}
	if lines, ok := sections["weight"]; ok {
		d.Weights = lines
	}
	return nil
}

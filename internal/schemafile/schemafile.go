// Package schemafile reads and rewrites text files as ordered line sequences.
//
// Lines keep their terminators, so joining them reproduces the original bytes
// exactly, including a missing final newline or CRLF endings.
package schemafile

import (
	"fmt"
	"os"
	"strings"
)

// ReadLines reads the file at path and splits it into lines with terminators
// preserved.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return Split(string(data)), nil
}

// Split breaks content into lines, each retaining its trailing newline. A
// final line without a newline is kept as-is; empty content yields no lines.
func Split(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// WriteLines overwrites the file at path with the lines joined in order.
// Destructive: the previous content is not retained.
func WriteLines(path string, lines []string) error {
	if err := os.WriteFile(path, []byte(strings.Join(lines, "")), 0o644); err != nil {
		return fmt.Errorf("write schema %s: %w", path, err)
	}
	return nil
}

// Package patch rewrites imports in generated Python artifacts.
//
// protoc emits bare sibling imports (`import auth_pb2 as ...`) that only
// resolve when the generated modules sit on sys.path directly. Once they live
// inside the etcd3.etcdrpc package, those imports must be qualified. Matching
// is anchored to the start of the line so occurrences inside string literals
// or comments are never touched.
package patch

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/jianjungki/protogen/internal/schemafile"
)

// Rule rewrites lines that begin exactly with Prefix, replacing the prefix
// and keeping the remainder of the line (aliases, terminators) intact.
type Rule struct {
	Prefix      string
	Replacement string
}

// File pairs a generated artifact path with the rewrite rules to apply.
type File struct {
	Path  string
	Rules []Rule
}

// Apply patches each artifact in place.
//
// A missing artifact is a warning, not an error: generation may legitimately
// produce no output for optional units. I/O failures are fatal and abort the
// remaining files.
func Apply(files []File) error {
	for _, f := range files {
		if err := applyFile(f); err != nil {
			return err
		}
	}
	return nil
}

func applyFile(f File) error {
	lines, err := schemafile.ReadLines(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Generated artifact not found, skipping import patch", "artifact", f.Path)
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("Patching imports", "artifact", f.Path)
	changed := false
	for _, r := range f.Rules {
		n := 0
		for i, line := range lines {
			if strings.HasPrefix(line, r.Prefix) {
				lines[i] = r.Replacement + line[len(r.Prefix):]
				n++
			}
		}
		if n == 0 {
			// The generator's output style changed (indented or aliased
			// import?) and the anchored match found nothing to rewrite.
			slog.Warn("Import rewrite rule matched no lines", "artifact", f.Path, "prefix", r.Prefix)
			continue
		}
		slog.Debug("Applied import rewrite", "artifact", f.Path, "prefix", r.Prefix, "lines", n)
		changed = true
	}

	if !changed {
		return nil
	}
	return schemafile.WriteLines(f.Path, lines)
}

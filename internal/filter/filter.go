// Package filter implements line-oriented filtering of proto schema files.
//
// The upstream etcd rpc.proto uses constructs the Python gRPC toolchain cannot
// handle (gogoproto extensions, google.api HTTP annotations) and imports
// sibling protos through repository-relative paths. Filtering strips the
// former and flattens the latter before the file is handed to protoc.
//
// Filtering is purely textual: lines are matched by substring, never parsed.
package filter

import (
	"log/slog"
	"strings"
)

// Kind selects how a Rule acts on a matching line.
type Kind int

const (
	// KindDrop removes the matching line.
	KindDrop Kind = iota
	// KindDropBlock removes the matching line plus a fixed number of
	// following lines, regardless of their content.
	KindDropBlock
	// KindSubstitute rewrites every occurrence of Match within a line that
	// no drop rule claimed.
	KindSubstitute
)

// Rule is one entry of the ordered filter table.
//
// Rules are evaluated top to bottom for each input line. The first matching
// drop rule wins; substitute rules all apply, in table order, to lines that
// survive the drop rules.
type Rule struct {
	Kind    Kind
	Match   string
	Skip    int    // extra lines dropped after the trigger line (KindDropBlock)
	Replace string // replacement text (KindSubstitute)
}

// Drop returns a rule removing any line containing match.
func Drop(match string) Rule {
	return Rule{Kind: KindDrop, Match: match}
}

// DropBlock returns a rule removing any line containing match plus the n
// lines that follow it.
func DropBlock(match string, n int) Rule {
	return Rule{Kind: KindDropBlock, Match: match, Skip: n}
}

// Substitute returns a rule rewriting occurrences of old to new.
func Substitute(old, new string) Rule {
	return Rule{Kind: KindSubstitute, Match: old, Replace: new}
}

// DefaultRules is the filter table for etcd's rpc.proto.
//
// The http option block has a fixed four-line shape in the upstream file
// (option line, two binding lines, closing brace), hence DropBlock(3).
func DefaultRules() []Rule {
	return []Rule{
		Drop("gogoproto"),
		Drop("google/api/annotations.proto"),
		DropBlock("option (google.api.http)", 3),
		Substitute("etcd/mvcc/mvccpb/kv.proto", "kv.proto"),
		Substitute("etcd/auth/authpb/auth.proto", "auth.proto"),
	}
}

// Apply runs lines through the rule table in a single top-to-bottom pass and
// returns the surviving, possibly rewritten, lines.
//
// Lines are expected to carry their terminators; substitutions never touch
// them. The block-skip counter is an explicit accumulator local to one call,
// so Apply is restartable and safe to reuse. A block that extends past the
// end of input simply exhausts the remaining lines.
func Apply(lines []string, rules []Rule) []string {
	out := make([]string, 0, len(lines))
	skip := 0
	for _, line := range lines {
		if skip > 0 {
			skip--
			continue
		}

		dropped := false
		for _, r := range rules {
			switch r.Kind {
			case KindDrop:
				if strings.Contains(line, r.Match) {
					slog.Info("Dropping line", "line", strings.TrimSpace(line))
					dropped = true
				}
			case KindDropBlock:
				if strings.Contains(line, r.Match) {
					slog.Info("Dropping block", "line", strings.TrimSpace(line), "extra_lines", r.Skip)
					skip = r.Skip
					dropped = true
				}
			}
			if dropped {
				break
			}
		}
		if dropped {
			continue
		}

		for _, r := range rules {
			if r.Kind == KindSubstitute {
				line = strings.ReplaceAll(line, r.Match, r.Replace)
			}
		}
		out = append(out, line)
	}
	return out
}

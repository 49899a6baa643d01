package hydrate

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// AliasTable holds resolved path-alias rewrite rules. Wildcard patterns keep
// their "*" through rewriting: stripping it would silently break resolution
// for every aliased import.
type AliasTable struct {
	// entries maps a specifier pattern (possibly ending in "/*") to its
	// resolved replacement targets, most specific pattern first.
	entries []aliasEntry
}

type aliasEntry struct {
	pattern      string
	wildcard     bool // pattern ends with "*"
	replacements []string
}

// BuildAliasTable resolves a tsconfig paths table against its base path.
// Non-wildcard entries resolve to absolute virtual locations; wildcard
// entries produce absolute prefixes with the "*" segment preserved.
func BuildAliasTable(root string, cfg CompilerConfig) *AliasTable {
	base := root
	if cfg.BaseURL != "" {
		if filepath.IsAbs(cfg.BaseURL) {
			base = cfg.BaseURL
		} else {
			base = filepath.Join(root, cfg.BaseURL)
		}
	}
	base = filepath.ToSlash(base)

	t := &AliasTable{}
	for pattern, targets := range cfg.Paths {
		entry := aliasEntry{
			pattern:  pattern,
			wildcard: strings.HasSuffix(pattern, "*"),
		}
		for _, target := range targets {
			resolved := target
			if !strings.HasPrefix(target, "/") {
				resolved = path.Join(base, filepath.ToSlash(target))
				// path.Join cleans "*" away only when a segment is
				// exactly "."; the star survives as a literal segment.
			}
			entry.replacements = append(entry.replacements, resolved)
		}
		t.entries = append(t.entries, entry)
	}

	// Longest pattern first so "@app/core/*" wins over "@app/*".
	sort.Slice(t.entries, func(i, j int) bool {
		return len(t.entries[i].pattern) > len(t.entries[j].pattern)
	})
	return t
}

// Len returns the number of alias rules.
func (t *AliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Resolve rewrites a specifier through the alias table. It returns the
// candidate target locations in priority order, or nil when no pattern
// matches.
func (t *AliasTable) Resolve(specifier string) []string {
	if t == nil {
		return nil
	}
	for _, entry := range t.entries {
		if entry.wildcard {
			prefix := strings.TrimSuffix(entry.pattern, "*")
			if !strings.HasPrefix(specifier, prefix) {
				continue
			}
			matched := specifier[len(prefix):]
			out := make([]string, 0, len(entry.replacements))
			for _, repl := range entry.replacements {
				out = append(out, strings.Replace(repl, "*", matched, 1))
			}
			return out
		}
		if specifier == entry.pattern {
			out := make([]string, len(entry.replacements))
			copy(out, entry.replacements)
			return out
		}
	}
	return nil
}

// Patterns returns the configured patterns, most specific first.
func (t *AliasTable) Patterns() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.pattern
	}
	return out
}

// Matches reports whether a specifier is covered by any alias rule. Aliased
// specifiers must not be treated as installable packages.
func (t *AliasTable) Matches(specifier string) bool {
	return len(t.Resolve(specifier)) > 0
}

package hydrate

import (
	"strings"
)

// nodeBuiltins are specifiers resolved by the runtime itself; they never have
// installable declaration packages worth fetching.
var nodeBuiltins = map[string]struct{}{
	"assert": {}, "async_hooks": {}, "buffer": {}, "child_process": {},
	"cluster": {}, "console": {}, "constants": {}, "crypto": {}, "dgram": {},
	"dns": {}, "domain": {}, "events": {}, "fs": {}, "http": {}, "http2": {},
	"https": {}, "inspector": {}, "module": {}, "net": {}, "os": {},
	"path": {}, "perf_hooks": {}, "process": {}, "punycode": {},
	"querystring": {}, "readline": {}, "repl": {}, "stream": {},
	"string_decoder": {}, "timers": {}, "tls": {}, "trace_events": {},
	"tty": {}, "url": {}, "util": {}, "v8": {}, "vm": {}, "wasi": {},
	"worker_threads": {}, "zlib": {},
}

// ScanImports extracts the bare package roots imported by a source file.
// Relative specifiers, absolute paths and runtime builtins are ignored; a
// subpath import like "lodash/merge" yields its package root "lodash", and a
// scoped subpath like "@scope/pkg/util" yields "@scope/pkg". The result
// preserves first-appearance order with duplicates removed.
func ScanImports(content string) []string {
	var roots []string
	seen := make(map[string]struct{})

	add := func(spec string) {
		spec = strings.TrimSpace(spec)
		if spec == "" || isRelativeSpecifier(spec) || isBuiltinSpecifier(spec) {
			return
		}
		root, _ := splitPackageSpecifier(spec)
		if root == "" {
			return
		}
		if _, ok := seen[root]; ok {
			return
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}

	for _, spec := range scanSpecifiers(content) {
		add(spec)
	}
	return roots
}

// isRelativeSpecifier reports whether the specifier resolves against the
// importing file rather than a package.
func isRelativeSpecifier(spec string) bool {
	return strings.HasPrefix(spec, "./") ||
		strings.HasPrefix(spec, "../") ||
		strings.HasPrefix(spec, "/") ||
		spec == "." || spec == ".."
}

// isBuiltinSpecifier reports whether the specifier names a runtime builtin.
func isBuiltinSpecifier(spec string) bool {
	if strings.HasPrefix(spec, "node:") || strings.HasPrefix(spec, "bun:") {
		return true
	}
	root, _ := splitPackageSpecifier(spec)
	_, ok := nodeBuiltins[root]
	return ok
}

// splitPackageSpecifier splits a specifier into its package root and subpath.
// "@scope/pkg/sub" -> ("@scope/pkg", "./sub"); "pkg" -> ("pkg", ".").
func splitPackageSpecifier(spec string) (pkg, subpath string) {
	if strings.HasPrefix(spec, "@") {
		rest := spec[1:]
		scope, tail, ok := strings.Cut(rest, "/")
		if !ok {
			return "", "" // a bare scope is not importable
		}
		name, after, nested := strings.Cut(tail, "/")
		if nested {
			return "@" + scope + "/" + name, "./" + after
		}
		return "@" + scope + "/" + name, "."
	}

	name, after, nested := strings.Cut(spec, "/")
	if nested {
		return name, "./" + after
	}
	return name, "."
}

// scanSpecifiers walks the source text and collects module specifier string
// literals from import declarations, re-exports, dynamic imports, require
// calls and triple-slash type references. A hand scanner keeps this cheap on
// large files; it deliberately tolerates code that would not parse.
func scanSpecifiers(content string) []string {
	var specs []string

	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '/':
			if i+1 < len(content) {
				switch content[i+1] {
				case '/':
					// Triple-slash reference directives carry type deps.
					lineEnd := strings.IndexByte(content[i:], '\n')
					line := content[i:]
					if lineEnd >= 0 {
						line = content[i : i+lineEnd]
					}
					if ref := parseReferenceTypes(line); ref != "" {
						specs = append(specs, ref)
					}
					if lineEnd < 0 {
						return specs
					}
					i += lineEnd
				case '*':
					end := strings.Index(content[i+2:], "*/")
					if end < 0 {
						return specs
					}
					i += 2 + end + 1
				}
			}
		case '\'', '"', '`':
			// Skip over string literals not consumed by keyword scans so a
			// quoted "import" inside one never confuses the scanner.
			i = skipString(content, i)
		case 'i', 'e', 'r':
			if spec, next, ok := scanClauseAt(content, i); ok {
				specs = append(specs, spec)
				i = next
			}
		}
	}
	return specs
}

// scanClauseAt tries to parse an import/export/require clause starting at i
// and returns the specifier plus the index to resume from.
func scanClauseAt(content string, i int) (spec string, next int, ok bool) {
	if !atWordBoundary(content, i) {
		return "", i, false
	}

	switch {
	case strings.HasPrefix(content[i:], "import"):
		return specifierAfterKeyword(content, i+len("import"), true)
	case strings.HasPrefix(content[i:], "export"):
		// Only re-exports ("export ... from 'x'") carry a specifier.
		return specifierAfterFrom(content, i+len("export"))
	case strings.HasPrefix(content[i:], "require"):
		return specifierInCall(content, i+len("require"))
	}
	return "", i, false
}

// specifierAfterKeyword handles `import "x"`, `import x from "x"`,
// `import("x")` and `import type { T } from "x"`.
func specifierAfterKeyword(content string, pos int, allowCall bool) (string, int, bool) {
	j := skipSpaces(content, pos)
	if j < len(content) {
		switch content[j] {
		case '\'', '"':
			s, end := readString(content, j)
			return s, end, s != ""
		case '(':
			if allowCall {
				return specifierInCall(content, pos)
			}
		}
	}
	return specifierAfterFrom(content, pos)
}

// specifierAfterFrom scans forward for a `from "x"` clause on the same
// statement.
func specifierAfterFrom(content string, pos int) (string, int, bool) {
	limit := pos + 512 // bindings lists are short; bound the scan
	if limit > len(content) {
		limit = len(content)
	}
	for j := pos; j < limit; j++ {
		switch content[j] {
		case ';', '\n':
			// `import x from` never spans statements, but a multiline
			// binding list does; only give up at a semicolon.
			if content[j] == ';' {
				return "", pos, false
			}
		case 'f':
			if strings.HasPrefix(content[j:], "from") && atWordBoundary(content, j) {
				k := skipSpaces(content, j+4)
				if k < len(content) && (content[k] == '\'' || content[k] == '"') {
					s, end := readString(content, k)
					return s, end, s != ""
				}
				return "", pos, false
			}
		}
	}
	return "", pos, false
}

// specifierInCall handles `require("x")` and `import("x")`.
func specifierInCall(content string, pos int) (string, int, bool) {
	j := skipSpaces(content, pos)
	if j >= len(content) || content[j] != '(' {
		return "", pos, false
	}
	j = skipSpaces(content, j+1)
	if j < len(content) && (content[j] == '\'' || content[j] == '"') {
		s, end := readString(content, j)
		return s, end, s != ""
	}
	return "", pos, false
}

// parseReferenceTypes extracts the package from a
// `/// <reference types="pkg" />` directive line.
func parseReferenceTypes(line string) string {
	if !strings.Contains(line, "<reference") {
		return ""
	}
	idx := strings.Index(line, `types="`)
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(`types="`):]
	if end := strings.IndexByte(rest, '"'); end > 0 {
		return rest[:end]
	}
	return ""
}

func atWordBoundary(content string, i int) bool {
	if i == 0 {
		return true
	}
	c := content[i-1]
	return !(c == '_' || c == '$' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'))
}

func skipSpaces(content string, i int) int {
	for i < len(content) && (content[i] == ' ' || content[i] == '\t' || content[i] == '\n' || content[i] == '\r') {
		i++
	}
	return i
}

// readString reads a quoted literal starting at i and returns its value and
// the index of the closing quote.
func readString(content string, i int) (string, int) {
	quote := content[i]
	for j := i + 1; j < len(content); j++ {
		switch content[j] {
		case '\\':
			j++
		case quote:
			return content[i+1 : j], j
		case '\n':
			return "", j // unterminated
		}
	}
	return "", len(content) - 1
}

// skipString advances past a quoted literal (including template literals).
func skipString(content string, i int) int {
	quote := content[i]
	for j := i + 1; j < len(content); j++ {
		switch content[j] {
		case '\\':
			j++
		case quote:
			return j
		case '\n':
			if quote != '`' {
				return j
			}
		}
	}
	return len(content) - 1
}

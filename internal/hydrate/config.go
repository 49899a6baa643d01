package hydrate

import (
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ifBars/Fluxel-sub000/internal/vfs"
)

// Manifest is the project's declared dependency surface, read from
// package.json. Absence of the manifest is not an error; the zero value
// applies.
type Manifest struct {
	Name            string
	Dependencies    []string
	DevDependencies []string
}

// AllDependencies returns direct plus dev dependencies, direct first,
// without duplicates.
func (m Manifest) AllDependencies() []string {
	seen := make(map[string]struct{}, len(m.Dependencies)+len(m.DevDependencies))
	out := make([]string, 0, len(m.Dependencies)+len(m.DevDependencies))
	for _, dep := range m.Dependencies {
		if _, ok := seen[dep]; !ok {
			seen[dep] = struct{}{}
			out = append(out, dep)
		}
	}
	for _, dep := range m.DevDependencies {
		if _, ok := seen[dep]; !ok {
			seen[dep] = struct{}{}
			out = append(out, dep)
		}
	}
	return out
}

// CompilerConfig is the compiler-style configuration read from
// tsconfig.json (or jsconfig.json), applied once per workspace.
type CompilerConfig struct {
	Module           string
	Target           string
	ModuleResolution string
	BaseURL          string
	Paths            map[string][]string
}

// DefaultCompilerConfig returns the options applied when no configuration
// file exists.
func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{
		Module:           "esnext",
		Target:           "es2022",
		ModuleResolution: "bundler",
	}
}

// ReadManifest reads package.json under root. A missing or unparsable
// manifest yields the zero Manifest.
func ReadManifest(fsys vfs.FS, root string) Manifest {
	data, err := fsys.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return Manifest{}
	}

	doc := gjson.ParseBytes(data)
	m := Manifest{Name: doc.Get("name").Str}
	doc.Get("dependencies").ForEach(func(key, _ gjson.Result) bool {
		m.Dependencies = append(m.Dependencies, key.Str)
		return true
	})
	doc.Get("devDependencies").ForEach(func(key, _ gjson.Result) bool {
		m.DevDependencies = append(m.DevDependencies, key.Str)
		return true
	})
	return m
}

// ReadCompilerConfig reads tsconfig.json (falling back to jsconfig.json)
// under root. Missing files and missing fields yield defaults. The file is
// treated as JSONC: comments and trailing commas are stripped before parsing.
func ReadCompilerConfig(fsys vfs.FS, root string) CompilerConfig {
	cfg := DefaultCompilerConfig()

	var data []byte
	for _, name := range []string{"tsconfig.json", "jsconfig.json"} {
		if d, err := fsys.ReadFile(filepath.Join(root, name)); err == nil {
			data = d
			break
		}
	}
	if data == nil {
		return cfg
	}

	doc := gjson.ParseBytes([]byte(stripJSONC(string(data))))
	opts := doc.Get("compilerOptions")
	if !opts.Exists() {
		return cfg
	}

	if v := opts.Get("module").Str; v != "" {
		cfg.Module = strings.ToLower(v)
	}
	if v := opts.Get("target").Str; v != "" {
		cfg.Target = strings.ToLower(v)
	}
	if v := opts.Get("moduleResolution").Str; v != "" {
		cfg.ModuleResolution = strings.ToLower(v)
	}
	cfg.BaseURL = opts.Get("baseUrl").Str

	if paths := opts.Get("paths"); paths.Exists() {
		cfg.Paths = make(map[string][]string)
		paths.ForEach(func(pattern, targets gjson.Result) bool {
			var repl []string
			targets.ForEach(func(_, target gjson.Result) bool {
				if target.Str != "" {
					repl = append(repl, target.Str)
				}
				return true
			})
			if len(repl) > 0 {
				cfg.Paths[pattern.Str] = repl
			}
			return true
		})
	}
	return cfg
}

// stripJSONC removes // and /* */ comments and trailing commas so the
// tolerant tsconfig dialect parses as plain JSON.
func stripJSONC(src string) string {
	var b strings.Builder
	b.Grow(len(src))

	inString := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if inString {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(src) {
				i++
				b.WriteByte(src[i])
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			b.WriteByte(c)
		case '/':
			if i+1 < len(src) && src[i+1] == '/' {
				for i < len(src) && src[i] != '\n' {
					i++
				}
				if i < len(src) {
					b.WriteByte('\n')
				}
			} else if i+1 < len(src) && src[i+1] == '*' {
				end := strings.Index(src[i+2:], "*/")
				if end < 0 {
					i = len(src)
				} else {
					i += 2 + end + 1
				}
			} else {
				b.WriteByte(c)
			}
		case ',':
			// Drop the comma if the next non-space char closes a scope.
			j := i + 1
			for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
				j++
			}
			if j < len(src) && (src[j] == '}' || src[j] == ']') {
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

package hydrate

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ifBars/Fluxel-sub000/internal/vfs"
)

const (
	// maxDTSDepth bounds the sibling-directory declaration sweep.
	maxDTSDepth = 2
)

// Typings is the discovered declaration surface of one package.
type Typings struct {
	PackageName string
	Files       []string
	PackageJSON string
}

// Resolver locates packages and their type declarations using node-style
// resolution: node_modules directories walked upward from a start directory,
// bounded by the project root.
type Resolver struct {
	fs   vfs.FS
	root string

	// maxFilesPerPackage caps the declaration sweep per package.
	maxFilesPerPackage int
}

// NewResolver creates a resolver rooted at the given project root.
func NewResolver(fsys vfs.FS, root string, maxFilesPerPackage int) *Resolver {
	if maxFilesPerPackage <= 0 {
		maxFilesPerPackage = DefaultMaxUnitsPerPackage
	}
	return &Resolver{fs: fsys, root: root, maxFilesPerPackage: maxFilesPerPackage}
}

// ResolvePackageDir walks node_modules directories upward from startDir,
// stopping at the project root, and returns the package's directory.
func (r *Resolver) ResolvePackageDir(startDir, pkg string) (string, bool) {
	current := startDir
	for {
		candidate := filepath.Join(current, "node_modules", pkg)
		if r.fs.IsDir(candidate) {
			return candidate, true
		}
		if current == r.root {
			break
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return "", false
}

// DiscoverTypings locates .d.ts files for a package, checking in order:
// the exports field's types condition, top-level types/typings fields,
// common fallback paths, and finally the @types/* companion package. Files
// found seed a bounded sweep of sibling declarations in the same directory,
// which picks up multi-file declaration trees referenced from the entry.
func (r *Resolver) DiscoverTypings(pkg string) Typings {
	out := Typings{PackageName: pkg}
	visited := make(map[string]struct{})

	if pkgDir, ok := r.ResolvePackageDir(r.root, pkg); ok {
		out.PackageJSON = filepath.Join(pkgDir, "package.json")

		if data, err := r.fs.ReadFile(out.PackageJSON); err == nil {
			doc := gjson.ParseBytes(data)

			// 1. Modern packages declare types through export conditions.
			if exports := doc.Get("exports"); exports.Exists() {
				if target := selectTypesTarget(exports); target != "" {
					candidate := filepath.Join(pkgDir, strings.TrimPrefix(target, "./"))
					if r.isFile(candidate) {
						r.accept(&out, candidate, visited)
					}
				}
			}

			// 2. Top-level types / typings fields.
			types := doc.Get("types").Str
			if types == "" {
				types = doc.Get("typings").Str
			}
			if types != "" {
				candidate := filepath.Join(pkgDir, types)
				if r.isFile(candidate) {
					r.accept(&out, candidate, visited)
				}
			}
		}

		// 3. Common fallback locations.
		for _, candidate := range []string{
			"index.d.ts", "index.d.mts",
			"dist/index.d.ts", "lib/index.d.ts", "types/index.d.ts", "build/index.d.ts",
		} {
			full := filepath.Join(pkgDir, candidate)
			if r.isFile(full) {
				r.accept(&out, full, visited)
			}
		}
	}

	// 4. @types companion package fallback.
	if typesDir, ok := r.ResolvePackageDir(r.root, TypesPackageName(pkg)); ok {
		index := filepath.Join(typesDir, "index.d.ts")
		if r.isFile(index) {
			if out.PackageJSON == "" {
				out.PackageJSON = filepath.Join(typesDir, "package.json")
			}
			out.Files = append(out.Files, index)
			r.sweepDir(typesDir, &out, visited, 0)
		}
	}

	sort.Strings(out.Files)
	out.Files = dedupeSorted(out.Files)
	return out
}

// TypesPackageName maps a package name to its DefinitelyTyped companion:
// "react" -> "@types/react", "@scope/pkg" -> "@types/scope__pkg".
func TypesPackageName(pkg string) string {
	mangled := strings.ReplaceAll(strings.TrimPrefix(pkg, "@"), "/", "__")
	return "@types/" + mangled
}

// accept records a declaration file and sweeps its directory for siblings.
func (r *Resolver) accept(out *Typings, file string, visited map[string]struct{}) {
	out.Files = append(out.Files, file)
	r.sweepDir(filepath.Dir(file), out, visited, 0)
}

// sweepDir collects declaration files under dir, bounded by depth and the
// per-package file cap.
func (r *Resolver) sweepDir(dir string, out *Typings, visited map[string]struct{}, depth int) {
	if depth > maxDTSDepth || len(out.Files) >= r.maxFilesPerPackage {
		return
	}
	if _, seen := visited[dir]; seen {
		return
	}
	visited[dir] = struct{}{}

	entries, err := r.fs.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if len(out.Files) >= r.maxFilesPerPackage {
			return
		}
		name := entry.Name()
		if entry.IsDir() {
			if name != "node_modules" && !strings.HasPrefix(name, ".") && depth < maxDTSDepth {
				r.sweepDir(entry.Path(), out, visited, depth+1)
			}
			continue
		}
		if isDeclarationFile(name) {
			out.Files = append(out.Files, entry.Path())
		}
	}
}

// ReferencedPackages scans declaration content for bare package names that
// the declarations themselves depend on. Published declarations commonly
// re-export types from a peer package the user never imports directly.
func ReferencedPackages(content string) []string {
	return ScanImports(content)
}

func (r *Resolver) isFile(path string) bool {
	info, err := r.fs.Stat(path)
	return err == nil && !info.IsDir()
}

func isDeclarationFile(name string) bool {
	return strings.HasSuffix(name, ".d.ts") ||
		strings.HasSuffix(name, ".d.mts") ||
		strings.HasSuffix(name, ".d.cts")
}

// selectTypesTarget walks an exports value looking for a declaration entry,
// preferring the types condition at every level.
func selectTypesTarget(value gjson.Result) string {
	switch {
	case value.Type == gjson.String:
		if isDeclarationFile(value.Str) {
			return value.Str
		}
		return ""
	case value.IsArray():
		for _, entry := range value.Array() {
			if target := selectTypesTarget(entry); target != "" {
				return target
			}
		}
		return ""
	case value.IsObject():
		// The "." subpath first for object-of-subpaths form.
		if dot := value.Get("\\."); dot.Exists() {
			if target := selectTypesTarget(dot); target != "" {
				return target
			}
		}
		if types := value.Get("types"); types.Exists() {
			if target := selectTypesTarget(types); target != "" {
				return target
			}
			if types.Type == gjson.String {
				return types.Str
			}
		}
		if typings := value.Get("typings"); typings.Exists() {
			if target := selectTypesTarget(typings); target != "" {
				return target
			}
		}
		if def := value.Get("default"); def.Exists() {
			return selectTypesTarget(def)
		}
		return ""
	default:
		return ""
	}
}

func dedupeSorted(in []string) []string {
	out := in[:0]
	var prev string
	for i, s := range in {
		if i == 0 || s != prev {
			out = append(out, s)
		}
		prev = s
	}
	return out
}

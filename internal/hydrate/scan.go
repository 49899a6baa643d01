package hydrate

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ifBars/Fluxel-sub000/internal/model"
	"github.com/ifBars/Fluxel-sub000/internal/vfs"
)

// skipDirs are directory names excluded from the source walk. Dependency
// trees and build output are loaded through typings discovery, never
// mirrored wholesale.
var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".svn":         {},
	".hg":          {},
	"dist":         {},
	"build":        {},
	"out":          {},
	"target":       {},
	"vendor":       {},
	"coverage":     {},
	".next":        {},
	".cache":       {},
}

// sourceExts are file extensions mirrored into the project model.
var sourceExts = map[string]struct{}{
	".ts":  {},
	".tsx": {},
	".js":  {},
	".jsx": {},
	".mts": {},
	".cts": {},
	".mjs": {},
	".cjs": {},
}

// mirrorSources walks the workspace tree and registers every source file in
// the model store, so relative imports between project files resolve. The
// walk stops once the source-file cap is reached. Files already present in
// the store (an open editor buffer, a previous hydration pass) are left
// untouched.
func (e *Engine) mirrorSources(ctx context.Context, root string) (int, error) {
	paths := make([]string, 0, 256)
	e.collectSources(root, &paths)

	contents := vfs.BatchRead(ctx, e.fs, paths)

	mirrored := 0
	for _, p := range paths {
		content, ok := contents[p]
		if !ok {
			continue
		}
		if e.store.Add(model.PathToURI(p), content) {
			mirrored++
		}
	}

	e.mu.Lock()
	e.sourceFiles += mirrored
	e.mu.Unlock()
	return mirrored, ctx.Err()
}

// collectSources appends source file paths under dir, bounded by the
// source-file budget. Hidden directories and tooling output are skipped.
func (e *Engine) collectSources(dir string, paths *[]string) {
	if len(*paths) >= e.budget.MaxSourceFiles {
		return
	}

	entries, err := e.fs.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if len(*paths) >= e.budget.MaxSourceFiles {
			return
		}
		name := entry.Name()
		full := filepath.Join(dir, name)
		if entry.IsDir() {
			if _, skip := skipDirs[name]; skip {
				continue
			}
			if strings.HasPrefix(name, ".") {
				continue
			}
			if e.excluded(name) {
				continue
			}
			e.collectSources(full, paths)
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := sourceExts[ext]; ok {
			*paths = append(*paths, full)
		}
	}
}

// excluded reports whether a directory name is in the configured exclude
// list.
func (e *Engine) excluded(name string) bool {
	for _, d := range e.budget.ExcludeDirs {
		if d == name {
			return true
		}
	}
	return false
}

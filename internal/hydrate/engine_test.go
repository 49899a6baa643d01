package hydrate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ifBars/Fluxel-sub000/internal/model"
	"github.com/ifBars/Fluxel-sub000/internal/vfs"
)

// seedWorkspace builds a small node project with one typed dependency.
func seedWorkspace(fs *vfs.MemFS) {
	fs.AddFile("/proj/package.json", `{"name":"demo","dependencies":{"left-pad":"^1.3.0"}}`)
	fs.AddFile("/proj/src/app.ts", `import pad from "left-pad"; export const s = pad("x", 3);`)
	fs.AddFile("/proj/src/util.ts", `export const n = 1;`)
	fs.AddFile("/proj/node_modules/left-pad/package.json", `{"name":"left-pad","types":"index.d.ts"}`)
	fs.AddFile("/proj/node_modules/left-pad/index.d.ts", `declare function leftPad(s: string, n: number): string; export = leftPad;`)
}

func TestHydrateWorkspace(t *testing.T) {
	fs := vfs.NewMemFS()
	seedWorkspace(fs)
	store := model.NewMemStore()
	engine := NewEngine(fs, store)

	if err := engine.HydrateWorkspace(context.Background(), "/proj"); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{
		"/proj/src/app.ts",
		"/proj/src/util.ts",
		"/proj/node_modules/left-pad/index.d.ts",
	} {
		if !store.Has(model.PathToURI(path)) {
			t.Errorf("model missing for %s", path)
		}
	}

	stats := engine.Stats()
	if stats.SourceFiles != 2 {
		t.Errorf("SourceFiles: got %d, want 2", stats.SourceFiles)
	}
	if stats.Packages != 1 {
		t.Errorf("Packages: got %d, want 1", stats.Packages)
	}
	if stats.Units == 0 || stats.BytesLoaded == 0 {
		t.Errorf("units/bytes not counted: %+v", stats)
	}
	if stats.Root != "/proj" {
		t.Errorf("Root: got %q", stats.Root)
	}
}

func TestHydrateWorkspaceIdempotent(t *testing.T) {
	fs := vfs.NewMemFS()
	seedWorkspace(fs)
	store := model.NewMemStore()
	engine := NewEngine(fs, store)

	if err := engine.HydrateWorkspace(context.Background(), "/proj"); err != nil {
		t.Fatal(err)
	}
	before := store.Len()

	if err := engine.HydrateWorkspace(context.Background(), "/proj"); err != nil {
		t.Fatal(err)
	}
	if got := store.Len(); got != before {
		t.Errorf("second hydration added %d models, want 0", got-before)
	}
}

func TestExcludeDirsSkipSourceWalk(t *testing.T) {
	fs := vfs.NewMemFS()
	seedWorkspace(fs)
	fs.AddFile("/proj/fixtures/big.ts", `export const fixture = 1;`)
	store := model.NewMemStore()

	budget := DefaultBudget()
	budget.ExcludeDirs = []string{"fixtures"}
	engine := NewEngine(fs, store, WithBudget(budget))

	if err := engine.HydrateWorkspace(context.Background(), "/proj"); err != nil {
		t.Fatal(err)
	}
	if store.Has(model.PathToURI("/proj/fixtures/big.ts")) {
		t.Error("excluded directory was mirrored")
	}
	if !store.Has(model.PathToURI("/proj/src/app.ts")) {
		t.Error("non-excluded source missing")
	}
}

func TestPerUnitCapSkipsWithoutCounting(t *testing.T) {
	fs := vfs.NewMemFS()
	fs.AddFile("/proj/package.json", `{"dependencies":{"bloated":"*","tiny":"*"}}`)
	fs.AddFile("/proj/node_modules/bloated/package.json", `{"types":"index.d.ts"}`)
	fs.AddFile("/proj/node_modules/bloated/index.d.ts", strings.Repeat("x", 3_000_000))
	fs.AddFile("/proj/node_modules/tiny/package.json", `{"types":"index.d.ts"}`)
	fs.AddFile("/proj/node_modules/tiny/index.d.ts", `export declare const t: number;`)

	store := model.NewMemStore()
	engine := NewEngine(fs, store)

	if err := engine.HydrateWorkspace(context.Background(), "/proj"); err != nil {
		t.Fatal(err)
	}

	if store.Has(model.PathToURI("/proj/node_modules/bloated/index.d.ts")) {
		t.Error("3MB declaration should have been skipped")
	}
	if !store.Has(model.PathToURI("/proj/node_modules/tiny/index.d.ts")) {
		t.Error("small declaration should have been loaded")
	}

	stats := engine.Stats()
	if stats.SkippedUnits == 0 {
		t.Error("skip should be counted in SkippedUnits")
	}
	// The skipped unit must not consume budget.
	if stats.BytesLoaded >= 3_000_000 {
		t.Errorf("BytesLoaded includes skipped unit: %d", stats.BytesLoaded)
	}
}

func TestTotalBudgetCap(t *testing.T) {
	fs := vfs.NewMemFS()
	fs.AddFile("/proj/package.json", `{"dependencies":{"first":"*","second":"*"}}`)
	for _, pkg := range []string{"first", "second"} {
		fs.AddFile("/proj/node_modules/"+pkg+"/package.json", `{"types":"index.d.ts"}`)
		fs.AddFile("/proj/node_modules/"+pkg+"/index.d.ts", strings.Repeat("y", 30_000))
	}

	budget := DefaultBudget()
	budget.MaxTotalBytes = 40_000

	store := model.NewMemStore()
	engine := NewEngine(fs, store, WithBudget(budget))

	if err := engine.HydrateWorkspace(context.Background(), "/proj"); err != nil {
		t.Fatal(err)
	}

	stats := engine.Stats()
	if stats.BytesLoaded > 40_000 {
		t.Errorf("total budget exceeded: %d bytes", stats.BytesLoaded)
	}
	if stats.SkippedUnits == 0 {
		t.Error("over-budget unit should be skipped")
	}
}

func TestSourceFileCap(t *testing.T) {
	fs := vfs.NewMemFS()
	fs.AddFile("/proj/package.json", `{}`)
	for i := 0; i < 10; i++ {
		fs.AddFile(fmt.Sprintf("/proj/src/f%d.ts", i), `export {};`)
	}

	budget := DefaultBudget()
	budget.MaxSourceFiles = 3

	store := model.NewMemStore()
	engine := NewEngine(fs, store, WithBudget(budget))

	if err := engine.HydrateWorkspace(context.Background(), "/proj"); err != nil {
		t.Fatal(err)
	}
	if got := engine.Stats().SourceFiles; got > 3 {
		t.Errorf("source cap exceeded: %d files mirrored", got)
	}
}

func TestWorkspaceSwitchClearsState(t *testing.T) {
	fs := vfs.NewMemFS()
	seedWorkspace(fs)
	fs.AddFile("/other/package.json", `{"name":"other"}`)
	fs.AddFile("/other/main.ts", `export const o = 1;`)

	store := model.NewMemStore()
	engine := NewEngine(fs, store)

	if err := engine.HydrateWorkspace(context.Background(), "/proj"); err != nil {
		t.Fatal(err)
	}
	firstBytes := engine.Stats().BytesLoaded
	if firstBytes == 0 {
		t.Fatal("first workspace loaded no declarations")
	}

	if err := engine.HydrateWorkspace(context.Background(), "/other"); err != nil {
		t.Fatal(err)
	}

	stats := engine.Stats()
	if stats.Root != "/other" {
		t.Errorf("Root: got %q, want /other", stats.Root)
	}
	// Budget counters are scoped to the current workspace.
	if stats.BytesLoaded >= firstBytes {
		t.Errorf("counters not reset on root switch: %d", stats.BytesLoaded)
	}
	if stats.SourceFiles != 1 {
		t.Errorf("SourceFiles: got %d, want 1", stats.SourceFiles)
	}
}

func TestTransitivePackagesLoaded(t *testing.T) {
	fs := vfs.NewMemFS()
	fs.AddFile("/proj/package.json", `{"dependencies":{"wrapper":"*"}}`)
	fs.AddFile("/proj/node_modules/wrapper/package.json", `{"types":"index.d.ts"}`)
	fs.AddFile("/proj/node_modules/wrapper/index.d.ts", `export * from "inner-core";`)
	fs.AddFile("/proj/node_modules/inner-core/package.json", `{"types":"index.d.ts"}`)
	fs.AddFile("/proj/node_modules/inner-core/index.d.ts", `export declare const core: true;`)

	store := model.NewMemStore()
	engine := NewEngine(fs, store)

	if err := engine.HydrateWorkspace(context.Background(), "/proj"); err != nil {
		t.Fatal(err)
	}

	if !store.Has(model.PathToURI("/proj/node_modules/inner-core/index.d.ts")) {
		t.Error("transitively referenced package declarations not loaded")
	}
}

func TestAmbientDeclarationsLoaded(t *testing.T) {
	fs := vfs.NewMemFS()
	fs.AddFile("/proj/package.json", `{"dependencies":{"vite":"*"}}`)
	fs.AddFile("/proj/src/vite-env.d.ts", `/// <reference types="vite/client" />`)
	fs.AddFile("/proj/env.d.ts", `declare const __DEV__: boolean;`)
	fs.AddFile("/proj/node_modules/vite/package.json", `{"name":"vite"}`)
	fs.AddFile("/proj/node_modules/vite/client.d.ts", `interface ImportMeta { env: Record<string, string> }`)

	store := model.NewMemStore()
	engine := NewEngine(fs, store)

	if err := engine.HydrateWorkspace(context.Background(), "/proj"); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{
		"/proj/env.d.ts",
		"/proj/src/vite-env.d.ts",
		"/proj/node_modules/vite/client.d.ts",
	} {
		if !store.Has(model.PathToURI(path)) {
			t.Errorf("ambient declaration not loaded: %s", path)
		}
	}
}

func TestYieldBetweenFlushBatches(t *testing.T) {
	fs := vfs.NewMemFS()
	deps := `{"dependencies":{"many":"*"}}`
	fs.AddFile("/proj/package.json", deps)
	fs.AddFile("/proj/node_modules/many/package.json", `{"types":"index.d.ts"}`)
	fs.AddFile("/proj/node_modules/many/index.d.ts", `export {};`)
	for i := 0; i < flushBatchSize+10; i++ {
		fs.AddFile(fmt.Sprintf("/proj/node_modules/many/part%03d.d.ts", i), `export {};`)
	}

	var yields int
	store := model.NewMemStore()
	engine := NewEngine(fs, store, WithYield(func(ctx context.Context) { yields++ }))

	if err := engine.HydrateWorkspace(context.Background(), "/proj"); err != nil {
		t.Fatal(err)
	}
	if yields == 0 {
		t.Error("expected a cooperative yield between flush batches")
	}
}

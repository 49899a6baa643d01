package hydrate

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ifBars/Fluxel-sub000/internal/vfs"
)

func TestReadManifest(t *testing.T) {
	fs := vfs.NewMemFS()
	fs.AddFile("/proj/package.json", `{
		"name": "demo",
		"dependencies": {"react": "^18.0.0", "zod": "^3.22.0"},
		"devDependencies": {"vitest": "^1.0.0", "react": "^18.0.0"}
	}`)

	m := ReadManifest(fs, "/proj")
	if m.Name != "demo" {
		t.Errorf("Name: got %q, want demo", m.Name)
	}
	if len(m.Dependencies) != 2 || len(m.DevDependencies) != 2 {
		t.Fatalf("deps: got %v / %v", m.Dependencies, m.DevDependencies)
	}

	all := m.AllDependencies()
	want := []string{"react", "zod", "vitest"}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("AllDependencies: got %v, want %v", all, want)
	}
}

func TestReadManifestMissing(t *testing.T) {
	m := ReadManifest(vfs.NewMemFS(), "/proj")
	if m.Name != "" || len(m.AllDependencies()) != 0 {
		t.Errorf("missing manifest should yield zero value, got %+v", m)
	}
}

func TestReadCompilerConfig(t *testing.T) {
	fs := vfs.NewMemFS()
	fs.AddFile("/proj/tsconfig.json", `{
		// project configuration
		"compilerOptions": {
			"module": "ESNext",
			"target": "ES2020",
			"moduleResolution": "Bundler",
			"baseUrl": "./src",
			/* alias table */
			"paths": {
				"@app/*": ["app/*"],
			},
		},
	}`)

	cfg := ReadCompilerConfig(fs, "/proj")
	if cfg.Module != "esnext" || cfg.Target != "es2020" || cfg.ModuleResolution != "bundler" {
		t.Errorf("options: got %+v", cfg)
	}
	if cfg.BaseURL != "./src" {
		t.Errorf("BaseURL: got %q", cfg.BaseURL)
	}
	if !reflect.DeepEqual(cfg.Paths["@app/*"], []string{"app/*"}) {
		t.Errorf("Paths: got %v", cfg.Paths)
	}
}

func TestReadCompilerConfigDefaults(t *testing.T) {
	cfg := ReadCompilerConfig(vfs.NewMemFS(), "/proj")
	want := DefaultCompilerConfig()
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("defaults: got %+v, want %+v", cfg, want)
	}
}

func TestReadCompilerConfigJSConfigFallback(t *testing.T) {
	fs := vfs.NewMemFS()
	fs.AddFile("/proj/jsconfig.json", `{"compilerOptions": {"module": "CommonJS"}}`)

	cfg := ReadCompilerConfig(fs, "/proj")
	if cfg.Module != "commonjs" {
		t.Errorf("Module: got %q, want commonjs", cfg.Module)
	}
	// Unset fields keep defaults.
	if cfg.Target != DefaultCompilerConfig().Target {
		t.Errorf("Target: got %q, want default", cfg.Target)
	}
}

func TestStripJSONC(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "line comment",
			in:   "{\n// note\n\"a\": 1\n}",
			want: "{\n\n\"a\": 1\n}",
		},
		{
			name: "block comment",
			in:   `{"a": /* hidden */ 1}`,
			want: `{"a":  1}`,
		},
		{
			name: "trailing comma in object",
			in:   `{"a": 1,}`,
			want: `{"a": 1}`,
		},
		{
			name: "trailing comma in array",
			in:   `{"a": [1, 2,]}`,
			want: `{"a": [1, 2]}`,
		},
		{
			name: "slashes inside strings survive",
			in:   `{"url": "https://example.com//x"}`,
			want: `{"url": "https://example.com//x"}`,
		},
		{
			name: "escaped quote inside string",
			in:   `{"a": "say \" // not a comment"}`,
			want: `{"a": "say \" // not a comment"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripJSONC(tt.in)
			if strings.TrimSpace(got) != strings.TrimSpace(tt.want) {
				t.Errorf("stripJSONC:\n got %q\nwant %q", got, tt.want)
			}
		})
	}
}

package lang

import (
	"path/filepath"
	"strings"

	"github.com/ifBars/Fluxel-sub000/internal/vfs"
)

// ProfileKind classifies what kind of project a workspace root contains.
type ProfileKind string

const (
	ProfileUnknown ProfileKind = "unknown"
	ProfileNode    ProfileKind = "node"
	ProfileDotnet  ProfileKind = "dotnet"
	ProfileMixed   ProfileKind = "mixed"
)

// Profile describes a detected workspace: its project kind and, for node
// projects, the package manager its lockfile implies.
type Profile struct {
	Kind           ProfileKind
	PackageManager string
}

// lockfiles maps lockfile names to the package manager that writes them,
// checked in priority order.
var lockfiles = []struct {
	name    string
	manager string
}{
	{"pnpm-lock.yaml", "pnpm"},
	{"yarn.lock", "yarn"},
	{"bun.lock", "bun"},
	{"bun.lockb", "bun"},
	{"package-lock.json", "npm"},
}

// DetectProfile inspects a workspace root and classifies it. Detection only
// looks at the top level; monorepo sub-projects are profiled when they
// become workspace roots themselves.
func DetectProfile(fsys vfs.FS, root string) Profile {
	node := fsys.Exists(filepath.Join(root, "package.json"))
	dotnet := fsys.Exists(filepath.Join(root, "global.json"))

	if !dotnet {
		entries, err := fsys.ReadDir(root)
		if err == nil {
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				switch strings.ToLower(filepath.Ext(entry.Name())) {
				case ".csproj", ".sln", ".fsproj":
					dotnet = true
				}
			}
		}
	}

	profile := Profile{Kind: ProfileUnknown}
	switch {
	case node && dotnet:
		profile.Kind = ProfileMixed
	case node:
		profile.Kind = ProfileNode
	case dotnet:
		profile.Kind = ProfileDotnet
	}

	if node {
		for _, lf := range lockfiles {
			if fsys.Exists(filepath.Join(root, lf.name)) {
				profile.PackageManager = lf.manager
				break
			}
		}
	}
	return profile
}

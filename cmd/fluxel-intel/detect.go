package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ifBars/Fluxel-sub000/internal/lang"
	"github.com/ifBars/Fluxel-sub000/internal/vfs"
)

var detectCmd = &cobra.Command{
	Use:   "detect [path]",
	Short: "Classify a workspace root",
	Long:  "Inspects a workspace root and reports its project kind (node, dotnet, mixed) and the package manager its lockfile implies.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}

	profile := lang.DetectProfile(vfs.NewOSFS(), root)

	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{
			"root":            root,
			"kind":            string(profile.Kind),
			"package_manager": profile.PackageManager,
		})
	}

	fmt.Printf("root:    %s\n", root)
	fmt.Printf("kind:    %s\n", profile.Kind)
	if profile.PackageManager != "" {
		fmt.Printf("manager: %s\n", profile.PackageManager)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ifBars/Fluxel-sub000/internal/hydrate"
)

var importsCmd = &cobra.Command{
	Use:   "imports <file>",
	Short: "List the bare package imports of a source file",
	Long:  "Parses a file's import statements and prints the package roots that would drive lazy type loading. Relative and built-in specifiers are excluded.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImports,
}

func runImports(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	pkgs := hydrate.ScanImports(string(data))

	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pkgs)
	}
	for _, pkg := range pkgs {
		fmt.Println(pkg)
	}
	return nil
}

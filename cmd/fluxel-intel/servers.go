package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List configured language servers",
	Long:  "Lists the language servers from the active configuration and whether each command is installed on PATH.",
	Args:  cobra.NoArgs,
	RunE:  runServers,
}

type serverStatus struct {
	Language  string `json:"language"`
	Command   string `json:"command"`
	Args      string `json:"args,omitempty"`
	Installed bool   `json:"installed"`
}

func runServers(cmd *cobra.Command, args []string) error {
	languages := make([]string, 0, len(settings.Servers))
	for id := range settings.Servers {
		languages = append(languages, id)
	}
	sort.Strings(languages)

	statuses := make([]serverStatus, 0, len(languages))
	for _, id := range languages {
		server := settings.Servers[id]
		_, err := exec.LookPath(server.Command)
		statuses = append(statuses, serverStatus{
			Language:  id,
			Command:   server.Command,
			Args:      strings.Join(server.Args, " "),
			Installed: err == nil,
		})
	}

	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	for _, s := range statuses {
		state := "missing"
		if s.Installed {
			state = "installed"
		}
		fmt.Printf("%-12s %s %s (%s)\n", s.Language, s.Command, s.Args, state)
	}
	if len(statuses) == 0 {
		fmt.Println("no language servers configured")
	}
	return nil
}

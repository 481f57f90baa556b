package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/cli"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hubd",
		Short: "Distrito Tecnologico hub daemon",
		Long:  "Daemon for the funding notice hub: API server, retrieval pipeline and admin tools",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.SettingsCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

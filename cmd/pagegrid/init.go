package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagegrid/pagegrid/internal/paths"
)

// initCmd creates the configuration directory, the default config file
// and the database. The persistent pre-run already does all of that for
// every command, so init only has to report where things ended up.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration and database files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := paths.ResolveConfigDir(flagConfigDir)
		if err != nil {
			return err
		}

		fmt.Println("pagegrid initialized")
		fmt.Println("  config:  ", configDir)
		fmt.Println("  database:", dbPath)
		return nil
	},
}

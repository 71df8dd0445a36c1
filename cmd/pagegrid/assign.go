package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Manage page pattern assignments",
	Long: `Assignments bind schemas to pages by pattern: "a:b" matches one page,
"a:*" the pages directly in a namespace, "a:**" a whole subtree, and
"/re/" a regular expression.`,
}

func init() {
	assignCmd.AddCommand(assignAddCmd)
	assignCmd.AddCommand(assignRemoveCmd)
	assignCmd.AddCommand(assignListCmd)
}

var assignAddCmd = &cobra.Command{
	Use:   "add <pattern> <schema>",
	Short: "Assign a schema to pages matching a pattern",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := backend.AddPattern(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Assigned %q to pages matching %q\n", args[1], args[0])
		return nil
	},
}

var assignRemoveCmd = &cobra.Command{
	Use:   "remove <pattern> <schema>",
	Short: "Remove a pattern assignment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := backend.RemovePattern(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Removed %q from pages matching %q\n", args[1], args[0])
		return nil
	},
}

var assignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patterns, or the schemas assigned to --page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPage != "" {
			tables, err := backend.PageAssignments(cmd.Context(), flagPage)
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(tables, "\n"))
			return nil
		}
		patterns, err := backend.Patterns(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range patterns {
			fmt.Printf("%s\t%s\n", p.Pattern, p.Table)
		}
		return nil
	},
}

// Schema management commands: import, export, list, delete.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagegrid/pagegrid/internal/schema"
	"github.com/pagegrid/pagegrid/pkg/types"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage schema definitions",
}

var flagSchemaForce bool

func init() {
	schemaDeleteCmd.Flags().BoolVar(&flagSchemaForce, "force", false, "delete without confirmation")

	schemaCmd.AddCommand(schemaImportCmd)
	schemaCmd.AddCommand(schemaExportCmd)
	schemaCmd.AddCommand(schemaListCmd)
	schemaCmd.AddCommand(schemaDeleteCmd)
}

var schemaImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a schema definition, creating a new structure version",
	Long: `Import reads a schema export document (JSON) and stores it as the
schema's next structure version. Pass "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0])
		if err != nil {
			return err
		}
		exp, err := types.ParseSchemaExport(data)
		if err != nil {
			return err
		}
		wctx := requestContext()
		s, err := schema.Build(cmd.Context(), backend.DB(), exp, wctx.User, wctx.Now().Unix(), backend.Hooks())
		if err != nil {
			return err
		}
		fmt.Printf("Imported schema %q (version %d, %d columns)\n", s.Table(), s.ID(), len(s.Columns()))
		return nil
	},
}

var schemaExportCmd = &cobra.Command{
	Use:   "export <schema>",
	Short: "Export a schema's current structure version as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := schema.Load(cmd.Context(), backend.DB(), args[0], requestContext().Lang(), backend.Hooks())
		if err != nil {
			return err
		}
		out, err := s.Export().Encode()
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all schemas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := backend.Tables(cmd.Context())
		if err != nil {
			return err
		}
		lang := requestContext().Lang()
		for _, tbl := range tables {
			s, err := schema.Load(cmd.Context(), backend.DB(), tbl, lang, backend.Hooks())
			if err != nil {
				return err
			}
			kind := "page"
			if s.Global() {
				kind = "global"
			}
			fmt.Printf("%s\t%s\t%d columns\n", tbl, kind, len(s.EnabledColumns()))
		}
		return nil
	},
}

var schemaDeleteCmd = &cobra.Command{
	Use:   "delete <schema>",
	Short: "Delete a schema and all its data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagSchemaForce {
			return fmt.Errorf("deleting a schema removes all its data; re-run with --force")
		}
		if err := backend.DeleteSchema(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted schema %q\n", args[0])
		return nil
	},
}

// readInput reads a file argument, with "-" meaning stdin.
func readInput(arg string) ([]byte, error) {
	if arg == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(arg)
}

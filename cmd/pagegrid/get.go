package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pagegrid/pagegrid/internal/schema"
	"github.com/pagegrid/pagegrid/pkg/types"
)

var (
	flagGetRow string
	flagGetRev int64
)

func init() {
	getCmd.Flags().StringVar(&flagGetRow, "rid", "", "row id (global schemas)")
	getCmd.Flags().Int64Var(&flagGetRev, "rev", 0, "revision to read (default: latest)")
}

var getCmd = &cobra.Command{
	Use:   "get <schema>",
	Short: "Read a record's field values",
	Long: `Get prints the stored values of one record. A record that was never
saved prints empty values. With --rev a historical revision is read.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wctx := requestContext()
		s, err := schema.Load(cmd.Context(), backend.DB(), args[0], wctx.Lang(), backend.Hooks())
		if err != nil {
			return err
		}
		if flagPage != "" && !backend.Host().CanRead(flagPage, wctx.User) {
			return fmt.Errorf("%w: user %q may not read %q", types.ErrNotAuthorized, wctx.User, flagPage)
		}

		id := types.RecordID{Page: flagPage, Row: flagGetRow, Rev: flagGetRev}
		if s.Global() {
			id.Page = ""
		}
		row, err := backend.GetRow(cmd.Context(), s, id)
		if err != nil {
			return err
		}

		if flagJSON {
			out := map[string]any{"rev": row.ID.Rev}
			for _, c := range s.EnabledColumns() {
				if c.IsVirtual() {
					continue
				}
				if c.Multi() {
					out[c.Label()] = row.Values[c.ColRef()]
				} else {
					out[c.Label()] = row.Values.First(c.ColRef())
				}
			}
			enc, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(enc))
			return nil
		}

		fmt.Printf("revision: %d\n", row.ID.Rev)
		for _, c := range s.EnabledColumns() {
			if c.IsVirtual() {
				continue
			}
			vals := row.Values[c.ColRef()]
			shown := make([]string, 0, len(vals))
			for _, v := range vals {
				shown = append(shown, c.Type().DisplayValue(v))
			}
			fmt.Printf("%s: %s\n", c.Label(), strings.Join(shown, ", "))
		}
		return nil
	},
}

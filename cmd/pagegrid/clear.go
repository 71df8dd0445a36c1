package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagegrid/pagegrid/internal/schema"
	"github.com/pagegrid/pagegrid/pkg/types"
)

var (
	flagClearRow     string
	flagClearSummary string
)

func init() {
	clearCmd.Flags().StringVar(&flagClearRow, "rid", "", "row id (global schemas)")
	clearCmd.Flags().StringVar(&flagClearSummary, "summary", "", "edit summary recorded with the tombstone")
}

var clearCmd = &cobra.Command{
	Use:   "clear <schema>",
	Short: "Clear a record, hiding it from aggregations",
	Long: `Clear writes an all-empty revision over the record. The record stops
appearing in aggregations; earlier revisions stay readable with get --rev.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wctx := requestContext()
		s, err := schema.Load(cmd.Context(), backend.DB(), args[0], wctx.Lang(), backend.Hooks())
		if err != nil {
			return err
		}
		if !s.UserCanEdit(wctx) || !backend.Host().CanEdit(flagPage, wctx.User) {
			return fmt.Errorf("%w: user %q may not edit %q", types.ErrNotAuthorized, wctx.User, s.Table())
		}

		id := types.RecordID{Page: flagPage, Row: flagClearRow}
		if s.Global() {
			id.Page = ""
		}
		cleared, err := backend.ClearRow(cmd.Context(), s, wctx, id, flagClearSummary)
		if err != nil {
			return err
		}
		if !cleared {
			fmt.Println("Record already empty; nothing cleared")
			return nil
		}
		fmt.Println("Record cleared")
		return nil
	},
}

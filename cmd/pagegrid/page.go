// Page lifecycle commands mirroring the wiki events the store reacts
// to: content saves, deletions and moves.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagegrid/pagegrid/internal/wiki"
)

var (
	flagPageTitle   string
	flagPageSummary string
)

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Propagate page lifecycle events into the store",
}

func init() {
	pageTouchCmd.Flags().StringVar(&flagPageTitle, "title", "", "display title of the page")
	pageTouchCmd.Flags().StringVar(&flagPageSummary, "summary", "", "edit summary of the content revision")

	pageCmd.AddCommand(pageTouchCmd)
	pageCmd.AddCommand(pageRemoveCmd)
	pageCmd.AddCommand(pageMoveCmd)
}

var pageTouchCmd = &cobra.Command{
	Use:   "touch <id>",
	Short: "Record a content save: title, editor and pattern assignments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wctx := requestContext()
		ev := wiki.PageSaveEvent{
			Page:     args[0],
			Revision: wctx.Now().Unix(),
			Editor:   wctx.User,
			Summary:  flagPageSummary,
			Title:    flagPageTitle,
		}
		if ev.Title == "" {
			ev.Title = backend.Host().PageTitle(ev.Page)
		}
		if err := backend.HandlePageSave(cmd.Context(), ev); err != nil {
			return err
		}
		fmt.Printf("Touched page %q\n", ev.Page)
		return nil
	},
}

var pageRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Record a page deletion, tombstoning its structured data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wctx := requestContext()
		if err := backend.HandlePageDelete(cmd.Context(), wiki.PageDeleteEvent{Page: args[0]}, wctx); err != nil {
			return err
		}
		fmt.Printf("Cleared structured data of %q\n", args[0])
		return nil
	},
}

var pageMoveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "Record a page move, rewriting identities and references",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		wctx := requestContext()
		ev := wiki.PageMoveEvent{From: args[0], To: args[1]}
		if err := backend.HandlePageMove(cmd.Context(), ev, wctx); err != nil {
			return err
		}
		fmt.Printf("Moved %q to %q\n", ev.From, ev.To)
		return nil
	},
}

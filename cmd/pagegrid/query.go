package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pagegrid/pagegrid/internal/search"
	"github.com/pagegrid/pagegrid/pkg/types"
)

var flagQuerySpec string

func init() {
	queryCmd.Flags().StringVar(&flagQuerySpec, "spec", "", "search configuration as inline JSON")
}

var queryCmd = &cobra.Command{
	Use:   "query [file]",
	Short: "Run a declarative aggregation",
	Long: `Query runs a search configuration and prints the matching rows. The
configuration is JSON, e.g.:

  {"schemas": [["project", "p"]],
   "cols": ["%pageid%", "title", "num"],
   "filter": [["num", ">=", "3", "AND"]],
   "sort": ["^num"], "limit": 20, "mode": "table"}

Pass the configuration as a file argument, "-" for stdin, or inline
with --spec.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		switch {
		case flagQuerySpec != "":
			raw = []byte(flagQuerySpec)
		case len(args) == 1:
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			raw = data
		default:
			return types.Configf("search configuration required: pass a file or --spec")
		}

		spec, err := types.ParseSearchSpec(raw)
		if err != nil {
			return err
		}
		wctx := requestContext()
		s, err := search.FromSpec(cmd.Context(), backend, wctx, logger, spec)
		if err != nil {
			return err
		}
		res, err := s.Execute(cmd.Context())
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(cmd, res)
		}
		return printTable(cmd, res)
	},
}

func printJSON(cmd *cobra.Command, res *search.Result) error {
	type wireRow map[string]string
	out := struct {
		Total int       `json:"total"`
		Rows  []wireRow `json:"rows"`
	}{Total: res.Total}
	for _, row := range res.Rows {
		wr := wireRow{}
		for _, cell := range row {
			wr[cell.Col.FullName()] = cell.Display
		}
		out.Rows = append(out.Rows, wr)
	}
	enc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(enc))
	return nil
}

func printTable(cmd *cobra.Command, res *search.Result) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	headers := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		headers[i] = c.FullName()
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cell.Display
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d rows\n", len(res.Rows), res.Total)
	return nil
}

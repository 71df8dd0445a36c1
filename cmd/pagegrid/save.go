package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagegrid/pagegrid/internal/schema"
	"github.com/pagegrid/pagegrid/pkg/types"
)

var (
	flagSaveData    string
	flagSaveFile    string
	flagSaveRow     string
	flagSaveSummary string
)

func init() {
	saveCmd.Flags().StringVar(&flagSaveData, "data", "", "field values as a JSON object")
	saveCmd.Flags().StringVar(&flagSaveFile, "file", "", "read field values from a JSON file (\"-\" for stdin)")
	saveCmd.Flags().StringVar(&flagSaveRow, "rid", "", "row id (global schemas; empty creates a new row)")
	saveCmd.Flags().StringVar(&flagSaveSummary, "summary", "", "edit summary recorded with the revision")
}

var saveCmd = &cobra.Command{
	Use:   "save <schema>",
	Short: "Validate and save field values as a new revision",
	Long: `Save validates the given field values against the schema and stores
them as a new revision. Values are a JSON object keyed by column label;
multi-value columns take arrays. Saving unchanged values is a no-op.`,
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
		if !s.Global() && flagPage == "" {
			return types.Configf("schema %q stores page data; --page is required", s.Table())
		}

		input, err := readValues()
		if err != nil {
			return err
		}
		values, errs := s.ValidateRow(input)
		if len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(cmd.ErrOrStderr(), " -", e)
			}
			return errors.Join(errs...)
		}

		id := types.RecordID{Page: flagPage, Row: flagSaveRow}
		if s.Global() {
			id.Page = ""
		}
		id, saved, err := backend.SaveRow(cmd.Context(), s, wctx, id, values, flagSaveSummary)
		if err != nil {
			return err
		}
		if !saved {
			fmt.Println("No changes; nothing saved")
			return nil
		}
		if id.Row != "" {
			fmt.Printf("Saved %s row %s revision %d\n", s.Table(), id.Row, id.Rev)
		} else {
			fmt.Printf("Saved %s on %s revision %d\n", s.Table(), id.Page, id.Rev)
		}
		return nil
	},
}

// readValues decodes the field input from --data or --file.
func readValues() (map[string]any, error) {
	var raw []byte
	switch {
	case flagSaveData != "":
		raw = []byte(flagSaveData)
	case flagSaveFile != "":
		data, err := readInput(flagSaveFile)
		if err != nil {
			return nil, err
		}
		raw = data
	default:
		return nil, types.Configf("field values required: pass --data or --file")
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, types.Configf("malformed field values: %v", err)
	}
	return input, nil
}

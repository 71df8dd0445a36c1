// Package main provides the pagegrid CLI: schema management, row
// editing and aggregation queries against a pagegrid database.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/pagegrid/pagegrid/pkg/types"
)

// Exit codes: 1 for errors the user can fix, 2 for system failures.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(classify(err))
	}
	os.Exit(exitSuccess)
}

// classify maps an error to its exit code. Configuration and
// validation problems are user errors; everything else is a system
// error.
func classify(err error) int {
	var (
		cfgErr   *types.ConfigError
		valErr   *types.ValidationError
		fieldErr *types.FieldError
	)
	switch {
	case errors.As(err, &cfgErr),
		errors.As(err, &valErr),
		errors.As(err, &fieldErr),
		errors.Is(err, types.ErrSchemaNotFound),
		errors.Is(err, types.ErrColumnNotFound),
		errors.Is(err, types.ErrTypeUnknown),
		errors.Is(err, types.ErrBadTableName),
		errors.Is(err, types.ErrNotAuthorized):
		return exitUserError
	default:
		return exitSysError
	}
}

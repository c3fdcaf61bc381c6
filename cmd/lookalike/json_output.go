package main

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// writeJSON encodes v to the command's stdout. Non-ASCII names stay readable.
func writeJSON(cmd *cobra.Command, v any) error {
	return encodeJSON(cmd.OutOrStdout(), v)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// errorOutput is the only document printed on failure. The error kind is
// carried by the exit status.
type errorOutput struct {
	Error string `json:"error"`
}

// newErrorOutput keeps the public message of an AppError and drops its cause
func newErrorOutput(err error) errorOutput {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return errorOutput{Error: appErr.Message}
	}
	return errorOutput{Error: err.Error()}
}

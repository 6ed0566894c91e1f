package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// addJSONFlag registers the --json switch shared by listing commands.
func addJSONFlag(cmd *cobra.Command, target *bool) {
	cmd.Flags().BoolVar(target, "json", false, "Output as JSON")
}

// writeJSON encodes v as indented JSON to the command's stdout. Titles are
// written verbatim, so "Tom & Jerry" is not escaped to \u0026.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

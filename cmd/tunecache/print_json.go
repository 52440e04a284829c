package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// printJSON writes v to stdout for --json. Artifact and thumbnail URLs carry
// query strings, so HTML escaping is off to keep them copy-pasteable.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

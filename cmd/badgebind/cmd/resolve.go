package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/dgallion1/badgebind/internal/binder"
	"github.com/dgallion1/badgebind/internal/datadoc"
	"github.com/spf13/cobra"
)

var resolveJSON bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>...",
	Short: "Look up dot-paths in the data document",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "print results as JSON")
}

type resolved struct {
	Path  string `json:"path"`
	Found bool   `json:"found"`
	Kind  string `json:"kind,omitempty"`
	Text  string `json:"text"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg := cliConfig()
	_, src, err := newBinder(cfg, newLogger())
	if err != nil {
		return err
	}
	doc, err := src.Fetch(cmd.Context())
	if err != nil {
		return err
	}

	results := make([]resolved, 0, len(args))
	for _, p := range args {
		r := resolved{Path: p, Text: binder.NotFoundText(p)}
		if v, ok := datadoc.Resolve(doc, p); ok {
			r.Found, r.Kind, r.Text = true, v.Kind.String(), v.String()
		}
		results = append(results, r)
	}

	if resolveJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.Path, r.Text)
	}
	return nil
}

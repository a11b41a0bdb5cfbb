package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"fhrs-archive/internal/schema"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:       "validate <authorities|establishments> <file>",
	Short:     "Validates a local JSON document and lists every schema issue.",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(schema.KindAuthorities), string(schema.KindEstablishments)},
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateFile(cmd.OutOrStdout(), schema.Kind(args[0]), args[1])
	},
}

func validateFile(w io.Writer, kind schema.Kind, path string) error {
	if !slices.Contains(schema.Kinds, kind) {
		return fmt.Errorf("unknown document kind %q, expected one of %v", kind, schema.Kinds)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	validator, err := schema.NewValidator()
	if err != nil {
		return err
	}

	_, err = validator.Validate(kind, payload)
	var violation *schema.Violation
	if !errors.As(err, &violation) {
		if err == nil {
			fmt.Fprintf(w, "%s: valid %s document\n", path, kind)
		}
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Path", "Issue"})
	for _, issue := range violation.Issues {
		t.AppendRow(table.Row{issue.Path, issue.Message})
	}
	t.Render()
	return fmt.Errorf("%s: %d schema issue(s)", path, len(violation.Issues))
}

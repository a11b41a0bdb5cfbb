package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fhrs-archive/internal/canonical"
	"fhrs-archive/internal/schema"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(canonicalizeCmd)
}

var canonicalizeCmd = &cobra.Command{
	Use:   "canonicalize <file>...",
	Short: "Rewrites local establishment documents (.xml or .json) into canonical form in place.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		validator, err := schema.NewValidator()
		if err != nil {
			return err
		}
		c := canonical.New(validator, tel, cfg.PairedEmptyTags)

		failed := 0
		for _, path := range args {
			err := canonicalizeFile(c, path)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) could not be canonicalized", failed, len(args))
		}
		return nil
	},
}

func canonicalizeFile(c *canonical.Canonicalizer, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var out string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		out, err = c.JSON(string(raw))
	case ".xml":
		out, err = c.TryXML(string(raw))
	default:
		return fmt.Errorf("unknown document format %q", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	if out == string(raw) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), info.Mode().Perm())
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/modkit/packlib"
)

type dumpEntryRow struct {
	Path       string `json:"path"`
	Container  string `json:"container"`
	Size       int64  `json:"size"`
	Compressed bool   `json:"compressed"`
	Encrypted  bool   `json:"encrypted"`
}

// newDumpCmd is grounded on saferwall-pe's cmd/pedumper.go dumpCmd: a
// MinimumNArgs(1) command whose flags select what to print, defaulting to
// a tabwriter listing when nothing more specific is requested.
func newDumpCmd() *cobra.Command {
	var asJSON bool
	var showDeps bool

	cmd := &cobra.Command{
		Use:   "dump [pack files...]",
		Short: "Dump the entries of one or more PackFile containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &packlib.OpenOptions{Lazy: true}

			var c *packlib.Container
			var err error
			if len(args) == 1 {
				c, err = packlib.Open(args[0], opts)
			} else {
				c, _, err = packlib.OpenMulti(args, opts, true)
			}
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			defer c.Close()

			if showDeps {
				for _, d := range c.Dependencies {
					fmt.Println(d)
				}
				return nil
			}

			rows := make([]dumpEntryRow, 0, len(c.Entries()))
			for _, e := range c.Entries() {
				rows = append(rows, dumpEntryRow{
					Path:       e.Path(),
					Container:  e.Container(),
					Size:       e.SizeStored(),
					Compressed: e.Compressed(),
					Encrypted:  e.Encryption().Present,
				})
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "\t")
				return enc.Encode(rows)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tCONTAINER\tSIZE\tCOMPRESSED\tENCRYPTED")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%t\n", r.Path, r.Container, r.Size, r.Compressed, r.Encrypted)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	cmd.Flags().BoolVar(&showDeps, "deps", false, "print the dependency manifest instead of entries")
	return cmd
}

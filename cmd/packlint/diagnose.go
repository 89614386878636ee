package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/modkit/packlib"
	"github.com/modkit/packlib/depindex"
	"github.com/modkit/packlib/diagnostics"
	"github.com/modkit/packlib/schema"
)

// newDiagnoseCmd runs the diagnostics engine over one container, building a
// throwaway dependency index from the vanilla/parent archives given on the
// command line (spec §4.H, §4.G). With no vanilla archives supplied, the
// "dependencies cache not generated" blocking check fires, matching the
// spec's own rule rather than a CLI-specific shortcut.
func newDiagnoseCmd() *cobra.Command {
	var vanillaPaths []string
	var parentPaths []string
	var assKitPath string
	var gamePathOK bool

	cmd := &cobra.Command{
		Use:   "diagnose <pack file>",
		Short: "Run the diagnostics engine over a PackFile container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := packlib.Open(args[0], &packlib.OpenOptions{Lazy: true})
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			defer c.Close()

			sch := schema.New()
			sch.Add(schema.LocDefinition)

			idx := depindex.New(sch, &packlib.OpenOptions{Lazy: true})
			cfg := diagnostics.ConfigState{GamePathCorrect: gamePathOK}

			if len(vanillaPaths) > 0 {
				if err := idx.BuildVanilla(vanillaPaths, &packlib.OpenOptions{Lazy: true}); err != nil {
					cfg.CacheLoadError = err
				} else {
					cfg.CacheGenerated = true
				}
			}
			if len(parentPaths) > 0 {
				if err := idx.BuildParent(parentPaths, &packlib.OpenOptions{Lazy: true}); err != nil && cfg.CacheLoadError == nil {
					cfg.CacheLoadError = err
				}
			}
			if assKitPath != "" {
				defs, err := schema.LoadAssKitDefinitions(assKitPath)
				if err == nil {
					idx.AddAssKitDefinitions(defs)
				}
			}

			if cfg.CacheGenerated {
				if needs, err := idx.NeedsUpdating(); err == nil {
					cfg.CacheOutdated = needs
				}
			}

			eng := diagnostics.New(sch, idx, diagnostics.Options{AssKitLoaded: assKitPath != ""})
			diags := eng.Run(c, cfg)

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "LEVEL\tCODE\tPATH\tFIELD\tMESSAGE")
			for _, d := range diags {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Level, d.Code, d.Path, d.Field, d.Message)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringSliceVar(&vanillaPaths, "vanilla", nil, "vanilla archive path (repeatable)")
	cmd.Flags().StringSliceVar(&parentPaths, "parent", nil, "parent/enabled-mod archive path (repeatable)")
	cmd.Flags().StringVar(&assKitPath, "asskit", "", "assembly-kit auxiliary definitions TSV")
	cmd.Flags().BoolVar(&gamePathOK, "game-path-ok", true, "report the configured game executable path as correct")
	return cmd
}

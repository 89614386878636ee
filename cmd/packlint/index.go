package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modkit/packlib"
	"github.com/modkit/packlib/depindex"
	"github.com/modkit/packlib/schema"
)

// newIndexCmd builds a vanilla dependency index and saves it to a snapshot
// file, or reports staleness for an existing one (spec §4.G, §6 "Snapshot
// file").
func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or inspect a dependency index snapshot",
	}
	cmd.AddCommand(newIndexBuildCmd())
	cmd.AddCommand(newIndexCheckCmd())
	return cmd
}

func newIndexBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <snapshot path> <vanilla pack files...>",
		Short: "Build a vanilla dependency index and save it as a snapshot",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := args[0]
			paths := args[1:]

			sch := schema.New()
			sch.Add(schema.LocDefinition)
			idx := depindex.New(sch, &packlib.OpenOptions{Lazy: true})

			if err := idx.BuildVanilla(paths, &packlib.OpenOptions{Lazy: true}); err != nil {
				return fmt.Errorf("build: %w", err)
			}
			if err := idx.SaveSnapshot(out); err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
			fmt.Printf("wrote snapshot to %s\n", out)
			return nil
		},
	}
	return cmd
}

func newIndexCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <snapshot path>",
		Short: "Report whether a snapshot is stale against its vanilla archives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sch := schema.New()
			idx := depindex.New(sch, &packlib.OpenOptions{Lazy: true})
			if err := idx.LoadSnapshot(args[0]); err != nil {
				return fmt.Errorf("load snapshot: %w", err)
			}
			stale, err := idx.NeedsUpdating()
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}
			if stale {
				fmt.Println("stale: vanilla archives changed since this snapshot was built")
			} else {
				fmt.Println("up to date")
			}
			return nil
		},
	}
	return cmd
}

// Command packlint is a small inspection tool over packlib: dumping a
// container's entries, running the diagnostics engine against one, and
// building/inspecting a dependency index snapshot. Grounded on
// saferwall-pe's cmd/pedumper.go cobra root-plus-subcommand layout (its
// cmd/main.go sibling uses the stdlib flag package instead; we follow
// pedumper.go since go.mod already declares cobra as a direct dependency
// and only one of the two styles should survive).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "packlint",
		Short: "Inspect and lint PackFile container archives",
		Long:  "packlint dumps, diagnoses and indexes PackFile container archives.",
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(newDiagnoseCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("packlint 0.1.0")
		},
	}
}

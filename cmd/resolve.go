package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nsxbet/sql-scanner/pkg/scanner"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the version directories a selector matches",
	Long: `Resolve a version selector against the project repository and print
the matching version directories. No file is analysed.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	addTargetFlags(resolveCmd)
}

func runResolve(cmd *cobra.Command, _ []string) error {
	t, err := loadTarget(cmd)
	if err != nil {
		return err
	}

	plan, err := scanner.New(t.repo, nil, scanner.WithLogger(log)).Plan(cmd.Context(), t.request)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, v := range plan.Versions {
		fmt.Fprintln(out, v.Dir)
	}
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nsxbet/sql-scanner/pkg/scanner"
	"github.com/nsxbet/sql-scanner/pkg/types"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Print the database type buckets of every selected version",
	Long: `Resolve a version selector and classify the SQL files of every matching
version by database type, using the project's db_type_patterns and the
filename heuristics. No file is analysed.`,
	Args: cobra.NoArgs,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	addTargetFlags(classifyCmd)
	classifyCmd.Flags().String("db-type", "", "only show one database type (mysql, oracle, db2, default or a db_type_patterns tag)")
}

func runClassify(cmd *cobra.Command, _ []string) error {
	t, err := loadTarget(cmd)
	if err != nil {
		return err
	}
	dbType, _ := cmd.Flags().GetString("db-type")
	t.request.DialectFilter = types.ParseDialect(dbType)

	plan, err := scanner.New(t.repo, nil, scanner.WithLogger(log)).Plan(cmd.Context(), t.request)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, v := range plan.Versions {
		fmt.Fprintf(out, "%s (%d files)\n", v.Dir, v.Buckets.Total())
		for _, b := range v.Buckets {
			fmt.Fprintf(out, "  %s: %d\n", b.Dialect, len(b.Files))
			for _, f := range b.Files {
				fmt.Fprintf(out, "    %s\n", f)
			}
		}
	}
	return nil
}

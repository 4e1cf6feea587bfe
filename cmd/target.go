package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nsxbet/sql-scanner/pkg/config"
	"github.com/nsxbet/sql-scanner/pkg/repository"
	"github.com/nsxbet/sql-scanner/pkg/scanner"
)

// addTargetFlags registers the flags selecting what to scan. They are shared
// by scan, resolve and classify.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("project-id", "p", "", "GitLab project ID (must be configured under projects)")
	cmd.Flags().StringP("version-path", "v", "", `version selector, e.g. "v1.0", "v2.*", "v2[.][0-9]+" or "v1.0,v1.1"`)
	cmd.Flags().StringP("branch", "b", scanner.DefaultBranch, "branch to read files from")
	_ = cmd.MarkFlagRequired("project-id")
	_ = cmd.MarkFlagRequired("version-path")
}

// target bundles what every command needs before it can talk to GitLab.
type target struct {
	cfg     *config.Config
	repo    *repository.GitLab
	request scanner.Request
}

func loadTarget(cmd *cobra.Command) (*target, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	projectID, _ := cmd.Flags().GetString("project-id")
	versionPath, _ := cmd.Flags().GetString("version-path")
	branch, _ := cmd.Flags().GetString("branch")

	project, err := cfg.Project(projectID)
	if err != nil {
		return nil, err
	}

	repo, err := repository.NewGitLab(cfg.GitLab.URL, cfg.GitLab.Token, cfg.GitLab.TimeoutDuration(), log)
	if err != nil {
		return nil, err
	}

	return &target{
		cfg:  cfg,
		repo: repo,
		request: scanner.Request{
			ProjectID:   projectID,
			Project:     project,
			VersionPath: versionPath,
			Branch:      branch,
		},
	}, nil
}

package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/xanzy/go-gitlab"

	"github.com/nsxbet/sql-scanner/pkg/logger"
)

const treePageSize = 100

// GitLab is a Client backed by the GitLab REST API.
type GitLab struct {
	client *gitlab.Client
	log    logger.Interface
	delay  func(attempt int) time.Duration
}

// NewGitLab creates a client for the GitLab instance at baseURL.
func NewGitLab(baseURL, token string, timeout time.Duration, log logger.Interface) (*GitLab, error) {
	if log == nil {
		log = logger.Discard()
	}
	client, err := gitlab.NewClient(token,
		gitlab.WithBaseURL(baseURL),
		gitlab.WithHTTPClient(&http.Client{Timeout: timeout}),
		gitlab.WithCustomRetryMax(0),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GitLab client")
	}
	return &GitLab{client: client, log: log, delay: backoffDelay}, nil
}

// ListFiles returns every blob path of the project tree at ref.
func (g *GitLab) ListFiles(ctx context.Context, projectID, ref string) ([]string, error) {
	opts := &gitlab.ListTreeOptions{
		Ref:       gitlab.Ptr(ref),
		Recursive: gitlab.Ptr(true),
		ListOptions: gitlab.ListOptions{
			PerPage: treePageSize,
			Page:    1,
		},
	}

	var files []string
	for {
		var nodes []*gitlab.TreeNode
		resp, err := withRetry(ctx, g.log, g.delay, "list_tree", func() (*gitlab.Response, error) {
			var (
				resp *gitlab.Response
				err  error
			)
			nodes, resp, err = g.client.Repositories.ListTree(projectID, opts, gitlab.WithContext(ctx))
			return resp, err
		})
		if err != nil {
			return nil, unavailable(err, "list files of project %s at %s", projectID, ref)
		}

		for _, n := range nodes {
			if n.Type == "blob" {
				files = append(files, n.Path)
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	g.log.Debug("Listed project files", "project_id", projectID, "ref", ref, "count", len(files))
	return files, nil
}

// GetFileContent returns the raw bytes of path at ref.
func (g *GitLab) GetFileContent(ctx context.Context, projectID, path, ref string) ([]byte, error) {
	opts := &gitlab.GetRawFileOptions{Ref: gitlab.Ptr(ref)}

	var content []byte
	resp, err := withRetry(ctx, g.log, g.delay, "get_raw_file", func() (*gitlab.Response, error) {
		var (
			resp *gitlab.Response
			err  error
		)
		content, resp, err = g.client.RepositoryFiles.GetRawFile(projectID, path, opts, gitlab.WithContext(ctx))
		return resp, err
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, errors.Wrapf(ErrFileNotFound, "%s at %s", path, ref)
		}
		return nil, unavailable(err, "read %s at %s", path, ref)
	}
	return content, nil
}

func unavailable(cause error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", ErrRepoUnavailable, fmt.Sprintf(format, args...), cause)
}

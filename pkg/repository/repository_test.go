package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type treeNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
	Mode string `json:"mode"`
}

// fakeGitLab serves a two page tree and raw files for project 93.
func fakeGitLab(t *testing.T, rawFailures *atomic.Int32) *httptest.Server {
	t.Helper()
	files := map[string]string{
		"database/versions/v1/a.sql": "SELECT 1;",
		"database/versions/v1/b.sql": "SELECT 2;",
	}
	pages := map[string][]treeNode{
		"1": {
			{ID: "1", Name: "database", Type: "tree", Path: "database", Mode: "040000"},
			{ID: "2", Name: "a.sql", Type: "blob", Path: "database/versions/v1/a.sql", Mode: "100644"},
		},
		"2": {
			{ID: "3", Name: "b.sql", Type: "blob", Path: "database/versions/v1/b.sql", Mode: "100644"},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "/api/v4/projects/93/repository/"
		switch {
		case r.URL.Path == prefix+"tree":
			assert.Equal(t, "true", r.URL.Query().Get("recursive"))
			assert.Equal(t, "main", r.URL.Query().Get("ref"))
			page := r.URL.Query().Get("page")
			if page == "1" {
				w.Header().Set("X-Next-Page", "2")
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(pages[page])

		case strings.HasPrefix(r.URL.Path, prefix+"files/") && strings.HasSuffix(r.URL.Path, "/raw"):
			if rawFailures != nil && rawFailures.Load() > 0 {
				rawFailures.Add(-1)
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"message":"bad gateway"}`))
				return
			}
			p := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix+"files/"), "/raw")
			content, ok := files[p]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"message":"404 File Not Found"}`))
				return
			}
			_, _ = w.Write([]byte(content))

		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"404 Not Found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGitLab(t *testing.T, url string) *GitLab {
	t.Helper()
	g, err := NewGitLab(url, "token", 5*time.Second, nil)
	require.NoError(t, err)
	g.delay = func(int) time.Duration { return time.Millisecond }
	return g
}

func TestGitLab_ListFiles(t *testing.T) {
	srv := fakeGitLab(t, nil)
	g := newTestGitLab(t, srv.URL)

	files, err := g.ListFiles(context.Background(), "93", "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"database/versions/v1/a.sql", "database/versions/v1/b.sql"}, files)
}

func TestGitLab_ListFiles_UnknownProject(t *testing.T) {
	srv := fakeGitLab(t, nil)
	g := newTestGitLab(t, srv.URL)

	_, err := g.ListFiles(context.Background(), "404", "main")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRepoUnavailable))
}

func TestGitLab_GetFileContent(t *testing.T) {
	srv := fakeGitLab(t, nil)
	g := newTestGitLab(t, srv.URL)

	content, err := g.GetFileContent(context.Background(), "93", "database/versions/v1/a.sql", "main")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", string(content))

	_, err = g.GetFileContent(context.Background(), "93", "database/versions/v1/missing.sql", "main")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestGitLab_GetFileContent_RetriesTransientFailures(t *testing.T) {
	var failures atomic.Int32
	failures.Store(2)
	srv := fakeGitLab(t, &failures)
	g := newTestGitLab(t, srv.URL)

	content, err := g.GetFileContent(context.Background(), "93", "database/versions/v1/b.sql", "main")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2;", string(content))
	assert.Equal(t, int32(0), failures.Load())
}

func TestGitLab_GetFileContent_GivesUpAfterMaxAttempts(t *testing.T) {
	var failures atomic.Int32
	failures.Store(maxAttempts)
	srv := fakeGitLab(t, &failures)
	g := newTestGitLab(t, srv.URL)

	_, err := g.GetFileContent(context.Background(), "93", "database/versions/v1/b.sql", "main")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRepoUnavailable))
}

func TestBackoffDelay(t *testing.T) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		d := backoffDelay(attempt)
		min := baseDelay << uint(attempt)
		assert.GreaterOrEqual(t, d, min)
		assert.Less(t, d, min+maxJitter)
	}
}

func TestMemory(t *testing.T) {
	boom := errors.New("boom")
	m := NewMemory().
		Add("1", "b.sql", []byte("b")).
		Add("1", "a.sql", []byte("a")).
		Fail("c.sql", boom)

	files, err := m.ListFiles(context.Background(), "1", "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.sql", "b.sql"}, files)

	content, err := m.GetFileContent(context.Background(), "1", "a.sql", "main")
	require.NoError(t, err)
	assert.Equal(t, "a", string(content))

	_, err = m.GetFileContent(context.Background(), "1", "c.sql", "main")
	assert.Same(t, boom, err)

	_, err = m.GetFileContent(context.Background(), "1", "z.sql", "main")
	assert.True(t, errors.Is(err, ErrFileNotFound))

	_, err = m.ListFiles(context.Background(), "2", "main")
	assert.True(t, errors.Is(err, ErrRepoUnavailable))
}

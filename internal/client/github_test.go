package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kube-rca/jvm-analyzer/internal/config"
)

func TestParseRepo(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{name: "short", raw: "aws-samples/java-on-aws", wantOwner: "aws-samples", wantRepo: "java-on-aws"},
		{name: "web-url", raw: "https://github.com/aws-samples/java-on-aws.git", wantOwner: "aws-samples", wantRepo: "java-on-aws"},
		{name: "api-url", raw: "https://api.github.com/repos/aws-samples/java-on-aws", wantOwner: "aws-samples", wantRepo: "java-on-aws"},
		{name: "missing-repo", raw: "aws-samples", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepo(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}

func newTestGitHubSource(t *testing.T, handler http.HandlerFunc, repoPath string) *GitHubSource {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := NewGitHubSource(context.Background(), config.GitHubConfig{
		RepoURL:  "acme/unicorn",
		RepoPath: repoPath,
	})
	require.NoError(t, err)
	s.client.BaseURL, err = url.Parse(server.URL + "/")
	require.NoError(t, err)
	return s
}

func TestGitHubSourceFetch(t *testing.T) {
	var requested string
	s := newTestGitHubSource(t, func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte("class Unicorn {}")),
		})
	}, "apps/unicorn-store/")

	out := s.FetchSource(context.Background(), "src/main/java/Unicorn.java")

	assert.Equal(t, "class Unicorn {}", out)
	assert.Equal(t, "/repos/acme/unicorn/contents/apps/unicorn-store/src/main/java/Unicorn.java", requested)
}

func TestGitHubSourceFetchFailsSoft(t *testing.T) {
	s := newTestGitHubSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}, "")

	out := s.FetchSource(context.Background(), "Missing.java")

	assert.True(t, strings.HasPrefix(out, sourceUnavailablePrefix), out)
}

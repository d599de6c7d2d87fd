// GitHub 저장소에서 소스 파일을 가져오는 도구 (모델 function calling용)
//
// 환경변수:
//   - GITHUB_REPO_URL: "owner/repo", "https://github.com/owner/repo",
//     "https://api.github.com/repos/owner/repo" 모두 허용
//   - GITHUB_TOKEN: private 저장소용 PAT (contents:read)
//   - GITHUB_REPO_PATH: 저장소 내 애플리케이션 루트 (예: apps/unicorn-store-spring)
//   - GITHUB_REF: 브랜치/태그 (비우면 기본 브랜치)

package client

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/kube-rca/jvm-analyzer/internal/config"
)

const sourceUnavailablePrefix = "Source code not available: "

type GitHubSource struct {
	client   *github.Client
	owner    string
	repo     string
	basePath string
	ref      string
}

func NewGitHubSource(ctx context.Context, cfg config.GitHubConfig) (*GitHubSource, error) {
	owner, repo, err := ParseRepo(cfg.RepoURL)
	if err != nil {
		return nil, err
	}

	httpClient := http.DefaultClient
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	return &GitHubSource{
		client:   github.NewClient(httpClient),
		owner:    owner,
		repo:     repo,
		basePath: strings.Trim(cfg.RepoPath, "/"),
		ref:      cfg.Ref,
	}, nil
}

// ParseRepo - GITHUB_REPO_URL에서 owner, repo 추출
func ParseRepo(raw string) (owner, repo string, err error) {
	s := strings.TrimSpace(raw)
	if strings.Contains(s, "://") {
		u, perr := url.Parse(s)
		if perr != nil {
			return "", "", fmt.Errorf("invalid GITHUB_REPO_URL %q: %w", raw, perr)
		}
		s = u.Path
	}
	s = strings.Trim(strings.TrimSuffix(strings.Trim(s, "/"), ".git"), "/")
	s = strings.TrimPrefix(s, "repos/")

	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GITHUB_REPO_URL %q: expected owner/repo", raw)
	}
	return parts[0], parts[1], nil
}

// FetchSource - 파일 내용. 실패 시 "Source code not available: <err>"
func (s *GitHubSource) FetchSource(ctx context.Context, path string) string {
	full := strings.TrimPrefix(path, "/")
	if s.basePath != "" {
		full = s.basePath + "/" + full
	}

	var opts *github.RepositoryContentGetOptions
	if s.ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: s.ref}
	}

	file, _, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, full, opts)
	if err != nil {
		log.Printf("[GitHub] Failed to fetch source code for %s: %v", full, err)
		return sourceUnavailablePrefix + err.Error()
	}
	if file == nil {
		return sourceUnavailablePrefix + full + " is a directory"
	}

	content, err := file.GetContent()
	if err != nil {
		log.Printf("[GitHub] Failed to decode source code for %s: %v", full, err)
		return sourceUnavailablePrefix + err.Error()
	}
	log.Printf("[GitHub] Fetched %s (%d bytes)", full, len(content))
	return content
}

package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/printbatch/printbatch/internal/common"
	"github.com/printbatch/printbatch/internal/logging"
	"github.com/printbatch/printbatch/internal/retryx"
	"github.com/sethvargo/go-retry"
)

const (
	maxAttempts      = 3
	defaultRetryBase = time.Second

	placeholderToken = "your-github-token"
	placeholderRepo  = "username/repository-name"
)

// nowMillis is a seam for deterministic collision suffixes in tests.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// githubAPI is the slice of the GitHub client used by the store. The real
// implementation delegates to go-github; tests substitute a fake.
type githubAPI interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
	CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
	DeleteFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
	GetBlob(ctx context.Context, owner, repo, sha string) (*github.Blob, *github.Response, error)
	GetRepository(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error)
}

type githubClient struct {
	c *github.Client
}

func (g *githubClient) GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	return g.c.Repositories.GetContents(ctx, owner, repo, path, opts)
}

func (g *githubClient) CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error) {
	return g.c.Repositories.CreateFile(ctx, owner, repo, path, opts)
}

func (g *githubClient) DeleteFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error) {
	return g.c.Repositories.DeleteFile(ctx, owner, repo, path, opts)
}

func (g *githubClient) GetBlob(ctx context.Context, owner, repo, sha string) (*github.Blob, *github.Response, error) {
	return g.c.Git.GetBlob(ctx, owner, repo, sha)
}

func (g *githubClient) GetRepository(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error) {
	return g.c.Repositories.Get(ctx, owner, repo)
}

// Config holds remote-store settings.
type Config struct {
	// Token is the GitHub access token.
	Token string
	// Repository is the "owner/name" slug of the storage repository.
	Repository string
	// RetryBase is the base backoff delay; attempt n sleeps n*RetryBase.
	RetryBase time.Duration
}

// GitHubStore stores objects as files in a GitHub repository. It holds no
// mutable state beyond configuration and is safe for concurrent use.
type GitHubStore struct {
	api       githubAPI
	token     string
	slug      string
	retryBase time.Duration
	log       logging.Logger
}

// NewGitHubStore builds a store from cfg. Configuration is validated lazily
// on each call, not here, so a misconfigured server can still start and
// report an unhealthy store.
func NewGitHubStore(cfg Config, log logging.Logger) *GitHubStore {
	base := cfg.RetryBase
	if base <= 0 {
		base = defaultRetryBase
	}
	return &GitHubStore{
		api:       &githubClient{c: github.NewClient(nil).WithAuthToken(cfg.Token)},
		token:     cfg.Token,
		slug:      cfg.Repository,
		retryBase: base,
		log:       log.With("component", "github-store"),
	}
}

// checkConfig rejects missing or placeholder settings before any network
// attempt. These errors are never retried.
func (s *GitHubStore) checkConfig() error {
	if strings.TrimSpace(s.token) == "" || s.token == placeholderToken {
		return fmt.Errorf("%w: GitHub token is not set", common.ErrConfiguration)
	}
	if strings.TrimSpace(s.slug) == "" || s.slug == placeholderRepo || !strings.Contains(s.slug, "/") {
		return fmt.Errorf("%w: GitHub repository %q is not valid", common.ErrConfiguration, s.slug)
	}
	return nil
}

func (s *GitHubStore) ownerRepo() (string, string) {
	owner, repo, _ := strings.Cut(s.slug, "/")
	return owner, repo
}

func (s *GitHubStore) withRetry(ctx context.Context, op, objPath string, fn func(ctx context.Context) error) error {
	attempt := 0
	var last error

	b := retry.WithMaxRetries(maxAttempts-1, retryx.Linear(s.retryBase))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := fn(ctx); err != nil {
			last = err
			s.log.Warn(ctx, "remote store operation failed",
				"op", op, "path", objPath, "attempt", attempt, "max", maxAttempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		if last == nil {
			last = err
		}
		return &StorageError{Op: op, Path: objPath, Attempts: attempt, Err: last}
	}
	return nil
}

// uniquePath inserts a millisecond suffix before the extension:
// uploads/b/x.pdf -> uploads/b/x_1756380000000.pdf. Collisions within the
// same millisecond are accepted as out of scope.
func uniquePath(desired string) string {
	ext := path.Ext(desired)
	base := strings.TrimSuffix(desired, ext)
	return base + "_" + strconv.FormatInt(nowMillis(), 10) + ext
}

func (s *GitHubStore) Put(ctx context.Context, data []byte, desiredPath string) (string, error) {
	if err := s.checkConfig(); err != nil {
		return "", err
	}
	owner, repo := s.ownerRepo()

	var actual string
	err := s.withRetry(ctx, "put", desiredPath, func(ctx context.Context) error {
		target := desiredPath
		// Probe the desired path; any read failure is treated as "absent".
		// The probe and the write are not atomic, so this is best-effort.
		if fc, _, _, err := s.api.GetContents(ctx, owner, repo, desiredPath, nil); err == nil && fc != nil {
			target = uniquePath(desiredPath)
			s.log.Info(ctx, "path occupied, writing to unique path", "desired", desiredPath, "actual", target)
		}

		_, _, err := s.api.CreateFile(ctx, owner, repo, target, &github.RepositoryContentFileOptions{
			Message: github.String("Upload PDF: " + path.Base(target)),
			Content: data,
		})
		if err != nil {
			return err
		}
		actual = target
		return nil
	})
	if err != nil {
		return "", err
	}
	s.log.Info(ctx, "stored object", "path", actual, "size", len(data))
	return actual, nil
}

func (s *GitHubStore) Get(ctx context.Context, objPath string) ([]byte, error) {
	if err := s.checkConfig(); err != nil {
		return nil, err
	}
	owner, repo := s.ownerRepo()

	var data []byte
	err := s.withRetry(ctx, "get", objPath, func(ctx context.Context) error {
		fc, _, _, err := s.api.GetContents(ctx, owner, repo, objPath, nil)
		if err != nil {
			return err
		}
		if fc == nil {
			return fmt.Errorf("%s is a directory, not an object", objPath)
		}

		if fc.GetEncoding() == "none" {
			// The contents API omits bodies above 1 MiB; fetch the blob by
			// revision instead.
			blob, _, err := s.api.GetBlob(ctx, owner, repo, fc.GetSHA())
			if err != nil {
				return err
			}
			raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.GetContent(), "\n", ""))
			if err != nil {
				return fmt.Errorf("decode blob %s: %w", fc.GetSHA(), err)
			}
			data = raw
			return nil
		}

		content, err := fc.GetContent()
		if err != nil {
			return err
		}
		data = []byte(content)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *GitHubStore) Delete(ctx context.Context, objPath string) error {
	if err := s.checkConfig(); err != nil {
		return err
	}
	owner, repo := s.ownerRepo()

	return s.withRetry(ctx, "delete", objPath, func(ctx context.Context) error {
		// The API needs the current revision (blob SHA) to delete, so the
		// object is read first. Failing to read it is a delete failure.
		fc, _, _, err := s.api.GetContents(ctx, owner, repo, objPath, nil)
		if err != nil {
			return fmt.Errorf("read revision of %s: %w", objPath, err)
		}
		if fc == nil {
			return fmt.Errorf("%s is a directory, not an object", objPath)
		}

		_, _, err = s.api.DeleteFile(ctx, owner, repo, objPath, &github.RepositoryContentFileOptions{
			Message: github.String("Delete PDF: " + objPath),
			SHA:     github.String(fc.GetSHA()),
		})
		return err
	})
}

// List returns file paths directly under prefix, without retrying: a
// missing or empty directory simply yields no results.
func (s *GitHubStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := s.checkConfig(); err != nil {
		return nil, err
	}
	owner, repo := s.ownerRepo()

	_, dir, _, err := s.api.GetContents(ctx, owner, repo, strings.TrimSuffix(prefix, "/"), nil)
	if err != nil {
		s.log.Info(ctx, "no objects under prefix", "prefix", prefix, "error", err)
		return nil, nil
	}

	var paths []string
	for _, entry := range dir {
		if entry.GetType() == "file" {
			paths = append(paths, entry.GetPath())
		}
	}
	return paths, nil
}

func (s *GitHubStore) TestConnection(ctx context.Context) bool {
	if err := s.checkConfig(); err != nil {
		s.log.Error(ctx, "remote store misconfigured", "error", err)
		return false
	}
	owner, repo := s.ownerRepo()
	if _, _, err := s.api.GetRepository(ctx, owner, repo); err != nil {
		s.log.Error(ctx, "remote store unreachable", "error", err)
		return false
	}
	return true
}

// Init seeds the uploads/ directory with a README so the storage layout is
// self-describing. An already-initialized repository is not an error.
func (s *GitHubStore) Init(ctx context.Context) error {
	if err := s.checkConfig(); err != nil {
		return err
	}
	owner, repo := s.ownerRepo()

	const readmePath = "uploads/README.md"
	if fc, _, _, err := s.api.GetContents(ctx, owner, repo, readmePath, nil); err == nil && fc != nil {
		return nil
	}

	readme := "# printbatch file storage\n\n" +
		"Uploaded PDF files organized by batch, e.g. `uploads/batch-1/`.\n" +
		"Files are managed automatically; do not edit by hand.\n"
	_, _, err := s.api.CreateFile(ctx, owner, repo, readmePath, &github.RepositoryContentFileOptions{
		Message: github.String("Initialize file storage"),
		Content: []byte(readme),
	})
	if err != nil && strings.Contains(err.Error(), "already exists") {
		return nil
	}
	return err
}

// RepositoryInfo returns a one-line human-readable summary for health and
// ops endpoints.
func (s *GitHubStore) RepositoryInfo(ctx context.Context) (string, error) {
	if err := s.checkConfig(); err != nil {
		return "", err
	}
	owner, repo := s.ownerRepo()

	r, _, err := s.api.GetRepository(ctx, owner, repo)
	if err != nil {
		return "", fmt.Errorf("repository info: %w", err)
	}
	return fmt.Sprintf("Repository: %s | Private: %t | Size: %d KB",
		r.GetFullName(), r.GetPrivate(), r.GetSize()), nil
}

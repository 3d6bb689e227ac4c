// Package github loads source files from a user's GitHub repositories.
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/efebarandurmaz/codefinder/internal/document"
	"github.com/efebarandurmaz/codefinder/internal/logging"
)

// Options configures a Fetcher.
type Options struct {
	Token string
	// Extensions is the allow-list of file suffixes, e.g. ".py".
	Extensions []string
	// RequestsPerSecond paces API calls; zero or negative means unlimited.
	RequestsPerSecond float64
	// BaseURL overrides the API endpoint (GitHub Enterprise, tests).
	BaseURL string
	Logger  *slog.Logger
}

// Fetcher walks repositories and returns their matching files.
type Fetcher struct {
	gh         *gh.Client
	limiter    *rate.Limiter
	extensions []string
	logger     *slog.Logger
}

// New creates a Fetcher authenticated with opts.Token.
func New(ctx context.Context, opts Options) (*Fetcher, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	client := gh.NewClient(oauth2.NewClient(ctx, ts))

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parsing GitHub base URL: %w", err)
		}
		client.BaseURL = u
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".py"}
	}

	return &Fetcher{
		gh:         client,
		limiter:    rate.NewLimiter(limit, 1),
		extensions: exts,
		logger:     logging.OrDiscard(opts.Logger),
	}, nil
}

// FetchDocuments returns every non-empty allow-listed file in the
// repositories owned by username. Failures are logged: a failing repository
// is skipped, and a failing listing ends the walk with what was collected.
func (f *Fetcher) FetchDocuments(ctx context.Context, username string) []document.SourceDocument {
	var docs []document.SourceDocument

	err := f.eachRepository(ctx, username, func(repo *gh.Repository) {
		name := repo.GetFullName()
		f.logger.Info("loading files from "+name, "repository", name)

		if repo.GetOwner().GetLogin() != username {
			f.logger.Info("skipping repository "+name+" as it does not belong to the user", "repository", name)
			return
		}

		repoDocs, err := f.loadRepository(ctx, repo)
		if err != nil {
			f.logger.Error("failed to load repository", "repository", name, "error", err)
			return
		}
		for _, d := range repoDocs {
			if strings.TrimSpace(d.Text) == "" {
				f.logger.Info("skipping empty document", "file_path", d.Path, "repository", name)
				continue
			}
			docs = append(docs, d)
		}
	})
	if err != nil {
		f.logger.Error("error fetching repositories", "user", username, "error", err)
	}
	return docs
}

func (f *Fetcher) eachRepository(ctx context.Context, username string, fn func(*gh.Repository)) error {
	opts := &gh.RepositoryListByUserOptions{ListOptions: gh.ListOptions{PerPage: 100}}
	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		repos, resp, err := f.gh.Repositories.ListByUser(ctx, username, opts)
		if err != nil {
			return fmt.Errorf("list repositories: %w", err)
		}
		for _, r := range repos {
			fn(r)
		}
		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

func (f *Fetcher) loadRepository(ctx context.Context, repo *gh.Repository) ([]document.SourceDocument, error) {
	owner, name := repo.GetOwner().GetLogin(), repo.GetName()
	branch := repo.GetDefaultBranch()
	if branch == "" {
		return nil, fmt.Errorf("repository %s has no default branch", repo.GetFullName())
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	tree, _, err := f.gh.Git.GetTree(ctx, owner, name, branch, true)
	if err != nil {
		return nil, fmt.Errorf("get tree %s: %w", branch, err)
	}
	if tree.GetTruncated() {
		f.logger.Warn("tree truncated by GitHub, indexing a partial file list",
			"repository", repo.GetFullName(), "branch", branch, "entries", len(tree.Entries))
	}

	var docs []document.SourceDocument
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" || !f.allowed(entry.GetPath()) {
			continue
		}
		text, err := f.blob(ctx, owner, name, entry.GetSHA())
		if err != nil {
			return nil, fmt.Errorf("get blob %s: %w", entry.GetPath(), err)
		}
		docs = append(docs, document.SourceDocument{
			ID:         entry.GetSHA(),
			Text:       text,
			Repository: repo.GetFullName(),
			Owner:      owner,
			Branch:     branch,
			Path:       entry.GetPath(),
			FileName:   path.Base(entry.GetPath()),
			URL:        fileURL(repo, branch, entry.GetPath()),
		})
	}
	return docs, nil
}

func (f *Fetcher) blob(ctx context.Context, owner, repo, sha string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}
	blob, _, err := f.gh.Git.GetBlob(ctx, owner, repo, sha)
	if err != nil {
		return "", err
	}
	if enc := blob.GetEncoding(); enc != "" && enc != "base64" {
		return blob.GetContent(), nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.GetContent(), "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decoding blob %s: %w", sha, err)
	}
	return string(raw), nil
}

func (f *Fetcher) allowed(p string) bool {
	ext := path.Ext(p)
	for _, e := range f.extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func fileURL(repo *gh.Repository, branch, p string) string {
	base := repo.GetHTMLURL()
	if base == "" {
		base = "https://github.com/" + repo.GetFullName()
	}
	return fmt.Sprintf("%s/blob/%s/%s", strings.TrimSuffix(base, "/"), branch, p)
}

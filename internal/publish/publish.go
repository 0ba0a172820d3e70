// Package publish pushes result images and review pages to a GitHub Pages
// branch through the Contents API, so a batch can be reviewed from a phone
// without pulling the repo.
package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// contentsService abstracts the GitHub Contents API methods we use,
// enabling test mocks. *github.RepositoriesService satisfies it.
type contentsService interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
	CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
	UpdateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
}

// publishExts are the file types worth pushing to the pages branch.
var publishExts = map[string]bool{
	".html": true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".json": true,
	".csv":  true,
}

// Publisher uploads a results directory to one branch of one repository.
type Publisher struct {
	contents contentsService
	owner    string
	repo     string
	branch   string
	dir      string // remote directory prefix, may be empty
	out      io.Writer
}

// Opts holds parameters for creating a Publisher.
type Opts struct {
	Token  string // GitHub personal access token
	Owner  string
	Repo   string
	Branch string // defaults to gh-pages
	Dir    string // remote prefix inside the branch, e.g. "results"
	Out    io.Writer
	// For testing: inject a mock service instead of the real API.
	Contents contentsService
}

// New creates a Publisher backed by an oauth2 token.
func New(ctx context.Context, opts Opts) (*Publisher, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("publish: owner and repo are required")
	}
	if opts.Contents == nil && opts.Token == "" {
		return nil, fmt.Errorf("publish: github token is required")
	}
	if opts.Branch == "" {
		opts.Branch = "gh-pages"
	}
	p := &Publisher{
		contents: opts.Contents,
		owner:    opts.Owner,
		repo:     opts.Repo,
		branch:   opts.Branch,
		dir:      strings.Trim(opts.Dir, "/"),
		out:      opts.Out,
	}
	if p.out == nil {
		p.out = io.Discard
	}
	if p.contents == nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		p.contents = github.NewClient(oauth2.NewClient(ctx, ts)).Repositories
	}
	return p, nil
}

// PublishDir uploads every publishable file in localDir (non-recursive, the
// results tree is flat) and returns how many files were pushed.
func (p *Publisher) PublishDir(ctx context.Context, localDir string) (int, error) {
	entries, err := os.ReadDir(localDir)
	if err != nil {
		return 0, fmt.Errorf("publish: read %s: %w", localDir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !publishExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for i, name := range names {
		data, err := os.ReadFile(filepath.Join(localDir, name))
		if err != nil {
			return i, fmt.Errorf("publish: read %s: %w", name, err)
		}
		if err := p.PublishFile(ctx, name, data); err != nil {
			return i, err
		}
		fmt.Fprintf(p.out, "[%d/%d] pushed %s\n", i+1, len(names), name)
	}
	return len(names), nil
}

// PublishFile creates or updates one file on the pages branch.
func (p *Publisher) PublishFile(ctx context.Context, name string, data []byte) error {
	remote := name
	if p.dir != "" {
		remote = path.Join(p.dir, name)
	}

	existing, _, resp, err := p.contents.GetContents(ctx, p.owner, p.repo, remote,
		&github.RepositoryContentGetOptions{Ref: p.branch})
	if err != nil && !isNotFound(resp) {
		return fmt.Errorf("publish: stat %s: %w", remote, err)
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr("publish " + remote),
		Content: data,
		Branch:  github.Ptr(p.branch),
	}
	if err == nil && existing != nil {
		opts.SHA = existing.SHA
		if _, _, err := p.contents.UpdateFile(ctx, p.owner, p.repo, remote, opts); err != nil {
			return fmt.Errorf("publish: update %s: %w", remote, err)
		}
		return nil
	}
	if _, _, err := p.contents.CreateFile(ctx, p.owner, p.repo, remote, opts); err != nil {
		return fmt.Errorf("publish: create %s: %w", remote, err)
	}
	return nil
}

// PageURL returns where the published index will be served.
func (p *Publisher) PageURL() string {
	url := fmt.Sprintf("https://%s.github.io/%s/", p.owner, p.repo)
	if p.dir != "" {
		url += p.dir + "/"
	}
	return url
}

func isNotFound(resp *github.Response) bool {
	return resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound
}

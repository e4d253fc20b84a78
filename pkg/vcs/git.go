// Package vcs wraps the git operations the persistence layer needs behind a
// small capability surface. Failure classification happens here, next to the
// transport, so callers can branch on error kinds instead of message text.
package vcs

import (
	"context"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/pkg/errors"

	"github.com/benchwatch/benchwatch/pkg/bench"
)

var (
	// ErrRemoteAdvanced reports a push rejected because the remote branch
	// moved since the last pull. This is the only push failure the caller
	// may recover from by rolling back and retrying.
	ErrRemoteAdvanced = errors.New("push rejected: remote branch advanced")

	// ErrAuthRequired reports a remote that refused the operation for lack
	// of credentials.
	ErrAuthRequired = errors.New("authentication required by remote")

	// ErrBranchNotFound reports a branch missing on the remote.
	ErrBranchNotFound = errors.New("branch not found on remote")
)

// Options configure a Git capability.
type Options struct {
	Remote      string // remote name, default "origin"
	Token       string // access token for https remotes, optional
	AuthorName  string
	AuthorEmail string
}

func (o *Options) fill() {
	if o.Remote == "" {
		o.Remote = "origin"
	}
	if o.AuthorName == "" {
		o.AuthorName = "benchwatch"
	}
	if o.AuthorEmail == "" {
		o.AuthorEmail = "benchwatch@users.noreply.github.com"
	}
}

// Git operates on a single local repository clone.
type Git struct {
	repo *git.Repository
	wt   *git.Worktree
	opts Options

	// where HEAD pointed before SwitchTo, so CheckoutPrevious can undo it.
	prevName plumbing.ReferenceName
	prevHash plumbing.Hash
}

// Open attaches to the repository at dir.
func Open(dir string, opts Options) (*Git, error) {
	opts.fill()
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open git repository at %s", dir)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get work tree")
	}
	return &Git{repo: repo, wt: wt, opts: opts}, nil
}

// Dir returns the worktree root.
func (g *Git) Dir() string {
	return g.wt.Filesystem.Root()
}

// RemoteURL returns the first URL of the configured remote.
func (g *Git) RemoteURL() (string, error) {
	r, err := g.repo.Remote(g.opts.Remote)
	if err != nil {
		return "", errors.Wrapf(err, "remote %s not configured", g.opts.Remote)
	}
	urls := r.Config().URLs
	if len(urls) == 0 {
		return "", errors.Errorf("remote %s has no URL", g.opts.Remote)
	}
	return urls[0], nil
}

// Head returns the commit metadata at HEAD.
func (g *Git) Head() (bench.Commit, error) {
	ref, err := g.repo.Head()
	if err != nil {
		return bench.Commit{}, errors.Wrap(err, "unable to resolve HEAD")
	}
	c, err := g.repo.CommitObject(ref.Hash())
	if err != nil {
		return bench.Commit{}, errors.Wrap(err, "unable to read HEAD commit")
	}
	return bench.Commit{
		ID:        c.Hash.String(),
		Message:   strings.TrimSpace(c.Message),
		Timestamp: c.Committer.When.UnixMilli(),
		Author:    bench.Actor{Name: c.Author.Name, Email: c.Author.Email},
		Committer: bench.Actor{Name: c.Committer.Name, Email: c.Committer.Email},
	}, nil
}

// Fetch updates the remote-tracking ref for branch.
func (g *Git) Fetch(ctx context.Context, branch string) error {
	spec := gitcfg.RefSpec("+refs/heads/" + branch + ":refs/remotes/" + g.opts.Remote + "/" + branch)
	err := g.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: g.opts.Remote,
		RefSpecs:   []gitcfg.RefSpec{spec},
		Auth:       g.auth(),
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return errors.Wrap(ErrAuthRequired, err.Error())
	case strings.Contains(err.Error(), "couldn't find remote ref"):
		return errors.Wrapf(ErrBranchNotFound, "%s: %v", branch, err)
	default:
		return errors.Wrapf(err, "unable to fetch branch %s", branch)
	}
}

// Pull fast-forwards the checked-out branch to the remote tip.
func (g *Git) Pull(ctx context.Context, branch string) error {
	err := g.wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    g.opts.Remote,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		Auth:          g.auth(),
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// Nothing on the remote yet; the local state is authoritative.
		return nil
	default:
		return errors.Wrapf(err, "unable to pull branch %s", branch)
	}
}

// SwitchTo checks out branch, creating it if it exists on neither the local
// repository nor the remote, and remembers the previous HEAD so it can be
// restored with CheckoutPrevious.
func (g *Git) SwitchTo(branch string) error {
	head, err := g.repo.Head()
	if err != nil {
		return errors.Wrap(err, "unable to resolve HEAD")
	}
	g.prevName = head.Name()
	g.prevHash = head.Hash()

	local := plumbing.NewBranchReferenceName(branch)
	if _, err := g.repo.Reference(local, true); err == nil {
		return errors.Wrapf(g.wt.Checkout(&git.CheckoutOptions{Branch: local}),
			"unable to check out branch %s", branch)
	}

	// No local branch: seed it from the remote-tracking ref if one exists,
	// otherwise start it at the current HEAD.
	opts := &git.CheckoutOptions{Branch: local, Create: true}
	remote := plumbing.NewRemoteReferenceName(g.opts.Remote, branch)
	if ref, err := g.repo.Reference(remote, true); err == nil {
		opts.Hash = ref.Hash()
	}
	return errors.Wrapf(g.wt.Checkout(opts), "unable to create branch %s", branch)
}

// CheckoutPrevious restores the HEAD recorded by the last SwitchTo.
func (g *Git) CheckoutPrevious() error {
	if g.prevName == "" {
		return errors.New("no previous checkout recorded")
	}
	opts := &git.CheckoutOptions{Force: true}
	if g.prevName.IsBranch() {
		opts.Branch = g.prevName
	} else {
		// previous HEAD was detached.
		opts.Hash = g.prevHash
	}
	return errors.Wrapf(g.wt.Checkout(opts), "unable to restore %s", g.prevName)
}

// Stage adds paths (relative to the worktree root) to the index.
func (g *Git) Stage(paths ...string) error {
	for _, p := range paths {
		if _, err := g.wt.Add(p); err != nil {
			return errors.Wrapf(err, "unable to stage %s", p)
		}
	}
	return nil
}

// Commit records the staged changes.
func (g *Git) Commit(message string) error {
	_, err := g.wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.opts.AuthorName,
			Email: g.opts.AuthorEmail,
			When:  time.Now(),
		},
	})
	return errors.Wrap(err, "unable to commit")
}

// Reset moves the checked-out branch stepsBack commits towards its first
// parent, discarding the working tree changes in between.
func (g *Git) Reset(stepsBack int) error {
	ref, err := g.repo.Head()
	if err != nil {
		return errors.Wrap(err, "unable to resolve HEAD")
	}
	c, err := g.repo.CommitObject(ref.Hash())
	if err != nil {
		return errors.Wrap(err, "unable to read HEAD commit")
	}
	for i := 0; i < stepsBack; i++ {
		c, err = c.Parent(0)
		if err != nil {
			return errors.Wrapf(err, "unable to walk %d commits back", stepsBack)
		}
	}
	return errors.Wrap(g.wt.Reset(&git.ResetOptions{
		Commit: c.Hash,
		Mode:   git.HardReset,
	}), "unable to reset")
}

// Push publishes branch to the remote. A rejection because the remote tip
// advanced is reported as ErrRemoteAdvanced; all other failures are final.
func (g *Git) Push(ctx context.Context, branch string) error {
	spec := gitcfg.RefSpec("refs/heads/" + branch + ":refs/heads/" + branch)
	err := g.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: g.opts.Remote,
		RefSpecs:   []gitcfg.RefSpec{spec},
		Auth:       g.auth(),
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case isRejection(err):
		return errors.Wrapf(ErrRemoteAdvanced, "branch %s: %v", branch, err)
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return errors.Wrap(ErrAuthRequired, err.Error())
	default:
		return errors.Wrapf(err, "unable to push branch %s", branch)
	}
}

// isRejection recognizes the transport's way of saying the remote moved.
// The message sniffing is confined to this package; everyone else matches
// on ErrRemoteAdvanced.
func isRejection(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "non-fast-forward update") ||
		strings.Contains(msg, "fetch first") ||
		strings.Contains(msg, "failed to update ref")
}

func (g *Git) auth() transport.AuthMethod {
	if g.opts.Token == "" {
		return nil
	}
	// GitHub accepts any username when a token is supplied as the password.
	return &githttp.BasicAuth{Username: "x-access-token", Password: g.opts.Token}
}

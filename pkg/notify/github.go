// Package notify posts rendered report bodies to the issue-tracking side of
// the repository host. Body construction happens elsewhere; this package
// only delivers.
package notify

import (
	"context"

	"github.com/google/go-github/v68/github"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Comment is the record of a delivered notification.
type Comment struct {
	URL string
}

// Notifier delivers a text body against a commit. Failures propagate as
// fatal unless the caller disabled the feature requiring delivery.
type Notifier interface {
	PostComment(ctx context.Context, commitID, body string) (*Comment, error)
}

// GitHub posts commit comments through the GitHub REST API.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

var _ Notifier = (*GitHub)(nil)

// NewGitHub builds a notifier for owner/repo authenticated with token.
func NewGitHub(ctx context.Context, token, owner, repo string) (*GitHub, error) {
	if token == "" {
		return nil, errors.New("a GitHub token is required to post comments")
	}
	if owner == "" || repo == "" {
		return nil, errors.New("repository owner and name are required to post comments")
	}
	tc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return &GitHub{client: github.NewClient(tc), owner: owner, repo: repo}, nil
}

// PostComment attaches body as a comment on the commit.
func (g *GitHub) PostComment(ctx context.Context, commitID, body string) (*Comment, error) {
	c, _, err := g.client.Repositories.CreateComment(ctx, g.owner, g.repo, commitID,
		&github.RepositoryComment{Body: github.Ptr(body)})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to comment on commit %s of %s/%s", commitID, g.owner, g.repo)
	}
	return &Comment{URL: c.GetHTMLURL()}, nil
}

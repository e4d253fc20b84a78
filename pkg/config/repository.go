package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	giturls "github.com/whilp/git-urls"
)

// RepositoryContext identifies the repository a run belongs to. It is
// resolved once per invocation and passed explicitly to every component
// that needs it.
type RepositoryContext struct {
	Owner string
	Name  string
	// URL is the canonical browse URL, normalized from whatever form the
	// git remote uses (ssh, git+ssh, https, scp-like).
	URL string
}

// ResolveRepository derives the context from a git remote URL.
func ResolveRepository(remote string) (RepositoryContext, error) {
	u, err := giturls.Parse(remote)
	if err != nil {
		return RepositoryContext{}, errors.Wrapf(err, "unable to parse remote URL %q", remote)
	}

	path := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return RepositoryContext{}, errors.Errorf("remote URL %q has no owner/name path", remote)
	}
	owner, name := parts[len(parts)-2], parts[len(parts)-1]

	host := u.Host
	if host == "" {
		return RepositoryContext{}, errors.Errorf("remote URL %q has no host", remote)
	}

	return RepositoryContext{
		Owner: owner,
		Name:  name,
		URL:   fmt.Sprintf("https://%s/%s/%s", host, owner, name),
	}, nil
}

// CommitURL returns the browse URL of a commit in this repository.
func (r RepositoryContext) CommitURL(id string) string {
	return fmt.Sprintf("%s/commit/%s", r.URL, id)
}

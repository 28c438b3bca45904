package issueapi

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var repoNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ParseRepoURL extracts owner and repository from the forms users paste:
// full https://github.com URLs, bare github.com paths and the owner/repo
// shorthand, each with an optional .git suffix, trailing slash or deeper
// path segments (issue links work as-is).
func ParseRepoURL(raw string) (string, string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", errors.New("repo_url is required")
	}

	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")

	// GitHub owner names never contain dots, so a dotted first segment is a
	// host.
	segs := strings.Split(s, "/")
	if strings.Contains(segs[0], ".") {
		if segs[0] != "github.com" {
			return "", "", fmt.Errorf("unsupported repository host %q", segs[0])
		}
		segs = segs[1:]
	}

	if len(segs) < 2 {
		return "", "", fmt.Errorf("repo_url %q must name an owner and a repository", raw)
	}

	owner := segs[0]
	repo := strings.TrimSuffix(segs[1], ".git")
	if !repoNameRe.MatchString(owner) || !repoNameRe.MatchString(repo) {
		return "", "", fmt.Errorf("repo_url %q must name an owner and a repository", raw)
	}
	return owner, repo, nil
}

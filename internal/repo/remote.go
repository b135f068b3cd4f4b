package repo

import (
	"fmt"
	"strings"
)

// Remote identifies a hosted repository parsed from a git remote URL.
type Remote struct {
	Host  string
	Owner string
	Name  string
}

// Slug returns "owner/name".
func (r Remote) Slug() string {
	return r.Owner + "/" + r.Name
}

// ParseRemote extracts host, owner and repository name from an HTTPS,
// scp-style SSH or ssh:// remote URL.
func ParseRemote(url string) (Remote, error) {
	norm := NormalizeGitURL(url)
	parts := strings.Split(norm, "/")
	if len(parts) < 3 || parts[0] == "" || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return Remote{}, fmt.Errorf("cannot parse repository from remote URL %q", url)
	}
	return Remote{
		Host:  parts[0],
		Owner: parts[len(parts)-2],
		Name:  parts[len(parts)-1],
	}, nil
}

// NormalizeGitURL normalizes a git URL for comparison.
// Strips .git suffix, scheme and credentials and returns lowercase host/path.
func NormalizeGitURL(url string) string {
	url = strings.TrimSpace(url)
	url = strings.TrimSuffix(url, "/")
	url = strings.TrimSuffix(url, ".git")

	for _, scheme := range []string{"https://", "http://", "ssh://", "git://"} {
		url = strings.TrimPrefix(url, scheme)
	}

	// Drop userinfo: git@host, user:token@host
	if at := strings.Index(url, "@"); at >= 0 && at < strings.IndexAny(url+"/", "/") {
		url = url[at+1:]
	}

	// scp-style host:owner/repo. A numeric segment after the colon is a port.
	if colon := strings.Index(url, ":"); colon >= 0 {
		slash := strings.Index(url, "/")
		if slash < 0 || colon < slash {
			rest := url[colon+1:]
			if i := strings.Index(rest, "/"); i > 0 && isDigits(rest[:i]) {
				url = url[:colon] + rest[i:]
			} else {
				url = url[:colon] + "/" + rest
			}
		}
	}

	url = strings.TrimSuffix(url, "/")
	return strings.ToLower(url)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

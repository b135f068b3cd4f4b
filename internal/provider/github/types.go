package github

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// prIdentifier holds parsed components of a GitHub PR reference.
type prIdentifier struct {
	Owner  string
	Repo   string
	Number int
}

// parsePRIdentifier extracts owner, repo, and PR number from a string.
// Accepts bare numbers, "#number", "owner/repo#number", or full PR URLs.
func (b *Backend) parsePRIdentifier(id string) (*prIdentifier, error) {
	id = strings.TrimSpace(id)

	// Bare number: use backend defaults.
	if num, err := strconv.Atoi(strings.TrimPrefix(id, "#")); err == nil && num > 0 {
		return &prIdentifier{Owner: b.owner, Repo: b.repo, Number: num}, nil
	}

	// Try "owner/repo#number" format.
	if parts := strings.SplitN(id, "#", 2); len(parts) == 2 && !strings.Contains(parts[0], "://") {
		ownerRepo := strings.SplitN(parts[0], "/", 2)
		if len(ownerRepo) == 2 && ownerRepo[0] != "" && ownerRepo[1] != "" {
			num, err := strconv.Atoi(parts[1])
			if err == nil && num > 0 {
				return &prIdentifier{Owner: ownerRepo[0], Repo: ownerRepo[1], Number: num}, nil
			}
		}
	}

	// Try URL: https://{host}/{owner}/{repo}/pull/{number}
	u, err := url.Parse(id)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid PR identifier: %s", id)
	}

	pathParts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(pathParts) >= 4 && (pathParts[2] == "pull" || pathParts[2] == "pulls") {
		num, err := strconv.Atoi(pathParts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid PR number in URL: %s", pathParts[3])
		}
		return &prIdentifier{Owner: pathParts[0], Repo: pathParts[1], Number: num}, nil
	}

	return nil, fmt.Errorf("could not parse PR identifier: %s", id)
}

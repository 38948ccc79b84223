package repomanager

import (
	"fmt"
	"regexp"
)

// GitHub owner and repository names are limited to this set.
var repoNameRegexp = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func validateName(kind, name string) error {
	if name == "." || name == ".." || !repoNameRegexp.MatchString(name) {
		return fmt.Errorf("%w: %s %q", ErrInvalidRepoName, kind, name)
	}
	return nil
}

// GitHubCloneURL returns the HTTPS clone URL of owner/repo on github.com.
func GitHubCloneURL(owner, repo string) string {
	return fmt.Sprintf("https://github.com/%s/%s.git", owner, repo)
}

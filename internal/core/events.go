package core

import (
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"
)

// JobDataFromPush transforms a raw GitHub PushEvent into the job request for
// its head commit. It acts as an anti-corruption layer, rejecting branch
// deletions and payloads without the repository information a run needs.
func JobDataFromPush(event *github.PushEvent) (*JobData, error) {
	if event.GetDeleted() {
		return nil, fmt.Errorf("push deletes %s", event.GetRef())
	}

	sha := event.GetAfter()
	if sha == "" {
		sha = event.GetHeadCommit().GetID()
	}
	if sha == "" {
		return nil, fmt.Errorf("push event has no head commit")
	}

	repo := event.GetRepo()
	owner := repo.GetOwner().GetLogin()
	if owner == "" {
		// older push payloads only carry the owner's name
		owner = repo.GetOwner().GetName()
	}
	if owner == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}

	return &JobData{
		SHA:    sha,
		Owner:  owner,
		Repo:   repo.GetName(),
		Branch: strings.TrimPrefix(event.GetRef(), "refs/heads/"),
	}, nil
}

// JobDataFromPullRequest transforms a GitHub PullRequestEvent into the job
// request for the pull request head. Only actions that change the head commit
// produce a job.
func JobDataFromPullRequest(event *github.PullRequestEvent) (*JobData, error) {
	switch event.GetAction() {
	case "opened", "reopened", "synchronize":
	default:
		return nil, fmt.Errorf("pull request action %q does not trigger tests", event.GetAction())
	}

	pr := event.GetPullRequest()
	if pr.GetHead().GetSHA() == "" {
		return nil, fmt.Errorf("pull request %d has no head SHA", event.GetNumber())
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}

	return &JobData{
		SHA:    pr.GetHead().GetSHA(),
		Owner:  repo.GetOwner().GetLogin(),
		Repo:   repo.GetName(),
		Branch: pr.GetHead().GetRef(),
		Base:   pr.GetBase().GetSHA(),
	}, nil
}

package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/review"
	"github.com/trainee-hub/trainee-tracker/internal/domain/roster"
	"github.com/trainee-hub/trainee-tracker/internal/domain/submission"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/external/github"
	"github.com/trainee-hub/trainee-tracker/pkg/logger"
)

// CourseSource resolves a course name to its curriculum. The reviewer
// refresh path receives only the course name, not a batch, so the adapter
// needs its own way back to the repo list.
type CourseSource interface {
	Course(ctx context.Context, name string) (*curriculum.Course, error)
}

// GithubEventAdapter adapts the github.Client to the PR event and review
// event ports. One adapter serves a single GitHub organization.
type GithubEventAdapter struct {
	client  *github.Client
	courses CourseSource
	org     string

	// concurrency bounds parallel repo fetches. The client's rate limiter
	// still paces individual requests.
	concurrency int

	log *logger.Logger
}

// NewGithubEventAdapter creates a new adapter. courses may be nil when only
// the batch-scoped PR event port is used.
func NewGithubEventAdapter(client *github.Client, courses CourseSource, org string, log *logger.Logger) *GithubEventAdapter {
	if log == nil {
		log = logger.Default()
	}
	return &GithubEventAdapter{
		client:      client,
		courses:     courses,
		org:         org,
		concurrency: 4,
		log:         log.With(logger.Component("github_event_adapter")),
	}
}

// repoFetch is the per-repo result of a parallel fetch.
type repoFetch struct {
	index     int
	prEvents  []submission.PREvent
	revEvents []review.Event
	err       error
}

// PREvents fetches every pull request of the batch's course repositories.
// Results keep curriculum repo order, PRs in API order within a repo, so a
// rerun over unchanged data reconciles identically.
func (a *GithubEventAdapter) PREvents(ctx context.Context, batch *roster.Batch) ([]submission.PREvent, error) {
	fetches, err := a.fetchRepos(ctx, courseRepos(batch.Course), false)
	if err != nil {
		return nil, err
	}

	var events []submission.PREvent
	for _, f := range fetches {
		events = append(events, f.prEvents...)
	}
	return events, nil
}

// FetchReviewEvents fetches the review and comment events of a course.
// Implements the command-side fetcher port.
func (a *GithubEventAdapter) FetchReviewEvents(ctx context.Context, course string) ([]review.Event, error) {
	if a.courses == nil {
		return nil, fmt.Errorf("no course source configured")
	}
	c, err := a.courses.Course(ctx, course)
	if err != nil {
		return nil, fmt.Errorf("resolve course %q: %w", course, err)
	}

	fetches, err := a.fetchRepos(ctx, courseRepos(c), true)
	if err != nil {
		return nil, err
	}

	var events []review.Event
	for _, f := range fetches {
		events = append(events, f.revEvents...)
	}
	return events, nil
}

// ReviewEvents implements the query-side source port with the same fetch.
func (a *GithubEventAdapter) ReviewEvents(ctx context.Context, course string) ([]review.Event, error) {
	return a.FetchReviewEvents(ctx, course)
}

// fetchRepos pulls every repo's PRs in parallel, bounded by a semaphore.
// withComments additionally fetches conversation comments for the review
// event mapping.
func (a *GithubEventAdapter) fetchRepos(ctx context.Context, repos []string, withComments bool) ([]repoFetch, error) {
	fetches := make([]repoFetch, len(repos))
	semaphore := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup

	for i, repo := range repos {
		wg.Add(1)
		go func(index int, repo string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			fetches[index] = a.fetchRepo(ctx, index, repo, withComments)
		}(i, repo)
	}
	wg.Wait()

	for _, f := range fetches {
		if f.err != nil {
			return nil, f.err
		}
	}
	return fetches, nil
}

// fetchRepo pulls one repo's PRs plus their reviews (and comments when
// asked) and maps them to domain events.
func (a *GithubEventAdapter) fetchRepo(ctx context.Context, index int, repo string, withComments bool) repoFetch {
	result := repoFetch{index: index}

	prs, err := a.client.ListPullRequests(ctx, a.org, repo)
	if err != nil {
		result.err = fmt.Errorf("repo %s: %w", repo, err)
		return result
	}

	mapper := a.client.Mapper()
	for _, pr := range prs {
		reviews, err := a.client.ListReviews(ctx, a.org, repo, pr.Number)
		if err != nil {
			result.err = fmt.Errorf("repo %s pr %d: %w", repo, pr.Number, err)
			return result
		}

		result.prEvents = append(result.prEvents, mapper.PREventFromDTO(repo, pr, reviews))

		if !withComments {
			continue
		}
		comments, err := a.client.ListIssueComments(ctx, a.org, repo, pr.Number)
		if err != nil {
			result.err = fmt.Errorf("repo %s pr %d comments: %w", repo, pr.Number, err)
			return result
		}
		result.revEvents = append(result.revEvents, mapper.ReviewEventsFromDTO(repo, pr, reviews, comments)...)
	}

	a.log.Debug("fetched repo",
		logger.String("repo", repo),
		logger.Int("pull_requests", len(prs)),
	)
	return result
}

// courseRepos returns the distinct repositories the course expects
// submissions in, in curriculum order. Validation guarantees every PR
// assignment names its repo.
func courseRepos(course *curriculum.Course) []string {
	seen := make(map[string]struct{})
	var repos []string
	for _, ref := range course.SlotRefs() {
		if ref.Assignment.Kind != curriculum.KindPullRequest {
			continue
		}
		repo := ref.Assignment.Repo
		if repo == "" {
			continue
		}
		if _, ok := seen[repo]; ok {
			continue
		}
		seen[repo] = struct{}{}
		repos = append(repos, repo)
	}
	return repos
}

package submission

import (
	"strconv"
	"strings"

	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// Title matching works on word sets: both the PR title and the assignment
// heading are lowercased, split on common separators, and compared by
// intersection size. Trainees rename things freely ("Sprint 1 | Alarm
// Clock app" for "Alarm Clock"), so exact comparison would match almost
// nothing.

// titleWords splits a title into an ordered set of lowercase words.
// Separators follow what trainees actually type: spaces, underscores,
// hyphens, slashes and pipes.
func titleWords(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '/' || r == '|'
	})
	seen := make(map[string]struct{}, len(fields))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		words = append(words, f)
	}
	return words
}

// matchableWords widens an assignment heading's word set with adjacent
// concatenations, so "alarm clock" also matches the common "alarmclock"
// rename.
func matchableWords(heading string) []string {
	words := titleWords(strings.TrimRight(heading, "."))
	joined := make([]string, 0, len(words)*2)
	joined = append(joined, words...)
	for i := 0; i+1 < len(words); i++ {
		joined = append(joined, words[i]+words[i+1])
	}
	return joined
}

// sprintHint extracts a claimed sprint number from a PR title. Titles like
// "Sprint 3 | Piscine" or "week 2 - notes app" carry segments starting
// with "sprint" or "week"; the first number in such a segment is the hint.
// A number outside [1,20] marks the event malformed.
func sprintHint(title string) (shared.SprintNumber, bool, error) {
	var hint shared.SprintNumber
	found := false
	for _, part := range strings.Split(strings.ToLower(title), "|") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "sprint") && !strings.HasPrefix(part, "week") {
			continue
		}
		digits := firstNumber(part)
		if digits == "" {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		sn, err := shared.NewSprintNumber(n)
		if err != nil {
			return 0, false, err
		}
		hint = sn
		found = true
	}
	return hint, found, nil
}

func firstNumber(s string) string {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}

// matchScore counts word overlap between a PR title and an assignment.
// When the PR claims a sprint, "sprintN"/"weekN" synthetic words are added
// on both sides, mirroring how curriculum headings mention their sprint.
func matchScore(pr PREvent, a curriculum.Assignment, hint shared.SprintNumber, hasHint bool) int {
	if a.Match.TitlePattern != "" &&
		!strings.Contains(strings.ToLower(pr.Title), strings.ToLower(a.Match.TitlePattern)) {
		return 0
	}

	prWords := titleWords(pr.Title)
	if hasHint {
		prWords = append(prWords, "sprint"+strconv.Itoa(hint.Int()))
	}

	aWords := matchableWords(a.Heading)
	if hasHint && containsWord(aWords, "sprint") {
		aWords = append(aWords,
			"sprint"+strconv.Itoa(hint.Int()),
			"week"+strconv.Itoa(hint.Int()))
	}

	set := make(map[string]struct{}, len(aWords))
	for _, w := range aWords {
		set[w] = struct{}{}
	}
	score := 0
	for _, w := range prWords {
		if _, ok := set[w]; ok {
			score++
		}
	}
	return score
}

func containsWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

// bestCell finds the unfilled PR assignment cell this event matches best.
// Candidates are constrained to the event's repository and, when a sprint
// hint is present, to that sprint. A strictly greater score wins, so on
// ties the earlier cell in grid order is kept. Returns -1 when nothing
// scores above zero.
func bestCell(pr PREvent, cells []Cell, hint shared.SprintNumber, hasHint bool) int {
	best := -1
	bestScore := 0
	for i, c := range cells {
		a := c.Ref.Assignment
		if a.Kind != curriculum.KindPullRequest || a.Repo != pr.RepoName {
			continue
		}
		if c.Slot.IsMatched() {
			continue
		}
		if hasHint && c.Ref.SprintIndex != hint.Int()-1 {
			continue
		}
		if score := matchScore(pr, a, hint, hasHint); score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

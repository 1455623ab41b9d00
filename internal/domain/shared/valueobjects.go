// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// GithubLogin Value Object
// ═══════════════════════════════════════════════════════════════════════════

// GithubLogin identifies a GitHub account. Comparison is case-insensitive:
// GitHub preserves the case the user registered with but treats logins as
// equal regardless of case, so we normalize on construction.
type GithubLogin string

// IsValid checks if the login is a plausible GitHub login:
// alphanumerics and inner single hyphens, up to 39 characters.
func (g GithubLogin) IsValid() bool {
	s := string(g)
	if len(s) == 0 || len(s) > 39 || strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") || strings.Contains(s, "--") {
		return false
	}
	for _, r := range s {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-'
		if !ok {
			return false
		}
	}
	return true
}

// String returns the string representation.
func (g GithubLogin) String() string {
	return string(g)
}

// Equals compares two logins case-insensitively.
func (g GithubLogin) Equals(other GithubLogin) bool {
	return strings.EqualFold(string(g), string(other))
}

// Key returns the canonical (lowercase) form, suitable for map keys.
func (g GithubLogin) Key() string {
	return strings.ToLower(string(g))
}

// NewGithubLogin creates a new GithubLogin with validation.
// The original case is kept for display; use Key() when indexing.
func NewGithubLogin(login string) (GithubLogin, error) {
	g := GithubLogin(strings.TrimSpace(login))
	if !g.IsValid() {
		return "", ErrInvalidGithubLogin
	}
	return g, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Email Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Email is a trainee contact address. Used for roster cross-referencing only,
// so validation is deliberately loose.
type Email string

// IsValid checks the minimal structure of the address.
func (e Email) IsValid() bool {
	s := string(e)
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\n")
}

// String returns the string representation.
func (e Email) String() string {
	return string(e)
}

// Normalize returns the lowercase form.
func (e Email) Normalize() Email {
	return Email(strings.ToLower(string(e)))
}

// NewEmail creates a new Email with validation.
func NewEmail(addr string) (Email, error) {
	e := Email(strings.TrimSpace(addr))
	if !e.IsValid() {
		return "", NewDomainError("shared", "NewEmail", ErrInvalidFormat, "invalid email address")
	}
	return e.Normalize(), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Region Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Region is the location a trainee attends class from. It determines the
// local timezone used for attendance classification.
type Region string

// Regions currently running cohorts.
const (
	RegionLondon      Region = "London"
	RegionGlasgow     Region = "Glasgow"
	RegionSheffield   Region = "Sheffield"
	RegionSouthAfrica Region = "South Africa"
)

// IsValid checks if the region is non-empty.
func (r Region) IsValid() bool {
	return strings.TrimSpace(string(r)) != ""
}

// String returns the string representation.
func (r Region) String() string {
	return string(r)
}

// TimezoneName returns the IANA timezone name for the region.
// South Africa runs on Johannesburg time, every other region on London time.
func (r Region) TimezoneName() string {
	if r == RegionSouthAfrica {
		return "Africa/Johannesburg"
	}
	return "Europe/London"
}

// Location resolves the region's timezone. Falls back to UTC if the
// timezone database is unavailable.
func (r Region) Location() *time.Location {
	loc, err := time.LoadLocation(r.TimezoneName())
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewRegion creates a new Region with validation.
func NewRegion(name string) (Region, error) {
	r := Region(strings.TrimSpace(name))
	if !r.IsValid() {
		return "", ErrUnknownRegion
	}
	return r, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Score Value Object (fixed-point progress score)
// ═══════════════════════════════════════════════════════════════════════════

// Score is a progress score scaled by 100: 0 means 0.00%, 10000 means 100.00%.
// Integer fixed-point keeps scores exactly comparable across runs.
type Score int

const (
	MinScore Score = 0
	MaxScore Score = 10000
)

// IsValid checks if the score is within range.
func (s Score) IsValid() bool {
	return s >= MinScore && s <= MaxScore
}

// Int returns the underlying int value.
func (s Score) Int() int {
	return int(s)
}

// Percent returns the score as a display percentage, e.g. "73.50%".
func (s Score) Percent() string {
	return fmt.Sprintf("%d.%02d%%", int(s)/100, int(s)%100)
}

// NewScore creates a Score, clamping to the valid range.
func NewScore(v int) Score {
	if v < int(MinScore) {
		return MinScore
	}
	if v > int(MaxScore) {
		return MaxScore
	}
	return Score(v)
}

// ScoreRatio converts a numerator/denominator pair into a Score,
// rounding half-up. A zero denominator yields MinScore.
func ScoreRatio(numerator, denominator int) Score {
	if denominator <= 0 || numerator <= 0 {
		return MinScore
	}
	scaled := numerator * int(MaxScore)
	return NewScore((scaled + denominator/2) / denominator)
}

// ═══════════════════════════════════════════════════════════════════════════
// SprintNumber Value Object
// ═══════════════════════════════════════════════════════════════════════════

// SprintNumber is a 1-based sprint index. Numbers outside the plausible
// range are treated as noise when parsed out of PR titles.
type SprintNumber int

const (
	MinSprintNumber SprintNumber = 1
	MaxSprintNumber SprintNumber = 20
)

// IsValid checks if the sprint number is plausible.
func (n SprintNumber) IsValid() bool {
	return n >= MinSprintNumber && n <= MaxSprintNumber
}

// Int returns the underlying int value.
func (n SprintNumber) Int() int {
	return int(n)
}

// NewSprintNumber creates a SprintNumber with validation.
func NewSprintNumber(v int) (SprintNumber, error) {
	n := SprintNumber(v)
	if !n.IsValid() {
		return 0, ErrInvalidSprintNumber
	}
	return n, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// BatchSlug Value Object
// ═══════════════════════════════════════════════════════════════════════════

// BatchSlug identifies a batch within a course, e.g. "2025-05".
// It doubles as the GitHub team slug under ${course}-trainees.
type BatchSlug string

var batchSlugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,49}$`)

// IsValid checks the slug format.
func (b BatchSlug) IsValid() bool {
	return batchSlugRegex.MatchString(string(b))
}

// String returns the string representation.
func (b BatchSlug) String() string {
	return string(b)
}

// NewBatchSlug creates a BatchSlug with validation.
func NewBatchSlug(slug string) (BatchSlug, error) {
	b := BatchSlug(strings.ToLower(strings.TrimSpace(slug)))
	if !b.IsValid() {
		return "", NewDomainError("shared", "NewBatchSlug", ErrInvalidFormat, "invalid batch slug")
	}
	return b, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a time period, inclusive on both ends.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains checks if a time is within the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return (tm.Equal(t.From) || tm.After(t.From)) && (tm.Equal(t.To) || tm.Before(t.To))
}

// TrailingDays returns the range covering the n days up to and including now.
func TrailingDays(now time.Time, n int) TimeRange {
	return TimeRange{
		From: now.AddDate(0, 0, -n),
		To:   now,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

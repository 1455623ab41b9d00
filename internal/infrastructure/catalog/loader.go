// Package catalog loads the course and batch definitions the tracker
// works from. The catalog is a JSON file maintained by course staff in
// the ops repository; it is read at startup and on demand, never written.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/roster"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FILE SCHEMA
// ══════════════════════════════════════════════════════════════════════════════

// catalogFile is the root of the catalog JSON.
type catalogFile struct {
	Courses []courseDef `json:"courses"`
	Batches []batchDef  `json:"batches"`
}

type courseDef struct {
	Name      string      `json:"name"`
	StartDate string      `json:"start_date"`
	EndDate   string      `json:"end_date"`
	Modules   []moduleDef `json:"modules"`
}

type moduleDef struct {
	Name    string      `json:"name"`
	Sprints []sprintDef `json:"sprints"`
}

type sprintDef struct {
	Number        int               `json:"number"`
	DueOffsetDays int               `json:"due_offset_days"`
	ClassDates    map[string]string `json:"class_dates"`
	Assignments   []assignmentDef   `json:"assignments"`
}

type assignmentDef struct {
	ID            string `json:"id"`
	Heading       string `json:"heading"`
	Repo          string `json:"repo"`
	IssueURL      string `json:"issue_url"`
	Kind          string `json:"kind"`
	Optionality   string `json:"optionality"`
	TitlePattern  string `json:"title_pattern"`
	Weight        int    `json:"weight"`
	DueOffsetDays int    `json:"due_offset_days"`
}

type batchDef struct {
	Name      string       `json:"name"`
	Slug      string       `json:"slug"`
	Course    string       `json:"course"`
	StartDate string       `json:"start_date"`
	Trainees  []traineeDef `json:"trainees"`
}

type traineeDef struct {
	Login  string `json:"login"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Region string `json:"region"`
}

// ══════════════════════════════════════════════════════════════════════════════
// LOADER
// ══════════════════════════════════════════════════════════════════════════════

// Loader reads the catalog file and serves courses and batches from it.
// Implements the batch source and course source ports.
type Loader struct {
	path string

	mu      sync.RWMutex
	courses map[string]*curriculum.Course
	batches map[string]*roster.Batch
}

// NewLoader creates a loader for the given catalog file and reads it once.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the catalog file. Staff edit the catalog between runs;
// the worker reloads before each scheduled reconciliation.
func (l *Loader) Reload() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", l.path, err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse catalog %s: %w", l.path, err)
	}

	courses := make(map[string]*curriculum.Course, len(file.Courses))
	for _, def := range file.Courses {
		course, err := buildCourse(def)
		if err != nil {
			return fmt.Errorf("course %q: %w", def.Name, err)
		}
		if err := course.Validate(); err != nil {
			return fmt.Errorf("course %q: %w", def.Name, err)
		}
		courses[def.Name] = course
	}

	batches := make(map[string]*roster.Batch, len(file.Batches))
	for _, def := range file.Batches {
		batch, err := buildBatch(def, courses)
		if err != nil {
			return fmt.Errorf("batch %q: %w", def.Slug, err)
		}
		if err := batch.Validate(); err != nil {
			return fmt.Errorf("batch %q: %w", def.Slug, err)
		}
		batches[batch.Slug.String()] = batch
	}

	l.mu.Lock()
	l.courses = courses
	l.batches = batches
	l.mu.Unlock()
	return nil
}

// Course resolves a course by name.
func (l *Loader) Course(ctx context.Context, name string) (*curriculum.Course, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	course, ok := l.courses[name]
	if !ok {
		return nil, shared.NewDomainError("catalog", "Course", shared.ErrNotFound, fmt.Sprintf("course %q not in catalog", name))
	}
	return course, nil
}

// Batch resolves a batch by slug.
func (l *Loader) Batch(ctx context.Context, slug shared.BatchSlug) (*roster.Batch, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	batch, ok := l.batches[slug.String()]
	if !ok {
		return nil, shared.NewDomainError("catalog", "Batch", shared.ErrNotFound, fmt.Sprintf("batch %q not in catalog", slug))
	}
	return batch, nil
}

// BatchSlugs returns every batch slug in the catalog. The scheduler walks
// this list on each reconciliation tick.
func (l *Loader) BatchSlugs() []shared.BatchSlug {
	l.mu.RLock()
	defer l.mu.RUnlock()

	slugs := make([]shared.BatchSlug, 0, len(l.batches))
	for _, b := range l.batches {
		slugs = append(slugs, b.Slug)
	}
	return slugs
}

// CourseNames returns every course name in the catalog.
func (l *Loader) CourseNames() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.courses))
	for name := range l.courses {
		names = append(names, name)
	}
	return names
}

// ══════════════════════════════════════════════════════════════════════════════
// BUILDERS
// ══════════════════════════════════════════════════════════════════════════════

func buildCourse(def courseDef) (*curriculum.Course, error) {
	start, err := parseDate(def.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	end, err := parseDate(def.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end_date: %w", err)
	}

	course := &curriculum.Course{
		Name:      def.Name,
		StartDate: start,
		EndDate:   end,
	}

	for _, m := range def.Modules {
		module := curriculum.Module{Name: m.Name}
		for _, s := range m.Sprints {
			sprint, err := buildSprint(s)
			if err != nil {
				return nil, fmt.Errorf("module %q sprint %d: %w", m.Name, s.Number, err)
			}
			module.Sprints = append(module.Sprints, sprint)
		}
		course.Modules = append(course.Modules, module)
	}
	return course, nil
}

func buildSprint(def sprintDef) (curriculum.Sprint, error) {
	sprint := curriculum.Sprint{
		Number:    shared.SprintNumber(def.Number),
		DueOffset: time.Duration(def.DueOffsetDays) * 24 * time.Hour,
	}

	if len(def.ClassDates) > 0 {
		sprint.ClassDates = make(map[shared.Region]time.Time, len(def.ClassDates))
		for regionName, dateStr := range def.ClassDates {
			region, err := shared.NewRegion(regionName)
			if err != nil {
				return curriculum.Sprint{}, fmt.Errorf("class date region %q: %w", regionName, err)
			}
			// Class dates are calendar days in the region's own timezone.
			date, err := timeutil.ParseDate(dateStr, region.Location())
			if err != nil {
				return curriculum.Sprint{}, fmt.Errorf("class date %q: %w", dateStr, err)
			}
			sprint.ClassDates[region] = date
		}
	}

	for _, a := range def.Assignments {
		assignment, err := buildAssignment(a)
		if err != nil {
			return curriculum.Sprint{}, fmt.Errorf("assignment %q: %w", a.ID, err)
		}
		sprint.Assignments = append(sprint.Assignments, assignment)
	}
	return sprint, nil
}

func buildAssignment(def assignmentDef) (curriculum.Assignment, error) {
	assignment := curriculum.Assignment{
		ID:        def.ID,
		Heading:   def.Heading,
		Repo:      def.Repo,
		IssueURL:  def.IssueURL,
		Match:     curriculum.MatchRule{TitlePattern: def.TitlePattern},
		Weight:    def.Weight,
		DueOffset: time.Duration(def.DueOffsetDays) * 24 * time.Hour,
	}

	switch def.Kind {
	case "", "pull_request":
		assignment.Kind = curriculum.KindPullRequest
	case "attendance":
		assignment.Kind = curriculum.KindAttendance
	default:
		return curriculum.Assignment{}, fmt.Errorf("unknown kind %q", def.Kind)
	}

	switch def.Optionality {
	case "", "mandatory":
		assignment.Optionality = curriculum.Mandatory
	case "stretch":
		assignment.Optionality = curriculum.Stretch
	default:
		return curriculum.Assignment{}, fmt.Errorf("unknown optionality %q", def.Optionality)
	}

	return assignment, nil
}

func buildBatch(def batchDef, courses map[string]*curriculum.Course) (*roster.Batch, error) {
	course, ok := courses[def.Course]
	if !ok {
		return nil, fmt.Errorf("references unknown course %q", def.Course)
	}

	slug, err := shared.NewBatchSlug(def.Slug)
	if err != nil {
		return nil, err
	}

	start, err := parseDate(def.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}

	batch := &roster.Batch{
		Name:      def.Name,
		Slug:      slug,
		Course:    course,
		StartDate: start,
	}

	for _, t := range def.Trainees {
		login, err := shared.NewGithubLogin(t.Login)
		if err != nil {
			return nil, fmt.Errorf("trainee %q: %w", t.Login, err)
		}
		region, err := shared.NewRegion(t.Region)
		if err != nil {
			return nil, fmt.Errorf("trainee %q: %w", t.Login, err)
		}
		batch.Trainees = append(batch.Trainees, roster.Trainee{
			Login:  login,
			Name:   t.Name,
			Email:  shared.Email(t.Email),
			Region: region,
		})
	}
	return batch, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	if t, err := time.Parse(timeutil.FormatDate, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

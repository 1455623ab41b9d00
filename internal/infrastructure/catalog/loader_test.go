package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

const validCatalog = `{
  "courses": [
    {
      "name": "intro-to-programming",
      "start_date": "2026-01-05",
      "end_date": "2026-06-26",
      "modules": [
        {
          "name": "market",
          "sprints": [
            {
              "number": 1,
              "due_offset_days": 7,
              "class_dates": {"London": "2026-01-12"},
              "assignments": [
                {"id": "itp/market/1/build", "heading": "Build the market", "repo": "market", "optionality": "mandatory"},
                {"id": "itp/market/1/stretch", "heading": "Stretch: discounts", "repo": "market", "optionality": "stretch"},
                {"id": "itp/market/1/class", "kind": "attendance"}
              ]
            }
          ]
        }
      ]
    }
  ],
  "batches": [
    {
      "name": "January 2026",
      "slug": "2026-jan",
      "course": "intro-to-programming",
      "start_date": "2026-01-05",
      "trainees": [
        {"login": "alice-dev", "name": "Alice", "email": "alice@example.com", "region": "London"},
        {"login": "bob", "name": "Bob", "email": "bob@example.com", "region": "London"}
      ]
    }
  ]
}`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadsCourseAndBatch(t *testing.T) {
	loader, err := NewLoader(writeCatalog(t, validCatalog))
	require.NoError(t, err)

	course, err := loader.Course(context.Background(), "intro-to-programming")
	require.NoError(t, err)
	assert.Equal(t, "intro-to-programming", course.Name)
	require.Len(t, course.Modules, 1)
	assert.Equal(t, 3, course.AssignmentCount())

	sprint := course.Modules[0].Sprints[0]
	assert.Equal(t, 7*24*time.Hour, sprint.DueOffset)
	assert.Equal(t, curriculum.Stretch, sprint.Assignments[1].Optionality)
	assert.Equal(t, curriculum.KindAttendance, sprint.Assignments[2].Kind)

	// Class dates parse in the region's own timezone.
	classDate, ok := sprint.ClassDate(shared.RegionLondon)
	require.True(t, ok)
	assert.Equal(t, "2026-01-12", classDate.Format("2006-01-02"))
	assert.Equal(t, shared.RegionLondon.Location().String(), classDate.Location().String())

	batch, err := loader.Batch(context.Background(), shared.BatchSlug("2026-jan"))
	require.NoError(t, err)
	assert.Equal(t, "January 2026", batch.Name)
	require.Len(t, batch.Trainees, 2)
	assert.Same(t, course, batch.Course)
}

func TestLoader_UnknownLookups(t *testing.T) {
	loader, err := NewLoader(writeCatalog(t, validCatalog))
	require.NoError(t, err)

	_, err = loader.Course(context.Background(), "nope")
	assert.True(t, shared.IsNotFound(err))

	_, err = loader.Batch(context.Background(), shared.BatchSlug("2099-never"))
	assert.True(t, shared.IsNotFound(err))
}

func TestLoader_RejectsInvalidCourse(t *testing.T) {
	// Sprint numbered 2 in first position fails curriculum validation.
	broken := `{
  "courses": [{
    "name": "broken",
    "start_date": "2026-01-05",
    "end_date": "2026-06-26",
    "modules": [{
      "name": "market",
      "sprints": [{
        "number": 2,
        "assignments": [{"id": "x", "heading": "X", "repo": "market"}]
      }]
    }]
  }],
  "batches": []
}`
	_, err := NewLoader(writeCatalog(t, broken))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestLoader_RejectsBatchWithUnknownCourse(t *testing.T) {
	broken := `{
  "courses": [],
  "batches": [{
    "name": "Ghost",
    "slug": "2026-ghost",
    "course": "missing",
    "start_date": "2026-01-05",
    "trainees": [{"login": "alice-dev", "region": "London"}]
  }]
}`
	_, err := NewLoader(writeCatalog(t, broken))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown course")
}

func TestLoader_BatchSlugs(t *testing.T) {
	loader, err := NewLoader(writeCatalog(t, validCatalog))
	require.NoError(t, err)

	slugs := loader.BatchSlugs()
	require.Len(t, slugs, 1)
	assert.Equal(t, shared.BatchSlug("2026-jan"), slugs[0])
}

package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCronSchedule_RejectsMalformed(t *testing.T) {
	for _, expr := range []string{"", "* * * *", "61 * * * *", "* * * * mon", "*/0 * * * *", "5-2 * * * *"} {
		_, err := NewCronSchedule(expr)
		assert.Error(t, err, expr)
	}
}

func TestCronSchedule_NextDaily(t *testing.T) {
	s, err := NewCronSchedule("0 3 * * *")
	require.NoError(t, err)

	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC), s.Next(at))

	// Just before the slot rolls to the same day.
	at = time.Date(2025, 6, 2, 2, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC), s.Next(at))

	// Exactly on the slot advances to the next day.
	at = time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 3, 3, 0, 0, 0, time.UTC), s.Next(at))
}

func TestCronSchedule_NextStep(t *testing.T) {
	s := MustCronSchedule("*/15 * * * *")

	at := time.Date(2025, 6, 1, 12, 7, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 15, 0, 0, time.UTC), s.Next(at))
}

func TestCronSchedule_NextWeekday(t *testing.T) {
	// Sundays at midnight. June 1 2025 is a Sunday.
	s := MustCronSchedule("0 0 * * 0")

	at := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), s.Next(at))
}

func TestCronSchedule_ListAndRange(t *testing.T) {
	s := MustCronSchedule("0 9,17 * * 1-5")

	// Friday 18:00 rolls over the weekend to Monday 09:00.
	at := time.Date(2025, 6, 6, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC), s.Next(at))
}

func TestCronSchedule_String(t *testing.T) {
	assert.Equal(t, "0 3 * * *", MustCronSchedule("0 3 * * *").String())
}

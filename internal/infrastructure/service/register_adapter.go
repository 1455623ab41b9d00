package service

import (
	"context"
	"fmt"

	"github.com/trainee-hub/trainee-tracker/internal/domain/attendance"
	"github.com/trainee-hub/trainee-tracker/internal/domain/roster"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/internal/infrastructure/external/register"
)

// RegisterAdapter adapts the register.Client to the check-in source port.
type RegisterAdapter struct {
	client *register.Client
}

// NewRegisterAdapter creates a new adapter.
func NewRegisterAdapter(client *register.Client) *RegisterAdapter {
	return &RegisterAdapter{client: client}
}

// CheckIns fetches the register rows for a batch, from batch start onward.
// Rows are mapped as-is; the attendance reconciler decides what a row
// means for a given class day.
func (a *RegisterAdapter) CheckIns(ctx context.Context, batch *roster.Batch) ([]attendance.CheckInEvent, error) {
	rows, err := a.client.ListCheckIns(ctx, batch.Slug.String(), batch.StartDate)
	if err != nil {
		return nil, fmt.Errorf("fetch check-ins: %w", err)
	}

	events := make([]attendance.CheckInEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, attendance.CheckInEvent{
			Login:       shared.GithubLogin(row.Login),
			Timestamp:   row.Timestamp,
			Code:        row.Code,
			RegisterURL: row.RegisterURL,
		})
	}
	return events, nil
}

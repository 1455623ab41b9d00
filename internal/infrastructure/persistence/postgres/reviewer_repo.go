// Package postgres implements the PostgreSQL persistence layer for the
// trainee tracker.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/trainee-hub/trainee-tracker/internal/domain/review"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVIEWER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ReviewerRepository implements the reviewer activity store and the staff
// details repository for PostgreSQL.
type ReviewerRepository struct {
	conn *Connection
}

// NewReviewerRepository creates a new ReviewerRepository.
func NewReviewerRepository(conn *Connection) *ReviewerRepository {
	return &ReviewerRepository{conn: conn}
}

// reviewedPRDoc is the JSONB shape of one reviewed PR.
type reviewedPRDoc struct {
	Repo           string    `json:"repo"`
	URL            string    `json:"url"`
	Number         int       `json:"number"`
	LatestReviewAt time.Time `json:"latest_review_at"`
}

// SaveReviewerActivity replaces a course's activity rows with the given
// aggregation. Replace-wholesale keeps reads trivially consistent: there
// is never a row from an older refresh next to a newer one.
func (r *ReviewerRepository) SaveReviewerActivity(ctx context.Context, course string, activities []review.Activity, refreshedAt time.Time) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM reviewer_activity WHERE course = $1`, course); err != nil {
			return fmt.Errorf("failed to clear reviewer activity: %w", err)
		}

		insertQuery := `
			INSERT INTO reviewer_activity (
				course, login, total_reviews, last_review_at, days_since_last,
				active_days_28, bucket, reviewed_prs, refreshed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`

		for _, act := range activities {
			docs := make([]reviewedPRDoc, 0, len(act.ReviewedPRs))
			for _, pr := range act.ReviewedPRs {
				docs = append(docs, reviewedPRDoc{
					Repo:           pr.PR.RepoName,
					URL:            pr.PR.URL,
					Number:         pr.PR.Number,
					LatestReviewAt: pr.LatestReviewAt,
				})
			}
			prsJSON, err := json.Marshal(docs)
			if err != nil {
				return fmt.Errorf("failed to marshal reviewed PRs: %w", err)
			}

			if _, err := tx.Exec(ctx, insertQuery,
				course,
				act.Login.String(),
				act.TotalReviews,
				act.LastReviewAt,
				act.DaysSinceLast,
				act.ActiveDays28,
				act.Bucket.String(),
				prsJSON,
				refreshedAt,
			); err != nil {
				return fmt.Errorf("failed to insert reviewer activity for %s: %w", act.Login, err)
			}
		}
		return nil
	})
}

// InactiveReviewers returns the logins currently bucketed inactive.
func (r *ReviewerRepository) InactiveReviewers(ctx context.Context, course string) ([]string, error) {
	q := `
		SELECT login FROM reviewer_activity
		WHERE course = $1 AND bucket = 'inactive'
		ORDER BY login
	`

	rows, err := r.conn.Query(ctx, q, course)
	if err != nil {
		return nil, fmt.Errorf("failed to query inactive reviewers: %w", err)
	}
	defer rows.Close()

	var logins []string
	for rows.Next() {
		var login string
		if err := rows.Scan(&login); err != nil {
			return nil, fmt.Errorf("failed to scan reviewer login: %w", err)
		}
		logins = append(logins, login)
	}
	return logins, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Staff details
// ─────────────────────────────────────────────────────────────────────────────

// StaffDetails returns the staff notes for a reviewer. ErrNotFound when
// no record exists.
func (r *ReviewerRepository) StaffDetails(ctx context.Context, login shared.GithubLogin) (review.StaffDetails, error) {
	q := `
		SELECT name, attended_training, checked, quality, notes
		FROM staff_details
		WHERE LOWER(login) = $1
	`

	var (
		details review.StaffDetails
		checked string
	)
	err := r.conn.QueryRow(ctx, q, login.Key()).Scan(
		&details.Name,
		&details.AttendedTraining,
		&checked,
		&details.Quality,
		&details.Notes,
	)
	if err != nil {
		if IsNoRows(err) {
			return review.StaffDetails{}, shared.NewDomainError("postgres", "StaffDetails", shared.ErrNotFound,
				fmt.Sprintf("no staff details for %s", login))
		}
		return review.StaffDetails{}, fmt.Errorf("failed to load staff details: %w", err)
	}

	details.Checked = review.ParseCheckStatus(checked)
	return details, nil
}

// UpsertStaffDetails writes the staff notes for a reviewer.
func (r *ReviewerRepository) UpsertStaffDetails(ctx context.Context, login shared.GithubLogin, details review.StaffDetails) error {
	q := `
		INSERT INTO staff_details (login, name, attended_training, checked, quality, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (login) DO UPDATE SET
			name = EXCLUDED.name,
			attended_training = EXCLUDED.attended_training,
			checked = EXCLUDED.checked,
			quality = EXCLUDED.quality,
			notes = EXCLUDED.notes,
			updated_at = NOW()
	`

	_, err := r.conn.Exec(ctx, q,
		login.Key(),
		details.Name,
		details.AttendedTraining,
		details.Checked.String(),
		details.Quality,
		details.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert staff details: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Staff tokens
// ─────────────────────────────────────────────────────────────────────────────

// StaffTokenVerifier checks presented staff tokens against the stored
// bcrypt hashes. Implements the staff authenticator port.
type StaffTokenVerifier struct {
	conn *Connection
}

// NewStaffTokenVerifier creates a new StaffTokenVerifier.
func NewStaffTokenVerifier(conn *Connection) *StaffTokenVerifier {
	return &StaffTokenVerifier{conn: conn}
}

// Verify reports whether the token matches any non-revoked staff token.
// The token count is small (one per staff member), so comparing against
// each hash is fine.
func (v *StaffTokenVerifier) Verify(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}

	rows, err := v.conn.Query(ctx, `SELECT token_hash FROM staff_tokens WHERE revoked_at IS NULL`)
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return false
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil {
			return true
		}
	}
	return false
}

// AddToken stores a new staff token hash.
func (v *StaffTokenVerifier) AddToken(ctx context.Context, token, label string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash token: %w", err)
	}

	_, err = v.conn.Exec(ctx,
		`INSERT INTO staff_tokens (token_hash, label) VALUES ($1, $2)`,
		string(hash), label,
	)
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

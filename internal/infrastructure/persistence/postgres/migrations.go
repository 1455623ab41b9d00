package postgres

// allMigrations returns the embedded migrations in version order.
func allMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_report_snapshots", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_unmatched_audit", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_reviewers", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: REPORT SNAPSHOTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create report snapshots
-- Version: 001

-- One row per reconciliation run. The report itself is stored as JSONB:
-- the read side serves it verbatim and never queries inside it, only the
-- columns used for lookup are lifted out.
CREATE TABLE IF NOT EXISTS batch_reports (
    run_id UUID PRIMARY KEY,
    batch_slug VARCHAR(60) NOT NULL,
    course VARCHAR(100) NOT NULL,
    generated_at TIMESTAMP WITH TIME ZONE NOT NULL,
    trainee_count INTEGER NOT NULL DEFAULT 0,
    unmatched_count INTEGER NOT NULL DEFAULT 0,
    report JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Latest-snapshot lookup per batch
CREATE INDEX IF NOT EXISTS idx_batch_reports_slug_created
    ON batch_reports(batch_slug, created_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS batch_reports;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: UNMATCHED AUDIT TRAIL
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create unmatched audit trail
-- Version: 002

-- Every event a run could not place, kept per run so staff can see when a
-- PR first went astray and whether it is still astray.
CREATE TABLE IF NOT EXISTS unmatched_events (
    id BIGSERIAL PRIMARY KEY,
    run_id UUID NOT NULL,
    batch_slug VARCHAR(60) NOT NULL,
    url TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    author VARCHAR(60) NOT NULL DEFAULT '',
    repo VARCHAR(200) NOT NULL DEFAULT '',
    reason VARCHAR(60) NOT NULL,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_unmatched_events_run ON unmatched_events(run_id);
CREATE INDEX IF NOT EXISTS idx_unmatched_events_slug_recorded
    ON unmatched_events(batch_slug, recorded_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS unmatched_events;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: REVIEWERS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create reviewer activity and staff tables
-- Version: 003

-- Aggregated reviewer activity, replaced wholesale on each refresh.
CREATE TABLE IF NOT EXISTS reviewer_activity (
    course VARCHAR(100) NOT NULL,
    login VARCHAR(60) NOT NULL,
    total_reviews INTEGER NOT NULL DEFAULT 0,
    last_review_at TIMESTAMP WITH TIME ZONE,
    days_since_last INTEGER NOT NULL DEFAULT 0,
    active_days_28 INTEGER NOT NULL DEFAULT 0,
    bucket VARCHAR(20) NOT NULL,
    reviewed_prs JSONB NOT NULL DEFAULT '[]'::jsonb,
    refreshed_at TIMESTAMP WITH TIME ZONE NOT NULL,

    PRIMARY KEY (course, login),
    CONSTRAINT valid_bucket CHECK (bucket IN ('super-active', 'active', 'inactive'))
);

CREATE INDEX IF NOT EXISTS idx_reviewer_activity_bucket
    ON reviewer_activity(course, bucket);

-- Staff-only notes about reviewers. Never exposed without a staff token.
CREATE TABLE IF NOT EXISTS staff_details (
    login VARCHAR(60) PRIMARY KEY,
    name VARCHAR(100) NOT NULL DEFAULT '',
    attended_training BOOLEAN NOT NULL DEFAULT FALSE,
    checked VARCHAR(30) NOT NULL DEFAULT 'unchecked',
    quality VARCHAR(100) NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_checked CHECK (checked IN ('unchecked', 'checked-and-ok', 'checked-and-check-again'))
);

-- Staff access tokens, stored as bcrypt hashes. Plaintext tokens exist
-- only in the staff member's password manager.
CREATE TABLE IF NOT EXISTS staff_tokens (
    id SERIAL PRIMARY KEY,
    token_hash VARCHAR(100) NOT NULL,
    label VARCHAR(100) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    revoked_at TIMESTAMP WITH TIME ZONE
);
`

const migration003Down = `
DROP TABLE IF EXISTS staff_tokens;
DROP TABLE IF EXISTS staff_details;
DROP TABLE IF EXISTS reviewer_activity;
`

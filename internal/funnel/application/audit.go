package application

import (
	"context"
	"database/sql"

	apperrors "compound-site/internal/common/errors"
)

// AuditRecorder keeps an outcome trail of submission attempts.
type AuditRecorder interface {
	RecordSubmission(ctx context.Context, rec SubmissionRecord) error
}

// AuditSchema creates the submissions table. Safe to run on every start.
var AuditSchema = []string{
	`CREATE TABLE IF NOT EXISTS application_submissions (
		id UUID PRIMARY KEY,
		workflow_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS application_submissions_created_at_idx
		ON application_submissions (created_at)`,
}

type PostgresAudit struct {
	db *sql.DB
}

func NewPostgresAudit(db *sql.DB) *PostgresAudit {
	return &PostgresAudit{db: db}
}

func (a *PostgresAudit) RecordSubmission(ctx context.Context, rec SubmissionRecord) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO application_submissions (
			id, workflow_id, outcome, status_code, message, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID,
		rec.WorkflowID,
		rec.Outcome,
		rec.StatusCode,
		rec.Message,
		rec.Duration.Milliseconds(),
		rec.CreatedAt,
	)
	if err != nil {
		return apperrors.NewAuditInsertFailedError(err)
	}
	return nil
}

// NopAudit discards records; used when no database is configured.
type NopAudit struct{}

func (NopAudit) RecordSubmission(context.Context, SubmissionRecord) error { return nil }

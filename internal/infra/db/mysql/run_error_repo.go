package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/callscore/internal/domain/runerrors"
)

type RunErrorRepository struct {
	db *sql.DB
}

func NewRunErrorRepository(db *sql.DB) *RunErrorRepository { return &RunErrorRepository{db: db} }

// Migrate creates the audit table when missing.
func (r *RunErrorRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

func (r *RunErrorRepository) Save(ctx context.Context, e *domain.RunError) error {
	const q = `
INSERT INTO call_run_errors
  (report_id, meeting_title, stage, message, details_json, created_at)
VALUES (?,?,?,?,?,?)
`
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := r.db.ExecContext(ctx, q,
		domain.DashIfEmpty(e.ReportID),
		domain.DashIfEmpty(e.MeetingTitle),
		domain.DashIfEmpty(string(e.Stage)),
		domain.DashIfEmpty(e.Message),
		domain.NormalizeDetails(e.DetailsJSON),
		created,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	e.CreatedAt = created
	return nil
}

func (r *RunErrorRepository) ListByReport(ctx context.Context, reportID string, limit int) ([]*domain.RunError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, report_id, meeting_title, stage, message, details_json, created_at
FROM call_run_errors
WHERE report_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, reportID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RunError
	for rows.Next() {
		var e domain.RunError
		var stage string
		if err := rows.Scan(&e.ID, &e.ReportID, &e.MeetingTitle, &stage, &e.Message, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Stage = domain.Stage(stage)
		out = append(out, &e)
	}
	return out, rows.Err()
}

package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type Repository interface {
	Create(ctx context.Context, j *Job) error
	Update(ctx context.Context, id string, u Update) error
	Get(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context) ([]Job, error)
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const jobColumns = `id, source_type, target_ref, content_hash, status, result_summary, payload, error, notification_status, notification_error, notification_sent_at, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, j *Job) error {
	query := `INSERT INTO jobs (id, source_type, target_ref, content_hash, status, notification_status) VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, j.ID, j.SourceType, j.TargetRef, j.ContentHash, j.Status, j.NotificationStatus).Scan(&j.CreatedAt, &j.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrDuplicateID
	}
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, id string, u Update) error {
	if u.IsZero() {
		return nil
	}

	set := "updated_at = NOW()"
	args := []interface{}{}
	n := 1
	add := func(col string, val interface{}) {
		set += fmt.Sprintf(", %s = $%d", col, n)
		args = append(args, val)
		n++
	}

	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.ResultSummary != nil {
		add("result_summary", *u.ResultSummary)
	}
	if u.Payload != nil {
		add("payload", []byte(u.Payload))
	}
	if u.Error != nil {
		add("error", *u.Error)
	}
	if u.NotificationStatus != nil {
		add("notification_status", *u.NotificationStatus)
	}
	if u.NotificationError != nil {
		add("notification_error", *u.NotificationError)
	}
	if u.NotificationSentAt != nil {
		add("notification_sent_at", *u.NotificationSentAt)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE jobs SET %s WHERE id = $%d", set, n)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	j, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Job, error) {
	// seq keeps insertion order for records created in the same instant.
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC, seq DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	return err
}

func (r *PostgresRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE content_hash = $1)`, hash).Scan(&exists)
	return exists, err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	j := &Job{}
	var payload []byte
	var summary, errMsg, notifyErr sql.NullString
	var sentAt sql.NullTime
	err := row.Scan(&j.ID, &j.SourceType, &j.TargetRef, &j.ContentHash, &j.Status, &summary, &payload, &errMsg, &j.NotificationStatus, &notifyErr, &sentAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.ResultSummary = summary.String
	j.Error = errMsg.String
	j.NotificationError = notifyErr.String
	if payload != nil {
		j.Payload = payload
	}
	if sentAt.Valid {
		t := sentAt.Time
		j.NotificationSentAt = &t
	}
	return j, nil
}

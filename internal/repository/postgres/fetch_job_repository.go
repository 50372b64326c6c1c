package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/fetch"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/metrics"
)

// FetchJobRepository implements fetch.Repository for PostgreSQL/SQLite
type FetchJobRepository struct {
	db *sql.DB
}

// NewFetchJobRepository creates a new fetch job repository
func NewFetchJobRepository(db *sql.DB) *FetchJobRepository {
	return &FetchJobRepository{db: db}
}

const fetchJobColumns = `id, cycle_id, resource_type, status, total, processed, fetched,
	failed_ranges, error_message, started_at, completed_at, created_at`

// Create inserts a new fetch job
func (r *FetchJobRepository) Create(ctx context.Context, j *fetch.Job) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	ranges, err := encodeRanges(j.FailedRanges)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO fetch_jobs (` + fetchJobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.ExecContext(ctx, query,
		j.ID,
		nullString(j.CycleID),
		string(j.ResourceType),
		string(j.Status),
		j.Total,
		j.Processed,
		j.Fetched,
		ranges,
		nullString(j.ErrorMessage),
		j.StartedAt,
		j.CompletedAt,
		j.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create fetch job: %w", err)
	}
	return nil
}

// Update stores the current counters and status of a job
func (r *FetchJobRepository) Update(ctx context.Context, j *fetch.Job) error {
	ranges, err := encodeRanges(j.FailedRanges)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE fetch_jobs
		SET status = $1, total = $2, processed = $3, fetched = $4, failed_ranges = $5,
			error_message = $6, started_at = $7, completed_at = $8
		WHERE id = $9
	`,
		string(j.Status),
		j.Total,
		j.Processed,
		j.Fetched,
		ranges,
		nullString(j.ErrorMessage),
		j.StartedAt,
		j.CompletedAt,
		j.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update fetch job: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("fetch job not found")
	}
	return nil
}

// Get retrieves a fetch job by id, or nil if it does not exist
func (r *FetchJobRepository) Get(ctx context.Context, id string) (*fetch.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+fetchJobColumns+` FROM fetch_jobs WHERE id = $1`, id)
	j, err := scanFetchJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fetch job: %w", err)
	}
	return j, nil
}

// List returns jobs matching filter, newest first, and the total match count
func (r *FetchJobRepository) List(ctx context.Context, filter fetch.Filter, limit, offset int) ([]*fetch.Job, int64, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "fetch_jobs", time.Since(start)) }()

	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.ResourceType != "" {
		add("resource_type = $%d", string(filter.ResourceType))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.CycleID != "" {
		add("cycle_id = $%d", filter.CycleID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fetch_jobs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count fetch jobs: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM fetch_jobs%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d",
		fetchJobColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list fetch jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*fetch.Job
	for rows.Next() {
		j, err := scanFetchJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan fetch job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFetchJob(row rowScanner) (*fetch.Job, error) {
	var j fetch.Job
	var cycleID, ranges, errMsg sql.NullString
	var startedAt, completedAt sql.NullTime
	var rt, status string

	err := row.Scan(
		&j.ID,
		&cycleID,
		&rt,
		&status,
		&j.Total,
		&j.Processed,
		&j.Fetched,
		&ranges,
		&errMsg,
		&startedAt,
		&completedAt,
		&j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.CycleID = cycleID.String
	j.ResourceType = catalog.ResourceType(rt)
	j.Status = fetch.Status(status)
	j.ErrorMessage = errMsg.String
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	if ranges.Valid && ranges.String != "" {
		if err := json.Unmarshal([]byte(ranges.String), &j.FailedRanges); err != nil {
			return nil, fmt.Errorf("failed to decode failed ranges: %w", err)
		}
	}
	return &j, nil
}

func encodeRanges(ranges []fetch.IDRange) (sql.NullString, error) {
	if len(ranges) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(ranges)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode failed ranges: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ fetch.Repository = (*FetchJobRepository)(nil)

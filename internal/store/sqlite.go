package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comsa33/data-collector/internal/model"

	_ "modernc.org/sqlite"
)

const createDataSourcesTable = `
CREATE TABLE IF NOT EXISTS data_sources (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    type       TEXT NOT NULL,
    options    TEXT NOT NULL,
    created_at DATETIME NOT NULL
)`

const createJobsTable = `
CREATE TABLE IF NOT EXISTS jobs (
    id             TEXT PRIMARY KEY,
    status         TEXT NOT NULL,
    query          TEXT NOT NULL,
    data_source_id TEXT NOT NULL,
    result_id      TEXT,
    error          TEXT,
    error_kind     TEXT,
    created_at     DATETIME NOT NULL,
    started_at     DATETIME,
    finished_at    DATETIME
)`

const createQueryResultsTable = `
CREATE TABLE IF NOT EXISTS query_results (
    id         TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    created_at DATETIME NOT NULL
)`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range []string{createDataSourcesTable, createJobsTable, createQueryResultsTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateDataSource inserts a new data source record.
func (s *SQLiteStore) CreateDataSource(ctx context.Context, ds *model.DataSource) error {
	options, err := json.Marshal(ds.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO data_sources (id, name, type, options, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		ds.ID, ds.Name, ds.Type, string(options), ds.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("%w: %q", ErrDuplicateName, ds.Name)
		}
		return fmt.Errorf("insert data source: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanDataSource(row *sql.Row) (*model.DataSource, error) {
	ds := &model.DataSource{}
	var options string
	err := row.Scan(&ds.ID, &ds.Name, &ds.Type, &options, &ds.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get data source: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &ds.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return ds, nil
}

// GetDataSource retrieves a data source by ID.
func (s *SQLiteStore) GetDataSource(ctx context.Context, id string) (*model.DataSource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, options, created_at FROM data_sources WHERE id = ?`, id)
	return s.scanDataSource(row)
}

// GetDataSourceByName retrieves a data source by its unique name.
func (s *SQLiteStore) GetDataSourceByName(ctx context.Context, name string) (*model.DataSource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, options, created_at FROM data_sources WHERE name = ?`, name)
	return s.scanDataSource(row)
}

// ListDataSources returns all data sources ordered by name.
func (s *SQLiteStore) ListDataSources(ctx context.Context) ([]*model.DataSource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, options, created_at FROM data_sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}
	defer rows.Close()

	var sources []*model.DataSource
	for rows.Next() {
		ds := &model.DataSource{}
		var options string
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.Type, &options, &ds.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan data source: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &ds.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
		sources = append(sources, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate data sources: %w", err)
	}

	return sources, nil
}

// DeleteDataSource removes a data source by ID.
func (s *SQLiteStore) DeleteDataSource(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM data_sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete data source: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateJob inserts a new job record.
func (s *SQLiteStore) CreateJob(ctx context.Context, j *model.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (
			id, status, query, data_source_id, result_id, error, error_kind,
			created_at, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Status, j.Query, j.DataSourceID, j.ResultID, j.Error, j.ErrorKind,
		j.CreatedAt, j.StartedAt, j.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID. The polling client calls this each attempt to
// refresh job state.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	j := &model.Job{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, query, data_source_id, result_id, error, error_kind,
			created_at, started_at, finished_at
		FROM jobs WHERE id = ?`, id,
	).Scan(
		&j.ID, &j.Status, &j.Query, &j.DataSourceID, &j.ResultID, &j.Error, &j.ErrorKind,
		&j.CreatedAt, &j.StartedAt, &j.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// UpdateJobStatus updates the status of a job. For the started status it also
// sets started_at.
func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, id, status string) error {
	var result sql.Result
	var err error

	if status == model.JobStarted {
		result, err = s.db.ExecContext(ctx,
			"UPDATE jobs SET status = ?, started_at = ? WHERE id = ?",
			status, time.Now().UTC(), id,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			"UPDATE jobs SET status = ? WHERE id = ?",
			status, id,
		)
	}

	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateJob writes a job's terminal state: status, result reference, error
// detail, and timestamps.
func (s *SQLiteStore) UpdateJob(ctx context.Context, j *model.Job) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, result_id = ?, error = ?, error_kind = ?,
			started_at = COALESCE(?, started_at), finished_at = ?
		WHERE id = ?`,
		j.Status, j.ResultID, j.Error, j.ErrorKind, j.StartedAt, j.FinishedAt, j.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveQueryResult persists a tabular result under the given identifier.
func (s *SQLiteStore) SaveQueryResult(ctx context.Context, id string, result *model.QueryResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode query result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO query_results (id, data, created_at) VALUES (?, ?, ?)`,
		id, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert query result: %w", err)
	}
	return nil
}

// GetQueryResult resolves a result reference to the persisted tabular
// payload. Absence is reported as ErrNotFound so callers can distinguish a
// missing payload from a transport failure.
func (s *SQLiteStore) GetQueryResult(ctx context.Context, id string) (*model.QueryResult, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM query_results WHERE id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get query result: %w", err)
	}

	result := &model.QueryResult{}
	if err := json.Unmarshal([]byte(data), result); err != nil {
		return nil, fmt.Errorf("decode query result: %w", err)
	}
	return result, nil
}

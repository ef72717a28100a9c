package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/storage"
	"github.com/ringside-dev/ringside/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

var _ storage.Repository = &Repository{}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateQuery creates a new query record in the repository.
func (r *Repository) CreateQuery(ctx context.Context, q model.QueryRecord) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("invalid query record: %w", err)
	}

	var startedAt, endedAt *int64
	if q.StartedAt != nil {
		u := q.StartedAt.Unix()
		startedAt = &u
	}
	if q.EndedAt != nil {
		u := q.EndedAt.Unix()
		endedAt = &u
	}

	query := `
		INSERT INTO queries (
			id, kind, status, log_path,
			created_at, started_at, ended_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		q.ID,
		q.Kind,
		q.Status,
		q.LogPath,
		q.CreatedAt.Unix(),
		startedAt,
		endedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: queries.") {
			return fmt.Errorf("query already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert query: %w", err)
	}

	r.logger.Debugf("Created query in repository: %s", q.ID)
	return nil
}

// GetQuery retrieves a query record by ID.
func (r *Repository) GetQuery(ctx context.Context, id string) (*model.QueryRecord, error) {
	query := `
		SELECT id, kind, status, log_path, created_at, started_at, ended_at
		FROM queries
		WHERE id = ?
	`

	row := r.db.QueryRowContext(ctx, query, id)
	record, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("query %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query record: %w", err)
	}

	return &record, nil
}

// ListQueries returns all query records matching the filter, newest first.
func (r *Repository) ListQueries(ctx context.Context, filter storage.QueryFilter) ([]model.QueryRecord, error) {
	query := `SELECT id, kind, status, log_path, created_at, started_at, ended_at FROM queries`

	var conds []string
	var args []any
	if filter.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query records: %w", err)
	}
	defer rows.Close()

	var records []model.QueryRecord
	for rows.Next() {
		record, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// UpdateQueryStatus updates the status of an existing query record. The
// timestamps are only touched when set.
func (r *Repository) UpdateQueryStatus(ctx context.Context, id string, status model.Status, startedAt, endedAt *time.Time) error {
	sets := []string{"status = ?"}
	args := []any{status}
	if startedAt != nil {
		sets = append(sets, "started_at = ?")
		args = append(args, startedAt.Unix())
	}
	if endedAt != nil {
		sets = append(sets, "ended_at = ?")
		args = append(args, endedAt.Unix())
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE queries SET %s WHERE id = ?`, strings.Join(sets, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("could not update query: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("query %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Updated query status in repository: %s -> %s", id, status)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanRow(s scanner) (model.QueryRecord, error) {
	var record model.QueryRecord
	var createdAt, startedAt, endedAt sql.NullInt64

	err := s.Scan(
		&record.ID,
		&record.Kind,
		&record.Status,
		&record.LogPath,
		&createdAt,
		&startedAt,
		&endedAt,
	)
	if err != nil {
		return model.QueryRecord{}, err
	}

	if !createdAt.Valid {
		return model.QueryRecord{}, fmt.Errorf("created_at is required")
	}
	record.CreatedAt = timeFromUnix(createdAt.Int64)

	if startedAt.Valid {
		t := timeFromUnix(startedAt.Int64)
		record.StartedAt = &t
	}
	if endedAt.Valid {
		t := timeFromUnix(endedAt.Int64)
		record.EndedAt = &t
	}

	return record, nil
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }

// Package history records pipeline runs in SQLite so posts are not
// processed twice.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var ErrNotFound = errors.New("run not found")

type Run struct {
	ID        string
	PostID    string
	Subreddit string
	Title     string
	Status    Status
	VideoPath string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// Start records a new running entry for a post and returns it.
func (s *Store) Start(ctx context.Context, postID, subreddit, title string) (*Run, error) {
	if postID == "" {
		return nil, fmt.Errorf("post id is required")
	}

	now := s.now().UTC()
	run := &Run{
		ID:        uuid.NewString(),
		PostID:    postID,
		Subreddit: subreddit,
		Title:     title,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO runs (id, post_id, subreddit, title, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.PostID, run.Subreddit, run.Title, string(run.Status), now, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return run, nil
}

// Finish marks a run succeeded, or failed when runErr is non-nil.
func (s *Store) Finish(ctx context.Context, id, videoPath string, runErr error) error {
	status, message := StatusSucceeded, ""
	if runErr != nil {
		status, message = StatusFailed, runErr.Error()
	}

	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`UPDATE runs SET status = ?, video_path = ?, error = ?, updated_at = ? WHERE id = ?`,
			string(status), videoPath, message, s.now().UTC(), id)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Seen reports whether the post already produced a successful run. Failed
// runs do not count so the post can be retried.
func (s *Store) Seen(ctx context.Context, postID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM runs WHERE post_id = ? AND status = ?`,
		postID, string(StatusSucceeded)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query runs: %w", err)
	}
	return count > 0, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs first. A limit of zero or less returns
// every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := selectRuns + ` ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

const selectRuns = `SELECT id, post_id, subreddit, title, status, video_path, error, created_at, updated_at FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run    Run
		status string
	)
	if err := row.Scan(&run.ID, &run.PostID, &run.Subreddit, &run.Title, &status,
		&run.VideoPath, &run.Error, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	return &run, nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == 5 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if !isBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

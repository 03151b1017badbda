package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, metadata_path, status, started_at, finished_at, section_count, failed_count, error"

// CreateRun inserts a new run in the running state.
func (s *Store) CreateRun(ctx context.Context, id, metadataPath string, startedAt time.Time) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("run id is required")
	}
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, metadata_path, status, started_at) VALUES (?, ?, ?, ?)`,
		id, metadataPath, RunRunning, formatTime(startedAt),
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{
		ID:           id,
		MetadataPath: metadataPath,
		Status:       RunRunning,
		StartedAt:    startedAt.UTC(),
	}, nil
}

// RunOutcome is the final state written by FinishRun.
type RunOutcome struct {
	Status       RunStatus
	SectionCount int
	FailedCount  int
	Error        string
	FinishedAt   time.Time
}

// FinishRun records the terminal status of a run.
func (s *Store) FinishRun(ctx context.Context, id string, outcome RunOutcome) error {
	if !outcome.Status.IsTerminal() {
		return fmt.Errorf("finish run %s: status %q is not terminal", id, outcome.Status)
	}
	finished := outcome.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, section_count = ?, failed_count = ?, error = ? WHERE id = ?`,
		outcome.Status, nullableTime(&finished), outcome.SectionCount, outcome.FailedCount, nullableString(outcome.Error), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetRun fetches a run by id. It returns nil without error when the run
// does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// FindRunByPrefix resolves an abbreviated run id. It fails when the prefix
// matches more than one run.
func (s *Store) FindRunByPrefix(ctx context.Context, prefix string) (*Run, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' ORDER BY started_at LIMIT 2`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", prefix)
	}
}

// ListRuns returns runs ordered by start time, optionally filtered by status.
func (s *Store) ListRuns(ctx context.Context, statuses ...RunStatus) ([]*Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + runColumns + ` FROM runs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY started_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its sections.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		startedRaw  string
		finishedRaw sql.NullString
		errorMsg    sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.MetadataPath,
		&status,
		&startedRaw,
		&finishedRaw,
		&run.SectionCount,
		&run.FailedCount,
		&errorMsg,
	); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.Error = errorMsg.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

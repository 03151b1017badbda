package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const sectionColumns = "run_id, sequence, start_ms, end_ms, correction_ms, tiles, status, error, updated_at"

// RecordSection inserts a section as pending, replacing any earlier row with
// the same sequence.
func (s *Store) RecordSection(ctx context.Context, section Section) error {
	tiles := section.Tiles
	if len(tiles) == 0 {
		tiles = json.RawMessage("[]")
	}
	status := section.Status
	if status == "" {
		status = SectionPending
	}
	updated := section.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO sections (run_id, sequence, start_ms, end_ms, correction_ms, tiles, status, error, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(run_id, sequence) DO UPDATE SET
            start_ms = excluded.start_ms,
            end_ms = excluded.end_ms,
            correction_ms = excluded.correction_ms,
            tiles = excluded.tiles,
            status = excluded.status,
            error = excluded.error,
            updated_at = excluded.updated_at`,
		section.RunID, section.Sequence, section.StartMs, section.EndMs, section.CorrectionMs,
		string(tiles), status, nullableString(section.Error), formatTime(updated),
	); err != nil {
		return fmt.Errorf("record section %d: %w", section.Sequence, err)
	}
	return nil
}

// MarkSection updates the render status of a recorded section.
func (s *Store) MarkSection(ctx context.Context, runID string, sequence int, status SectionStatus, errMsg string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE sections SET status = ?, error = ?, updated_at = ? WHERE run_id = ? AND sequence = ?`,
		status, nullableString(errMsg), formatTime(time.Now()), runID, sequence,
	)
	if err != nil {
		return fmt.Errorf("mark section %d: %w", sequence, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark section %s/%d: %w", runID, sequence, ErrNotFound)
	}
	return nil
}

// ListSections returns the sections of a run ordered by sequence.
func (s *Store) ListSections(ctx context.Context, runID string) ([]*Section, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+sectionColumns+` FROM sections WHERE run_id = ? ORDER BY sequence`, runID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var sections []*Section
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	return sections, rows.Err()
}

// SectionCounts tallies a run's sections by status.
func (s *Store) SectionCounts(ctx context.Context, runID string) (map[SectionStatus]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT status, COUNT(1) FROM sections WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("count sections: %w", err)
	}
	defer rows.Close()
	counts := make(map[SectionStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan section count: %w", err)
		}
		counts[SectionStatus(status)] = count
	}
	return counts, rows.Err()
}

func scanSection(scanner interface{ Scan(dest ...any) error }) (*Section, error) {
	var (
		section    Section
		tiles      string
		status     string
		errorMsg   sql.NullString
		updatedRaw string
	)
	if err := scanner.Scan(
		&section.RunID,
		&section.Sequence,
		&section.StartMs,
		&section.EndMs,
		&section.CorrectionMs,
		&tiles,
		&status,
		&errorMsg,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	section.Tiles = json.RawMessage(tiles)
	section.Status = SectionStatus(status)
	section.Error = errorMsg.String
	if updated, err := parseTimeString(updatedRaw); err == nil {
		section.UpdatedAt = updated
	}
	return &section, nil
}

package db

import (
	"fmt"
	"time"
)

// RunRecord is one pipeline invocation as stored in the runs table.
type RunRecord struct {
	RunID       int64
	URL         string
	Title       string
	Language    string
	PdfPath     string
	PageCount   int
	ImageCount  int
	FailedCount int
	Status      string
	ErrorKind   string
	CreatedAt   time.Time
}

// ImageRecord is one image outcome within a run.
type ImageRecord struct {
	ImageID   int64
	RunID     int64
	Index     int
	URL       string
	Status    string
	ErrorKind string
	SizeBytes int64
	Hash      string
}

// RecordRun inserts a run row and returns the run_id.
func (db *DB) RecordRun(record RunRecord) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (url, title, language, pdf_path, page_count, image_count, failed_count, status, error_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.URL, record.Title, record.Language, record.PdfPath, record.PageCount,
		record.ImageCount, record.FailedCount, record.Status, record.ErrorKind)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// InsertRunImage records one image outcome for a run.
func (db *DB) InsertRunImage(record ImageRecord) error {
	_, err := db.Exec(`
		INSERT INTO run_images (run_id, idx, url, status, error_kind, size_bytes, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.RunID, record.Index, record.URL, record.Status, record.ErrorKind,
		record.SizeBytes, record.Hash)
	if err != nil {
		return fmt.Errorf("failed to record run image: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT run_id, url, title, language, pdf_path, page_count, image_count, failed_count, status, error_kind, created_at
		FROM runs
		ORDER BY created_at DESC, run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var record RunRecord
		if err := rows.Scan(&record.RunID, &record.URL, &record.Title, &record.Language,
			&record.PdfPath, &record.PageCount, &record.ImageCount, &record.FailedCount,
			&record.Status, &record.ErrorKind, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return records, nil
}

// GetRunImages returns the per-image outcomes of a run in index order.
func (db *DB) GetRunImages(runID int64) ([]ImageRecord, error) {
	rows, err := db.Query(`
		SELECT image_id, run_id, idx, url, status, error_kind, size_bytes, content_hash
		FROM run_images
		WHERE run_id = ?
		ORDER BY idx
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run images: %w", err)
	}
	defer rows.Close()

	var records []ImageRecord
	for rows.Next() {
		var record ImageRecord
		if err := rows.Scan(&record.ImageID, &record.RunID, &record.Index, &record.URL,
			&record.Status, &record.ErrorKind, &record.SizeBytes, &record.Hash); err != nil {
			return nil, fmt.Errorf("failed to scan run image: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run images: %w", err)
	}
	return records, nil
}

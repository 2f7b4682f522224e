package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vbonduro/skintell/internal/domain"
)

type ScanStore struct {
	db *sql.DB
}

func NewScanStore(db *sql.DB) *ScanStore {
	return &ScanStore{db: db}
}

// Create records a completed scan. createdAt is stored in UTC.
func (s *ScanStore) Create(ctx context.Context, storageKey, mimeType, analysis string, createdAt time.Time) (*domain.Scan, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (storage_key, mime_type, analysis, created_at) VALUES (?, ?, ?, ?)
	`, storageKey, mimeType, analysis, createdAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create scan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID returns nil, nil when no scan has the given id.
func (s *ScanStore) GetByID(ctx context.Context, id int64) (*domain.Scan, error) {
	scan := &domain.Scan{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, storage_key, mime_type, analysis, created_at FROM scans WHERE id = ?
	`, id).Scan(&scan.ID, &scan.StorageKey, &scan.MimeType, &scan.Analysis, &scan.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	return scan, nil
}

// ListRecent returns up to limit scans, newest first.
func (s *ScanStore) ListRecent(ctx context.Context, limit int) ([]*domain.Scan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, storage_key, mime_type, analysis, created_at FROM scans
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scans []*domain.Scan
	for rows.Next() {
		scan := &domain.Scan{}
		if err := rows.Scan(&scan.ID, &scan.StorageKey, &scan.MimeType, &scan.Analysis, &scan.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, scan)
	}

	return scans, rows.Err()
}

// CreatedSince returns the creation times of every scan at or after since,
// newest first.
func (s *ScanStore) CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at FROM scans WHERE created_at >= ? ORDER BY created_at DESC
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list scan times: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		times = append(times, t)
	}

	return times, rows.Err()
}

func (s *ScanStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PutAudio durably persists an uploaded audio record and returns its id.
// An empty id is assigned before insert.
func (s *Store) PutAudio(ctx context.Context, rec *UploadedAudio) (string, error) {
	if rec == nil {
		return "", errors.New("audio record is nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO audio_files (
            id, filename, stored_path, size_bytes, duration_seconds, format, uploaded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Filename,
		rec.StoredPath,
		rec.SizeBytes,
		rec.DurationSeconds,
		rec.Format,
		rec.UploadedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert audio: %w", err)
	}
	return rec.ID, nil
}

// GetAudio fetches an uploaded audio record by id.
func (s *Store) GetAudio(ctx context.Context, id string) (*UploadedAudio, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, filename, stored_path, size_bytes, duration_seconds, format, uploaded_at
         FROM audio_files WHERE id = ?`,
		id,
	)

	var (
		rec         UploadedAudio
		uploadedRaw string
	)
	err := row.Scan(
		&rec.ID,
		&rec.Filename,
		&rec.StoredPath,
		&rec.SizeBytes,
		&rec.DurationSeconds,
		&rec.Format,
		&uploadedRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audio: %w", err)
	}

	if uploaded, err := parseTimeString(uploadedRaw); err == nil {
		rec.UploadedAt = uploaded
	}
	return &rec, nil
}

// DeleteAudio removes an uploaded audio record. Transcripts derived from it
// stay addressable for history.
func (s *Store) DeleteAudio(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audio_files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete audio: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

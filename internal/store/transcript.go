package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const transcriptColumns = "id, audio_id, text, language, confidence, processing_time_seconds, edited, edited_at, created_at"

// PutTranscript persists a new transcript version and returns its id.
// Existing versions for the same audio are never mutated.
func (s *Store) PutTranscript(ctx context.Context, rec *Transcript) (string, error) {
	if rec == nil {
		return "", errors.New("transcript record is nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO transcripts (
            id, audio_id, text, language, confidence,
            processing_time_seconds, edited, edited_at, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.AudioID,
		rec.Text,
		rec.Language,
		rec.Confidence,
		rec.ProcessingTimeSeconds,
		boolToInt(rec.Edited),
		nullableTime(rec.EditedAt),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert transcript: %w", err)
	}
	return rec.ID, nil
}

// GetTranscript fetches a transcript by id.
func (s *Store) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transcriptColumns+` FROM transcripts WHERE id = ?`, id)
	rec, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return rec, nil
}

// ListTranscripts returns every transcript version for an audio id ordered by
// creation time, most recent last.
func (s *Store) ListTranscripts(ctx context.Context, audioID string) ([]*Transcript, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+transcriptColumns+` FROM transcripts WHERE audio_id = ? ORDER BY created_at, rowid`,
		audioID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var recs []*Transcript
	for rows.Next() {
		rec, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// LatestTranscript returns the authoritative transcript for an audio id.
func (s *Store) LatestTranscript(ctx context.Context, audioID string) (*Transcript, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+transcriptColumns+` FROM transcripts
         WHERE audio_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		audioID,
	)
	rec, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest transcript: %w", err)
	}
	return rec, nil
}

// UpdateTranscriptText applies a user edit to a transcript. This is the only
// mutation path for transcript text.
func (s *Store) UpdateTranscriptText(ctx context.Context, id, text string, editedAt time.Time) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE transcripts SET text = ?, edited = 1, edited_at = ? WHERE id = ?`,
		text,
		editedAt.UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update transcript text: %w", err)
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

func scanTranscript(scanner interface{ Scan(dest ...any) error }) (*Transcript, error) {
	var (
		rec         Transcript
		edited      int
		editedAtRaw sql.NullString
		createdRaw  string
	)

	if err := scanner.Scan(
		&rec.ID,
		&rec.AudioID,
		&rec.Text,
		&rec.Language,
		&rec.Confidence,
		&rec.ProcessingTimeSeconds,
		&edited,
		&editedAtRaw,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	rec.Edited = edited != 0
	if editedAtRaw.Valid {
		if editedAt, err := parseTimeString(editedAtRaw.String); err == nil {
			rec.EditedAt = &editedAt
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	return &rec, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

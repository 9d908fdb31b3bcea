package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveWorkflowState durably persists the workflow pointer for a session.
// Called after every stage transition so a restart resumes where it left off.
func (s *Store) SaveWorkflowState(ctx context.Context, rec *StateRecord) error {
	if rec == nil {
		return errors.New("state record is nil")
	}
	rec.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO workflow_states (session_id, current_stage, audio_id, transcript_id, post_set_id, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (session_id) DO UPDATE SET
            current_stage = excluded.current_stage,
            audio_id = excluded.audio_id,
            transcript_id = excluded.transcript_id,
            post_set_id = excluded.post_set_id,
            updated_at = excluded.updated_at`,
		rec.SessionID,
		rec.CurrentStage,
		nullableString(rec.AudioID),
		nullableString(rec.TranscriptID),
		nullableString(rec.PostSetID),
		rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save workflow state: %w", err)
	}
	return nil
}

// LoadWorkflowState fetches the persisted workflow pointer for a session.
func (s *Store) LoadWorkflowState(ctx context.Context, sessionID string) (*StateRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT session_id, current_stage, audio_id, transcript_id, post_set_id, updated_at
         FROM workflow_states WHERE session_id = ?`,
		sessionID,
	)

	var (
		rec          StateRecord
		audioID      sql.NullString
		transcriptID sql.NullString
		postSetID    sql.NullString
		updatedRaw   string
	)
	err := row.Scan(&rec.SessionID, &rec.CurrentStage, &audioID, &transcriptID, &postSetID, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load workflow state: %w", err)
	}

	rec.AudioID = audioID.String
	rec.TranscriptID = transcriptID.String
	rec.PostSetID = postSetID.String
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return &rec, nil
}

// ClearWorkflowState removes the persisted workflow pointer for a session.
// Missing state is not an error; reset is idempotent.
func (s *Store) ClearWorkflowState(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM workflow_states WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("clear workflow state: %w", err)
	}
	return nil
}

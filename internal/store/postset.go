package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PutPostSet persists a generated post set and its platform entries in one
// transaction, returning the set id.
func (s *Store) PutPostSet(ctx context.Context, rec *PostSet) (string, error) {
	if rec == nil {
		return "", errors.New("post set record is nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin post set tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO post_sets (id, transcript_id, tone, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		rec.ID,
		rec.TranscriptID,
		rec.Tone,
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert post set: %w", err)
	}

	for platform, content := range rec.PlatformPosts {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO platform_posts (post_set_id, platform, content, updated_at)
             VALUES (?, ?, ?, ?)`,
			rec.ID,
			platform,
			content,
			rec.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return "", fmt.Errorf("insert platform post %s: %w", platform, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit post set: %w", err)
	}
	return rec.ID, nil
}

// GetPostSet fetches a post set with all its platform entries.
func (s *Store) GetPostSet(ctx context.Context, id string) (*PostSet, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, transcript_id, tone, created_at, updated_at FROM post_sets WHERE id = ?`,
		id,
	)

	var (
		rec        PostSet
		createdRaw string
		updatedRaw string
	)
	err := row.Scan(&rec.ID, &rec.TranscriptID, &rec.Tone, &createdRaw, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post set: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT platform, content FROM platform_posts WHERE post_set_id = ? ORDER BY platform`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("get platform posts: %w", err)
	}
	defer rows.Close()

	rec.PlatformPosts = make(map[string]string)
	for rows.Next() {
		var platform, content string
		if err := rows.Scan(&platform, &content); err != nil {
			return nil, err
		}
		rec.PlatformPosts[platform] = content
	}
	return &rec, rows.Err()
}

// UpdatePlatformPost replaces a single platform's entry in a post set. Sibling
// platform rows are untouched, so concurrent updates to different platforms of
// the same set never conflict.
func (s *Store) UpdatePlatformPost(ctx context.Context, postSetID, platform, content string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if _, err := s.GetPostSet(ctx, postSetID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO platform_posts (post_set_id, platform, content, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (post_set_id, platform)
         DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		postSetID,
		platform,
		content,
		now,
	)
	if err != nil {
		return fmt.Errorf("update platform post: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE post_sets SET updated_at = ? WHERE id = ?`,
		now,
		postSetID,
	)
	if err != nil {
		return fmt.Errorf("touch post set: %w", err)
	}
	return nil
}

// DeletePostSet removes a post set and its platform entries.
func (s *Store) DeletePostSet(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM post_sets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post set: %w", err)
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

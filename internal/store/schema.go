package store

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS audio_files (
        id TEXT PRIMARY KEY,
        filename TEXT NOT NULL,
        stored_path TEXT NOT NULL,
        size_bytes INTEGER NOT NULL,
        duration_seconds REAL NOT NULL,
        format TEXT NOT NULL,
        uploaded_at TEXT NOT NULL
    )`,
	// audio_id is not a foreign key: transcripts stay addressable for
	// history after the source audio is cleaned up.
	`CREATE TABLE IF NOT EXISTS transcripts (
        id TEXT PRIMARY KEY,
        audio_id TEXT NOT NULL,
        text TEXT NOT NULL,
        language TEXT NOT NULL,
        confidence REAL NOT NULL,
        processing_time_seconds REAL NOT NULL,
        edited INTEGER NOT NULL DEFAULT 0,
        edited_at TEXT,
        created_at TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_transcripts_audio
        ON transcripts (audio_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS post_sets (
        id TEXT PRIMARY KEY,
        transcript_id TEXT NOT NULL,
        tone TEXT NOT NULL,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    )`,
	// One row per platform key. Replacing a single platform's post is a
	// row-level write and never touches sibling platforms.
	`CREATE TABLE IF NOT EXISTS platform_posts (
        post_set_id TEXT NOT NULL REFERENCES post_sets(id) ON DELETE CASCADE,
        platform TEXT NOT NULL,
        content TEXT NOT NULL,
        updated_at TEXT NOT NULL,
        PRIMARY KEY (post_set_id, platform)
    )`,
	`CREATE TABLE IF NOT EXISTS workflow_states (
        session_id TEXT PRIMARY KEY,
        current_stage TEXT NOT NULL,
        audio_id TEXT,
        transcript_id TEXT,
        post_set_id TEXT,
        updated_at TEXT NOT NULL
    )`,
}

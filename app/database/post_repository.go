package database

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/avoronov/xscout/app/sources"
)

// SQLPostRepository handles database operations for archived posts
type SQLPostRepository struct {
	db *DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *DB) *SQLPostRepository {
	return &SQLPostRepository{db: db}
}

// InsertPosts archives the posts of a run in a single transaction. A
// unique index on (run_id, content_hash) backs OR IGNORE, so a post
// appearing twice in the payload is stored once per run.
func (r *SQLPostRepository) InsertPosts(runID string, posts []sources.Post) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO posts (id, run_id, source, author, text, url, posted_at, score, metadata, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, post := range posts {
		metadata := "{}"
		if len(post.Metadata) > 0 {
			data, err := json.Marshal(post.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal metadata: %w", err)
			}
			metadata = string(data)
		}

		_, err = stmt.Exec(
			uuid.New().String(), runID, post.Source, post.Author, post.Text,
			post.URL, post.Timestamp.UTC(), post.Score, metadata, post.ContentHash,
		)
		if err != nil {
			return fmt.Errorf("failed to insert post: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetPosts returns the archived posts of a run, newest first
func (r *SQLPostRepository) GetPosts(runID string) ([]Post, error) {
	rows, err := r.db.Query(`
		SELECT id, run_id, source, author, text, url, posted_at, score, metadata, content_hash, created_at
		FROM posts
		WHERE run_id = ?
		ORDER BY posted_at DESC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var post Post
		var metadata string
		err := rows.Scan(
			&post.ID, &post.RunID, &post.Source, &post.Author, &post.Text,
			&post.URL, &post.PostedAt, &post.Score, &metadata, &post.ContentHash,
			&post.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}

		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &post.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}

		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

// GetPostCount returns the number of archived posts for a run
func (r *SQLPostRepository) GetPostCount(runID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM posts WHERE run_id = ?", runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get post count: %w", err)
	}
	return count, nil
}

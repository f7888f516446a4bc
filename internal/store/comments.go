package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"trackwave/internal/models"
)

// AddComment attaches a comment to a track. Banned users are rejected.
func (s *Store) AddComment(ctx context.Context, userID, trackID int64, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text", ErrValidation)
	}

	var banned bool
	err := s.db.QueryRowContext(ctx, `
		SELECT banned FROM users WHERE id = $1
	`, userID).Scan(&banned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check comment author: %w", err)
	}
	if banned {
		return nil, ErrUserBanned
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tracks WHERE id = $1)`, trackID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check track: %w", err)
	}
	if !exists {
		return nil, ErrTrackNotFound
	}

	comment := models.Comment{UserID: userID, TrackID: trackID, Text: text}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO comments (user_id, track_id, text, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, userID, trackID, text, time.Now().UTC()).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &comment, nil
}

// CommentsByTrack returns a track's comments, oldest first.
func (s *Store) CommentsByTrack(ctx context.Context, trackID int64) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, track_id, text, created_at
		FROM comments
		WHERE track_id = $1
		ORDER BY created_at ASC, id ASC
	`, trackID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.UserID, &c.TrackID, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

// EditComment replaces the comment text. Author only.
func (s *Store) EditComment(ctx context.Context, actorID, commentID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: comment text", ErrValidation)
	}

	var authorID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM comments WHERE id = $1
	`, commentID).Scan(&authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCommentNotFound
	}
	if err != nil {
		return fmt.Errorf("get comment: %w", err)
	}
	if authorID != actorID {
		return ErrPermissionDenied
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE comments SET text = $2 WHERE id = $1
	`, commentID, text); err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

// DeleteComment removes a comment. Author or admin only.
func (s *Store) DeleteComment(ctx context.Context, actorID, commentID int64) error {
	var authorID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM comments WHERE id = $1
	`, commentID).Scan(&authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCommentNotFound
	}
	if err != nil {
		return fmt.Errorf("get comment: %w", err)
	}

	if err := s.requireArtistOrAdmin(ctx, actorID, authorID); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM comments WHERE id = $1
	`, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"mini-social-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByPost(ctx context.Context, postID string) ([]*domain.Comment, error)
}

type commentDoc struct {
	ID        string    `json:"_id"`
	Rev       string    `json:"_rev,omitempty"`
	Type      string    `json:"type"`
	CommentID string    `json:"comment_id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type commentRepository struct {
	db *kivik.DB
}

func NewCommentRepository(client *kivik.Client, dbName string) CommentRepository {
	return &commentRepository{
		db: client.DB(dbName),
	}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	doc := commentDoc{
		ID:        fmt.Sprintf("comment:%s", comment.ID),
		Type:      docTypeComment,
		CommentID: comment.ID,
		PostID:    comment.PostID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}

	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	return nil
}

// ListByPost returns the comments of a post newest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]*domain.Comment, error) {
	selector := map[string]interface{}{
		"type":    docTypeComment,
		"post_id": postID,
	}

	comments := []*domain.Comment{}
	err := findAll(ctx, r.db, selector, scanInto(func(doc *commentDoc) {
		comments = append(comments, &domain.Comment{
			ID:        doc.CommentID,
			PostID:    doc.PostID,
			AuthorID:  doc.AuthorID,
			Content:   doc.Content,
			CreatedAt: doc.CreatedAt,
		})
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	slices.SortFunc(comments, func(a, b *domain.Comment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return comments, nil
}

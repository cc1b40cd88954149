package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mini-social-server/internal/domain"
	"mini-social-server/internal/repository"

	"github.com/google/uuid"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository, userRepo repository.UserRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
	}
}

func (s *CommentService) Create(ctx context.Context, authorID string, req *domain.CreateCommentRequest) (*domain.CommentResponse, error) {
	postID := strings.TrimSpace(req.PostID)
	content := strings.TrimSpace(req.Content)
	if postID == "" || content == "" {
		return nil, ErrMissingField
	}

	if _, err := s.postRepo.FindByID(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	comment := &domain.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	authors, err := summaries(ctx, s.userRepo, []string{authorID})
	if err != nil {
		return nil, err
	}

	return commentResponse(comment, authors[authorID]), nil
}

func (s *CommentService) ListByPost(ctx context.Context, postID string) ([]*domain.CommentResponse, error) {
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}

	authors, err := summaries(ctx, s.userRepo, ids)
	if err != nil {
		return nil, err
	}

	responses := make([]*domain.CommentResponse, 0, len(comments))
	for _, c := range comments {
		responses = append(responses, commentResponse(c, authors[c.AuthorID]))
	}

	return responses, nil
}

func commentResponse(c *domain.Comment, author *domain.UserSummary) *domain.CommentResponse {
	return &domain.CommentResponse{
		ID:        c.ID,
		PostID:    c.PostID,
		Content:   c.Content,
		Author:    author,
		CreatedAt: c.CreatedAt,
	}
}

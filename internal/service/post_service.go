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

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
	}
}

func (s *PostService) Create(ctx context.Context, authorID string, req *domain.CreatePostRequest) (*domain.PostResponse, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrMissingField
	}

	now := time.Now().UTC()
	post := &domain.Post{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Content:   content,
		Likes:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return s.toResponse(ctx, post)
}

func (s *PostService) List(ctx context.Context) ([]*domain.PostResponse, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
	}

	authors, err := summaries(ctx, s.userRepo, ids)
	if err != nil {
		return nil, err
	}

	responses := make([]*domain.PostResponse, 0, len(posts))
	for _, p := range posts {
		responses = append(responses, postResponse(p, authors[p.AuthorID]))
	}

	return responses, nil
}

func (s *PostService) GetByID(ctx context.Context, id string) (*domain.PostResponse, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	return s.toResponse(ctx, post)
}

// ToggleLike likes the post for userID, or removes the like if present.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (*domain.PostResponse, error) {
	post, err := s.postRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.toResponse(ctx, post)
}

func (s *PostService) toResponse(ctx context.Context, post *domain.Post) (*domain.PostResponse, error) {
	authors, err := summaries(ctx, s.userRepo, []string{post.AuthorID})
	if err != nil {
		return nil, err
	}
	return postResponse(post, authors[post.AuthorID]), nil
}

func postResponse(p *domain.Post, author *domain.UserSummary) *domain.PostResponse {
	likes := p.Likes
	if likes == nil {
		likes = []string{}
	}
	return &domain.PostResponse{
		ID:         p.ID,
		Content:    p.Content,
		Author:     author,
		Likes:      likes,
		LikesCount: len(likes),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

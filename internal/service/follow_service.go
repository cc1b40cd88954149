package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mini-social-server/internal/domain"
	"mini-social-server/internal/repository"
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
	}
}

func (s *FollowService) Follow(ctx context.Context, followerID, followingID string) error {
	if followingID == "" {
		return ErrMissingField
	}
	if followerID == followingID {
		return ErrSelfFollow
	}

	if _, err := s.userRepo.FindByID(ctx, followingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	err := s.followRepo.Create(ctx, &domain.Follow{
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAlreadyFollowing
		}
		return err
	}

	return nil
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID string) error {
	if err := s.followRepo.Delete(ctx, followerID, followingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFollowing
		}
		return err
	}
	return nil
}

func (s *FollowService) Followers(ctx context.Context, userID string) ([]*domain.UserSummary, error) {
	follows, err := s.followRepo.ListFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(follows))
	for _, f := range follows {
		ids = append(ids, f.FollowerID)
	}
	return s.resolve(ctx, ids)
}

func (s *FollowService) Following(ctx context.Context, userID string) ([]*domain.UserSummary, error) {
	follows, err := s.followRepo.ListFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(follows))
	for _, f := range follows {
		ids = append(ids, f.FollowingID)
	}
	return s.resolve(ctx, ids)
}

func (s *FollowService) resolve(ctx context.Context, ids []string) ([]*domain.UserSummary, error) {
	users, err := summaries(ctx, s.userRepo, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u := users[id]; u != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

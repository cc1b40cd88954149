package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mini-social-server/internal/domain"
	"mini-social-server/internal/repository"
)

type UserService struct {
	userRepo   repository.UserRepository
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
}

func NewUserService(userRepo repository.UserRepository, postRepo repository.PostRepository, followRepo repository.FollowRepository) *UserService {
	return &UserService{
		userRepo:   userRepo,
		postRepo:   postRepo,
		followRepo: followRepo,
	}
}

func (s *UserService) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return s.profile(ctx, user)
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	user, err := s.userRepo.Update(ctx, id, func(u *domain.User) {
		if req.DisplayName != nil {
			u.DisplayName = strings.TrimSpace(*req.DisplayName)
		}
		if req.Bio != nil {
			u.Bio = strings.TrimSpace(*req.Bio)
		}
		if req.ProfilePic != nil {
			u.ProfilePic = strings.TrimSpace(*req.ProfilePic)
		}
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return s.profile(ctx, user)
}

func (s *UserService) profile(ctx context.Context, user *domain.User) (*domain.Profile, error) {
	followers, err := s.followRepo.CountFollowers(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	following, err := s.followRepo.CountFollowing(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	posts, err := s.postRepo.CountByAuthor(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &domain.Profile{
		ID:             user.ID,
		Username:       user.Username,
		DisplayName:    user.DisplayName,
		Bio:            user.Bio,
		ProfilePic:     user.ProfilePic,
		FollowersCount: followers,
		FollowingCount: following,
		PostsCount:     posts,
	}, nil
}

// summaries resolves user ids to summaries, looking each id up once.
// Accounts that no longer exist are left out of the map.
func summaries(ctx context.Context, userRepo repository.UserRepository, ids []string) (map[string]*domain.UserSummary, error) {
	out := make(map[string]*domain.UserSummary, len(ids))
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}

		user, err := userRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				out[id] = nil
				continue
			}
			return nil, fmt.Errorf("failed to resolve user %s: %w", id, err)
		}
		out[id] = user.Summary()
	}
	return out, nil
}

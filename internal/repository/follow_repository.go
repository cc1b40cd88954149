package repository

import (
	"context"
	"fmt"
	"time"

	"mini-social-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type FollowRepository interface {
	Create(ctx context.Context, follow *domain.Follow) error
	Delete(ctx context.Context, followerID, followingID string) error
	ListFollowers(ctx context.Context, userID string) ([]*domain.Follow, error)
	ListFollowing(ctx context.Context, userID string) ([]*domain.Follow, error)
	CountFollowers(ctx context.Context, userID string) (int, error)
	CountFollowing(ctx context.Context, userID string) (int, error)
}

type followDoc struct {
	ID          string    `json:"_id"`
	Rev         string    `json:"_rev,omitempty"`
	Type        string    `json:"type"`
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type followRepository struct {
	db *kivik.DB
}

func NewFollowRepository(client *kivik.Client, dbName string) FollowRepository {
	return &followRepository{
		db: client.DB(dbName),
	}
}

// One document per (follower, following) pair, so a duplicate follow is a
// revision conflict.
func followDocID(followerID, followingID string) string {
	return fmt.Sprintf("follow:%s:%s", followerID, followingID)
}

func (r *followRepository) Create(ctx context.Context, follow *domain.Follow) error {
	doc := followDoc{
		ID:          followDocID(follow.FollowerID, follow.FollowingID),
		Type:        docTypeFollow,
		FollowerID:  follow.FollowerID,
		FollowingID: follow.FollowingID,
		CreatedAt:   follow.CreatedAt,
	}

	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		if isConflict(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create follow: %w", err)
	}

	follow.ID = doc.ID
	return nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followingID string) error {
	docID := followDocID(followerID, followingID)

	row := r.db.Get(ctx, docID)
	var doc followDoc
	if err := row.ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get follow for delete: %w", err)
	}

	if _, err := r.db.Delete(ctx, docID, doc.Rev); err != nil {
		if isNotFound(err) || isConflict(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete follow: %w", err)
	}

	return nil
}

func (r *followRepository) ListFollowers(ctx context.Context, userID string) ([]*domain.Follow, error) {
	return r.list(ctx, "following_id", userID)
}

func (r *followRepository) ListFollowing(ctx context.Context, userID string) ([]*domain.Follow, error) {
	return r.list(ctx, "follower_id", userID)
}

func (r *followRepository) CountFollowers(ctx context.Context, userID string) (int, error) {
	return countView(ctx, r.db, viewFollowsByFollowing, userID)
}

func (r *followRepository) CountFollowing(ctx context.Context, userID string) (int, error) {
	return countView(ctx, r.db, viewFollowsByFollower, userID)
}

func (r *followRepository) list(ctx context.Context, field, userID string) ([]*domain.Follow, error) {
	selector := map[string]interface{}{
		"type": docTypeFollow,
		field:  userID,
	}

	follows := []*domain.Follow{}
	err := findAll(ctx, r.db, selector, scanInto(func(doc *followDoc) {
		follows = append(follows, &domain.Follow{
			ID:          doc.ID,
			FollowerID:  doc.FollowerID,
			FollowingID: doc.FollowingID,
			CreatedAt:   doc.CreatedAt,
		})
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to query follows: %w", err)
	}

	return follows, nil
}

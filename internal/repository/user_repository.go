package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mini-social-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

// RefreshStore holds the single active refresh token of each user.
// Writing a new value, or nil, revokes whatever was stored before.
type RefreshStore interface {
	SetRefreshToken(ctx context.Context, userID string, token *string) error
}

type UserRepository interface {
	RefreshStore
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByLoginKey(ctx context.Context, key string) (*domain.User, error)
	Update(ctx context.Context, id string, mutate func(*domain.User)) (*domain.User, error)
}

type userDoc struct {
	ID           string    `json:"_id"`
	Rev          string    `json:"_rev,omitempty"`
	Type         string    `json:"type"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	RefreshToken *string   `json:"refresh_token"`
	DisplayName  string    `json:"display_name"`
	Bio          string    `json:"bio"`
	ProfilePic   string    `json:"profile_pic"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// reservationDoc claims a unique username or email. CouchDB rejects a second
// PUT of the same _id without a revision, which makes the claim atomic.
type reservationDoc struct {
	ID     string `json:"_id"`
	Rev    string `json:"_rev,omitempty"`
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type userRepository struct {
	db *kivik.DB
}

func NewUserRepository(client *kivik.Client, dbName string) UserRepository {
	return &userRepository{
		db: client.DB(dbName),
	}
}

func userDocID(id string) string { return fmt.Sprintf("user:%s", id) }
func usernameKey(username string) string { return fmt.Sprintf("username:%s", username) }
func emailKey(email string) string { return fmt.Sprintf("email:%s", email) }
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
func NormalizeUsername(name string) string { return strings.TrimSpace(name) }

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	user.Username = NormalizeUsername(user.Username)
	user.Email = NormalizeEmail(user.Email)

	emailRev, err := r.reserve(ctx, emailKey(user.Email), user.ID)
	if err != nil {
		return err
	}

	usernameRev, err := r.reserve(ctx, usernameKey(user.Username), user.ID)
	if err != nil {
		r.release(ctx, emailKey(user.Email), emailRev)
		return err
	}

	doc := toUserDoc(user)
	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		r.release(ctx, emailKey(user.Email), emailRev)
		r.release(ctx, usernameKey(user.Username), usernameRev)
		if isConflict(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) reserve(ctx context.Context, key, userID string) (string, error) {
	rev, err := r.db.Put(ctx, key, reservationDoc{
		ID:     key,
		Type:   docTypeReservation,
		UserID: userID,
	})
	if err != nil {
		if isConflict(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("failed to reserve %s: %w", key, err)
	}
	return rev, nil
}

// release undoes a reservation after a failed registration. It runs even
// when the request context is already cancelled.
func (r *userRepository) release(ctx context.Context, key, rev string) {
	_, _ = r.db.Delete(context.WithoutCancel(ctx), key, rev)
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	doc, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *userRepository) get(ctx context.Context, id string) (*userDoc, error) {
	row := r.db.Get(ctx, userDocID(id))

	var doc userDoc
	if err := row.ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return &doc, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findByReservation(ctx, usernameKey(NormalizeUsername(username)))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByReservation(ctx, emailKey(NormalizeEmail(email)))
}

// FindByLoginKey matches the key against usernames exactly, then against
// emails case-insensitively.
func (r *userRepository) FindByLoginKey(ctx context.Context, key string) (*domain.User, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrNotFound
	}

	user, err := r.FindByUsername(ctx, key)
	if !errors.Is(err, ErrNotFound) {
		return user, err
	}

	return r.FindByEmail(ctx, key)
}

func (r *userRepository) findByReservation(ctx context.Context, key string) (*domain.User, error) {
	row := r.db.Get(ctx, key)

	var res reservationDoc
	if err := row.ScanDoc(&res); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up %s: %w", key, err)
	}

	return r.FindByID(ctx, res.UserID)
}

// Update applies mutate to the latest revision of the user and writes it
// back, re-reading and re-applying when another writer got there first.
func (r *userRepository) Update(ctx context.Context, id string, mutate func(*domain.User)) (*domain.User, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		doc, err := r.get(ctx, id)
		if err != nil {
			return nil, err
		}

		user := doc.toDomain()
		mutate(user)
		user.UpdatedAt = time.Now().UTC()

		next := toUserDoc(user)
		next.Rev = doc.Rev
		// Identity fields are owned by their reservations.
		next.Username = doc.Username
		next.Email = doc.Email

		if _, err := r.db.Put(ctx, next.ID, next); err != nil {
			if isConflict(err) {
				continue
			}
			return nil, fmt.Errorf("failed to update user: %w", err)
		}

		return next.toDomain(), nil
	}

	return nil, fmt.Errorf("failed to update user %s: too many concurrent writers", id)
}

func (r *userRepository) SetRefreshToken(ctx context.Context, userID string, token *string) error {
	_, err := r.Update(ctx, userID, func(u *domain.User) {
		u.RefreshToken = token
	})
	return err
}

func toUserDoc(u *domain.User) *userDoc {
	return &userDoc{
		ID:           userDocID(u.ID),
		Type:         docTypeUser,
		UserID:       u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		RefreshToken: u.RefreshToken,
		DisplayName:  u.DisplayName,
		Bio:          u.Bio,
		ProfilePic:   u.ProfilePic,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:           d.UserID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		RefreshToken: d.RefreshToken,
		DisplayName:  d.DisplayName,
		Bio:          d.Bio,
		ProfilePic:   d.ProfilePic,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

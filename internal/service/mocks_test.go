package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"mini-social-server/internal/domain"
	"mini-social-server/internal/repository"
	"mini-social-server/pkg/jwt"

	"github.com/sirupsen/logrus/hooks/test"
)

type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User

	createErr     error
	findErr       error
	setRefreshErr error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func clone(u *domain.User) *domain.User {
	c := *u
	if u.RefreshToken != nil {
		t := *u.RefreshToken
		c.RefreshToken = &t
	}
	return &c
}

func (m *mockUserRepository) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}

	user.Username = repository.NormalizeUsername(user.Username)
	user.Email = repository.NormalizeEmail(user.Email)
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}

	m.users[user.ID] = clone(user)
	return nil
}

func (m *mockUserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}
	if u, ok := m.users[id]; ok {
		return clone(u), nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == repository.NormalizeUsername(username) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == repository.NormalizeEmail(email) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) FindByLoginKey(ctx context.Context, key string) (*domain.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if u, err := m.FindByUsername(ctx, key); err == nil {
		return u, nil
	}
	return m.FindByEmail(ctx, key)
}

func (m *mockUserRepository) Update(_ context.Context, id string, mutate func(*domain.User)) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	next := clone(u)
	mutate(next)
	next.Username, next.Email = u.Username, u.Email
	m.users[id] = next
	return clone(next), nil
}

func (m *mockUserRepository) SetRefreshToken(ctx context.Context, userID string, token *string) error {
	if m.setRefreshErr != nil {
		return m.setRefreshErr
	}
	_, err := m.Update(ctx, userID, func(u *domain.User) { u.RefreshToken = token })
	return err
}

func (m *mockUserRepository) storedRefreshToken(id string) *string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].RefreshToken
}

type mockPostRepository struct {
	posts map[string]*domain.Post
}

func newMockPostRepository() *mockPostRepository {
	return &mockPostRepository{posts: make(map[string]*domain.Post)}
}

func (m *mockPostRepository) Create(_ context.Context, post *domain.Post) error {
	p := *post
	m.posts[post.ID] = &p
	return nil
}

func (m *mockPostRepository) FindByID(_ context.Context, id string) (*domain.Post, error) {
	if p, ok := m.posts[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockPostRepository) List(_ context.Context) ([]*domain.Post, error) {
	posts := []*domain.Post{}
	for _, p := range m.posts {
		c := *p
		posts = append(posts, &c)
	}
	slices.SortFunc(posts, func(a, b *domain.Post) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return posts, nil
}

func (m *mockPostRepository) ToggleLike(_ context.Context, postID, userID string) (*domain.Post, error) {
	p, ok := m.posts[postID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.ToggleLike(userID)
	c := *p
	return &c, nil
}

func (m *mockPostRepository) CountByAuthor(_ context.Context, authorID string) (int, error) {
	n := 0
	for _, p := range m.posts {
		if p.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

type mockCommentRepository struct {
	comments []*domain.Comment
}

func (m *mockCommentRepository) Create(_ context.Context, comment *domain.Comment) error {
	c := *comment
	m.comments = append(m.comments, &c)
	return nil
}

func (m *mockCommentRepository) ListByPost(_ context.Context, postID string) ([]*domain.Comment, error) {
	out := []*domain.Comment{}
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Comment) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

type mockFollowRepository struct {
	follows map[string]*domain.Follow
}

func newMockFollowRepository() *mockFollowRepository {
	return &mockFollowRepository{follows: make(map[string]*domain.Follow)}
}

func followKey(a, b string) string { return strings.Join([]string{a, b}, "->") }

func (m *mockFollowRepository) Create(_ context.Context, f *domain.Follow) error {
	key := followKey(f.FollowerID, f.FollowingID)
	if _, ok := m.follows[key]; ok {
		return repository.ErrDuplicate
	}
	c := *f
	m.follows[key] = &c
	return nil
}

func (m *mockFollowRepository) Delete(_ context.Context, followerID, followingID string) error {
	key := followKey(followerID, followingID)
	if _, ok := m.follows[key]; !ok {
		return repository.ErrNotFound
	}
	delete(m.follows, key)
	return nil
}

func (m *mockFollowRepository) ListFollowers(_ context.Context, userID string) ([]*domain.Follow, error) {
	out := []*domain.Follow{}
	for _, f := range m.follows {
		if f.FollowingID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFollowRepository) ListFollowing(_ context.Context, userID string) ([]*domain.Follow, error) {
	out := []*domain.Follow{}
	for _, f := range m.follows {
		if f.FollowerID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFollowRepository) CountFollowers(ctx context.Context, userID string) (int, error) {
	f, _ := m.ListFollowers(ctx, userID)
	return len(f), nil
}

func (m *mockFollowRepository) CountFollowing(ctx context.Context, userID string) (int, error) {
	f, _ := m.ListFollowing(ctx, userID)
	return len(f), nil
}

func testTokenManager() *jwt.Manager {
	return jwt.NewManager(jwt.Config{
		AccessSecret:      "test-access-secret",
		RefreshSecret:     "test-refresh-secret",
		AccessExpiration:  time.Hour,
		RefreshExpiration: 7 * 24 * time.Hour,
	})
}

func newTestAuthService(repo repository.UserRepository, tokens TokenManager) *AuthService {
	log, _ := test.NewNullLogger()
	return NewAuthService(repo, tokens, log)
}

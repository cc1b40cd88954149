package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"mini-social-server/internal/domain"
	"mini-social-server/internal/middleware"
	"mini-social-server/internal/repository"
	"mini-social-server/internal/service"
	"mini-social-server/pkg/jwt"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
	fail  error
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	user.Username = repository.NormalizeUsername(user.Username)
	user.Email = repository.NormalizeEmail(user.Email)
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) find(match func(domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Username == username })
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	email = repository.NormalizeEmail(email)
	return m.find(func(u domain.User) bool { return u.Email == email })
}

func (m *memUsers) FindByLoginKey(ctx context.Context, key string) (*domain.User, error) {
	if u, err := m.FindByUsername(ctx, key); err == nil {
		return u, nil
	}
	return m.FindByEmail(ctx, key)
}

func (m *memUsers) Update(_ context.Context, id string, mutate func(*domain.User)) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	mutate(&u)
	m.users[id] = u
	return &u, nil
}

func (m *memUsers) SetRefreshToken(ctx context.Context, userID string, token *string) error {
	_, err := m.Update(ctx, userID, func(u *domain.User) { u.RefreshToken = token })
	return err
}

type memPosts struct {
	mu    sync.Mutex
	posts map[string]domain.Post
}

func (m *memPosts) Create(_ context.Context, post *domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[post.ID] = *post
	return nil
}

func (m *memPosts) FindByID(_ context.Context, id string) (*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok {
		return &p, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memPosts) List(_ context.Context) ([]*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Post{}
	for _, p := range m.posts {
		out = append(out, &p)
	}
	slices.SortFunc(out, func(a, b *domain.Post) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *memPosts) ToggleLike(_ context.Context, postID, userID string) (*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Likes = slices.Clone(p.Likes)
	p.ToggleLike(userID)
	m.posts[postID] = p
	return &p, nil
}

func (m *memPosts) CountByAuthor(_ context.Context, authorID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.posts {
		if p.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

type memComments struct {
	mu       sync.Mutex
	comments []domain.Comment
}

func (m *memComments) Create(_ context.Context, c *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments = append(m.comments, *c)
	return nil
}

func (m *memComments) ListByPost(_ context.Context, postID string) ([]*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Comment{}
	for i := len(m.comments) - 1; i >= 0; i-- {
		if m.comments[i].PostID == postID {
			c := m.comments[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

type memFollows struct {
	mu      sync.Mutex
	follows []domain.Follow
}

func (m *memFollows) Create(_ context.Context, f *domain.Follow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.follows {
		if existing.FollowerID == f.FollowerID && existing.FollowingID == f.FollowingID {
			return repository.ErrDuplicate
		}
	}
	m.follows = append(m.follows, *f)
	return nil
}

func (m *memFollows) Delete(_ context.Context, followerID, followingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.follows {
		if f.FollowerID == followerID && f.FollowingID == followingID {
			m.follows = slices.Delete(m.follows, i, i+1)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memFollows) filter(match func(domain.Follow) bool) []*domain.Follow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Follow{}
	for _, f := range m.follows {
		if match(f) {
			out = append(out, &f)
		}
	}
	return out
}

func (m *memFollows) ListFollowers(_ context.Context, userID string) ([]*domain.Follow, error) {
	return m.filter(func(f domain.Follow) bool { return f.FollowingID == userID }), nil
}

func (m *memFollows) ListFollowing(_ context.Context, userID string) ([]*domain.Follow, error) {
	return m.filter(func(f domain.Follow) bool { return f.FollowerID == userID }), nil
}

func (m *memFollows) CountFollowers(ctx context.Context, userID string) (int, error) {
	f, _ := m.ListFollowers(ctx, userID)
	return len(f), nil
}

func (m *memFollows) CountFollowing(ctx context.Context, userID string) (int, error) {
	f, _ := m.ListFollowing(ctx, userID)
	return len(f), nil
}

type testServer struct {
	router *mux.Router
	users  *memUsers
	tokens *jwt.Manager
}

func newTestServer(t *testing.T, expose bool) *testServer {
	t.Helper()

	log, _ := test.NewNullLogger()
	opts := Options{Log: log, ExposeErrors: expose}

	users := &memUsers{users: map[string]domain.User{}}
	posts := &memPosts{posts: map[string]domain.Post{}}
	comments := &memComments{}
	follows := &memFollows{}

	tokens := jwt.NewManager(jwt.Config{
		AccessSecret:      "handler-access",
		RefreshSecret:     "handler-refresh",
		AccessExpiration:  time.Hour,
		RefreshExpiration: 24 * time.Hour,
	})

	authService := service.NewAuthService(users, tokens, log)

	rt := Router{
		Auth:         NewAuthHandler(authService, opts),
		User:         NewUserHandler(service.NewUserService(users, posts, follows), opts),
		Post:         NewPostHandler(service.NewPostService(posts, users), opts),
		Comment:      NewCommentHandler(service.NewCommentService(comments, posts, users), opts),
		Follow:       NewFollowHandler(service.NewFollowService(follows, users), opts),
		Authenticate: middleware.AuthMiddleware(middleware.VerifierFunc(authService.Identity)),
	}

	return &testServer{router: rt.Build(), users: users, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func (s *testServer) register(t *testing.T, username, email, password string) domain.AuthResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp domain.AuthResponse
	decodeBody(t, rec, &resp)
	return resp
}

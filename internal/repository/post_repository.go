package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"mini-social-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	FindByID(ctx context.Context, id string) (*domain.Post, error)
	List(ctx context.Context) ([]*domain.Post, error)
	ToggleLike(ctx context.Context, postID, userID string) (*domain.Post, error)
	CountByAuthor(ctx context.Context, authorID string) (int, error)
}

type postDoc struct {
	ID        string    `json:"_id"`
	Rev       string    `json:"_rev,omitempty"`
	Type      string    `json:"type"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Likes     []string  `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type postRepository struct {
	db *kivik.DB
}

func NewPostRepository(client *kivik.Client, dbName string) PostRepository {
	return &postRepository{
		db: client.DB(dbName),
	}
}

func postDocID(id string) string { return fmt.Sprintf("post:%s", id) }

func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	doc := toPostDoc(post)
	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*domain.Post, error) {
	doc, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *postRepository) get(ctx context.Context, id string) (*postDoc, error) {
	row := r.db.Get(ctx, postDocID(id))

	var doc postDoc
	if err := row.ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if doc.Type != docTypePost {
		return nil, ErrNotFound
	}

	return &doc, nil
}

// List returns every post, newest first.
func (r *postRepository) List(ctx context.Context) ([]*domain.Post, error) {
	posts := []*domain.Post{}
	err := findAll(ctx, r.db, map[string]interface{}{"type": docTypePost},
		scanInto(func(doc *postDoc) { posts = append(posts, doc.toDomain()) }))
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	slices.SortFunc(posts, func(a, b *domain.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return posts, nil
}

func (r *postRepository) ToggleLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		doc, err := r.get(ctx, postID)
		if err != nil {
			return nil, err
		}

		post := doc.toDomain()
		post.ToggleLike(userID)
		post.UpdatedAt = time.Now().UTC()

		next := toPostDoc(post)
		next.Rev = doc.Rev

		if _, err := r.db.Put(ctx, next.ID, next); err != nil {
			if isConflict(err) {
				continue
			}
			return nil, fmt.Errorf("failed to update post likes: %w", err)
		}

		return post, nil
	}

	return nil, fmt.Errorf("failed to update post %s: too many concurrent writers", postID)
}

func (r *postRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	return countView(ctx, r.db, viewPostsByAuthor, authorID)
}

func toPostDoc(p *domain.Post) *postDoc {
	likes := p.Likes
	if likes == nil {
		likes = []string{}
	}
	return &postDoc{
		ID:        postDocID(p.ID),
		Type:      docTypePost,
		PostID:    p.ID,
		AuthorID:  p.AuthorID,
		Content:   p.Content,
		Likes:     likes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (d *postDoc) toDomain() *domain.Post {
	return &domain.Post{
		ID:        d.PostID,
		AuthorID:  d.AuthorID,
		Content:   d.Content,
		Likes:     d.Likes,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

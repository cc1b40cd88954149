package domain

import "time"

type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Likes     []string  `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToggleLike adds userID to the likes when absent and removes it otherwise.
func (p *Post) ToggleLike(userID string) {
	for i, id := range p.Likes {
		if id == userID {
			p.Likes = append(p.Likes[:i], p.Likes[i+1:]...)
			return
		}
	}
	p.Likes = append(p.Likes, userID)
}

type CreatePostRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

type PostResponse struct {
	ID         string       `json:"id"`
	Content    string       `json:"content"`
	Author     *UserSummary `json:"author"`
	Likes      []string     `json:"likes"`
	LikesCount int          `json:"likesCount"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateCommentRequest struct {
	PostID  string `json:"postId" validate:"required"`
	Content string `json:"content" validate:"required,max=2000"`
}

type CommentResponse struct {
	ID        string       `json:"id"`
	PostID    string       `json:"postId"`
	Content   string       `json:"content"`
	Author    *UserSummary `json:"author"`
	CreatedAt time.Time    `json:"createdAt"`
}

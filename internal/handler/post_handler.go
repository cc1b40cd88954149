package handler

import (
	"errors"
	"net/http"

	"mini-social-server/internal/domain"
	"mini-social-server/internal/middleware"
	"mini-social-server/internal/service"
	"mini-social-server/pkg/response"

	"github.com/gorilla/mux"
)

type PostHandler struct {
	base
	postService *service.PostService
}

func NewPostHandler(postService *service.PostService, opts Options) *PostHandler {
	return &PostHandler{
		base:        newBase(opts, "posts"),
		postService: postService,
	}
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePostRequest
	if !h.decode(w, r, &req) {
		return
	}

	post, err := h.postService.Create(r.Context(), middleware.GetUserID(r), &req)
	if err != nil {
		if errors.Is(err, service.ErrMissingField) {
			response.BadRequest(w, "content is required")
			return
		}
		h.internalError(w, "Failed to create post", err)
		return
	}

	response.Created(w, post)
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.List(r.Context())
	if err != nil {
		h.internalError(w, "Failed to list posts", err)
		return
	}

	response.Success(w, posts)
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(w, "Post not found")
			return
		}
		h.internalError(w, "Failed to load post", err)
		return
	}

	response.Success(w, post)
}

func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.ToggleLike(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(w, "Post not found")
			return
		}
		h.internalError(w, "Failed to like post", err)
		return
	}

	response.Success(w, post)
}

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

type CommentHandler struct {
	base
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService, opts Options) *CommentHandler {
	return &CommentHandler{
		base:           newBase(opts, "comments"),
		commentService: commentService,
	}
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCommentRequest
	if !h.decode(w, r, &req) {
		return
	}

	comment, err := h.commentService.Create(r.Context(), middleware.GetUserID(r), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingField):
			response.BadRequest(w, "postId and content are required")
		case errors.Is(err, service.ErrNotFound):
			response.NotFound(w, "Post not found")
		default:
			h.internalError(w, "Failed to create comment", err)
		}
		return
	}

	response.Created(w, comment)
}

func (h *CommentHandler) ListByPost(w http.ResponseWriter, r *http.Request) {
	comments, err := h.commentService.ListByPost(r.Context(), mux.Vars(r)["postId"])
	if err != nil {
		h.internalError(w, "Failed to list comments", err)
		return
	}

	response.Success(w, comments)
}

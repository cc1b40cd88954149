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

type FollowHandler struct {
	base
	followService *service.FollowService
}

func NewFollowHandler(followService *service.FollowService, opts Options) *FollowHandler {
	return &FollowHandler{
		base:          newBase(opts, "follow"),
		followService: followService,
	}
}

func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	var req domain.FollowRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.followService.Follow(r.Context(), middleware.GetUserID(r), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingField):
			response.BadRequest(w, "userId is required")
		case errors.Is(err, service.ErrSelfFollow), errors.Is(err, service.ErrAlreadyFollowing):
			response.BadRequest(w, err.Error())
		case errors.Is(err, service.ErrNotFound):
			response.NotFound(w, "User not found")
		default:
			h.internalError(w, "Failed to follow user", err)
		}
		return
	}

	response.Message(w, http.StatusCreated, "Followed successfully")
}

func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	err := h.followService.Unfollow(r.Context(), middleware.GetUserID(r), mux.Vars(r)["userId"])
	if err != nil {
		if errors.Is(err, service.ErrNotFollowing) {
			response.NotFound(w, "Not following this user")
			return
		}
		h.internalError(w, "Failed to unfollow user", err)
		return
	}

	response.Message(w, http.StatusOK, "Unfollowed successfully")
}

func (h *FollowHandler) Followers(w http.ResponseWriter, r *http.Request) {
	users, err := h.followService.Followers(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		h.internalError(w, "Failed to list followers", err)
		return
	}

	response.Success(w, users)
}

func (h *FollowHandler) Following(w http.ResponseWriter, r *http.Request) {
	users, err := h.followService.Following(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		h.internalError(w, "Failed to list following", err)
		return
	}

	response.Success(w, users)
}

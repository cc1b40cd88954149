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

type UserHandler struct {
	base
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService, opts Options) *UserHandler {
	return &UserHandler{
		base:        newBase(opts, "users"),
		userService: userService,
	}
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.GetProfile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		h.internalError(w, "Failed to load user", err)
		return
	}

	response.Success(w, profile)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req domain.UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := h.userService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		h.internalError(w, "Failed to update profile", err)
		return
	}

	response.Success(w, profile)
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mini-social-server/internal/domain"
	"mini-social-server/internal/middleware"
	"mini-social-server/internal/service"
	"mini-social-server/pkg/response"
)

type AuthHandler struct {
	base
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService, opts Options) *AuthHandler {
	return &AuthHandler{
		base:        newBase(opts, "auth"),
		authService: authService,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingField):
			response.BadRequest(w, "Username, email and password are required")
		case errors.Is(err, service.ErrPasswordTooLong):
			response.BadRequest(w, "password must be at most 72 bytes")
		case errors.Is(err, service.ErrDuplicateIdentity):
			response.BadRequest(w, "User already exists")
		default:
			h.internalError(w, "Failed to register user", err)
		}
		return
	}

	response.Created(w, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingField):
			response.BadRequest(w, "Email or username and password are required")
		case errors.Is(err, service.ErrInvalidCredentials):
			response.BadRequest(w, "Invalid credentials")
		default:
			h.internalError(w, "Failed to log in", err)
		}
		return
	}

	response.Success(w, resp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	// An empty or unreadable body carries no token, which is an auth
	// failure rather than a malformed request.
	var req domain.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		response.Unauthorized(w, "Refresh token required")
		return
	}

	resp, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			response.Unauthorized(w, "Invalid or expired refresh token")
		case errors.Is(err, service.ErrNotFound):
			response.Unauthorized(w, "User not found")
		case errors.Is(err, service.ErrTokenNotRecognized):
			response.Unauthorized(w, "Refresh token not recognized")
		default:
			h.internalError(w, "Failed to refresh token", err)
		}
		return
	}

	response.Success(w, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	if err := h.authService.Logout(r.Context(), userID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.Unauthorized(w, "User not found")
			return
		}
		h.internalError(w, "Failed to log out", err)
		return
	}

	response.Message(w, http.StatusOK, "Logged out successfully")
}

// Me echoes the claims of the verified access token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	response.Success(w, map[string]interface{}{"user": claims})
}

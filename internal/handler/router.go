package handler

import (
	"net/http"

	"mini-social-server/pkg/response"

	"github.com/gorilla/mux"
)

type Router struct {
	Auth    *AuthHandler
	User    *UserHandler
	Post    *PostHandler
	Comment *CommentHandler
	Follow  *FollowHandler

	// Authenticate guards every route that needs a bearer token.
	Authenticate func(http.Handler) http.Handler
	// Middleware wraps the whole router, outermost first.
	Middleware []mux.MiddlewareFunc
	// StaticDir, when set, is served at the root for the browser client.
	StaticDir string
}

func (rt Router) Build() *mux.Router {
	r := mux.NewRouter()
	for _, mw := range rt.Middleware {
		r.Use(mw)
	}

	r.HandleFunc("/health", healthHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", rt.Auth.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/login", rt.Auth.Login).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/refresh", rt.Auth.Refresh).Methods("POST", "OPTIONS")

	api.HandleFunc("/users/{id}", rt.User.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/posts", rt.Post.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/posts/{id}", rt.Post.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/comments/{postId}", rt.Comment.ListByPost).Methods("GET", "OPTIONS")
	api.HandleFunc("/follow/followers/{userId}", rt.Follow.Followers).Methods("GET", "OPTIONS")
	api.HandleFunc("/follow/following/{userId}", rt.Follow.Following).Methods("GET", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(rt.Authenticate)

	protected.HandleFunc("/me", rt.Auth.Me).Methods("GET", "OPTIONS")
	protected.HandleFunc("/auth/logout", rt.Auth.Logout).Methods("POST", "OPTIONS")
	protected.HandleFunc("/users/me", rt.User.UpdateMe).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/posts", rt.Post.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/posts/{id}/like", rt.Post.Like).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/comments", rt.Comment.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/follow", rt.Follow.Follow).Methods("POST", "OPTIONS")
	protected.HandleFunc("/follow/{userId}", rt.Follow.Unfollow).Methods("DELETE", "OPTIONS")

	if rt.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(rt.StaticDir)))
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{
		"status":  "healthy",
		"service": "mini-social-server",
	})
}

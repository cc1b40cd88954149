package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// userIDHolder lets the logger see the user id that AuthMiddleware sets on
// the inner request, which the outer request never carries.
type userIDHolder struct {
	id string
}

const userIDHolderKey contextKey = "userIDHolder"

func LoggerMiddleware(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			holder := &userIDHolder{}
			r = r.WithContext(contextWithHolder(r, holder))

			next.ServeHTTP(rw, r)

			userID := holder.id
			if userID == "" {
				userID = "anonymous"
			}

			entry := log.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"status":      rw.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
				"user_id":     userID,
			})

			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				entry.Error("request failed")
			case rw.statusCode >= http.StatusBadRequest:
				entry.Warn("request rejected")
			default:
				entry.Info("request completed")
			}
		})
	}
}

func contextWithHolder(r *http.Request, holder *userIDHolder) context.Context {
	return context.WithValue(r.Context(), userIDHolderKey, holder)
}

func recordUserID(r *http.Request, userID string) {
	if holder, ok := r.Context().Value(userIDHolderKey).(*userIDHolder); ok {
		holder.id = userID
	}
}

package response

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

func Message(w http.ResponseWriter, statusCode int, msg string) {
	JSON(w, statusCode, MessageResponse{Message: msg})
}

func Error(w http.ResponseWriter, statusCode int, msg string) {
	JSON(w, statusCode, ErrorResponse{Message: msg})
}

func BadRequest(w http.ResponseWriter, msg string) {
	Error(w, http.StatusBadRequest, msg)
}

func Unauthorized(w http.ResponseWriter, msg string) {
	Error(w, http.StatusUnauthorized, msg)
}

func Forbidden(w http.ResponseWriter, msg string) {
	Error(w, http.StatusForbidden, msg)
}

func NotFound(w http.ResponseWriter, msg string) {
	Error(w, http.StatusNotFound, msg)
}

// InternalError writes a 500. The underlying error text is included only
// when expose is set, which the handlers tie to non-production environments.
func InternalError(w http.ResponseWriter, msg string, err error, expose bool) {
	body := ErrorResponse{Message: msg}
	if expose && err != nil {
		body.Error = err.Error()
	}
	JSON(w, http.StatusInternalServerError, body)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskhub/apiserver/internal/store"
	"github.com/taskhub/apiserver/internal/validation"
	"github.com/taskhub/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

// Response is the envelope every endpoint replies with.
type Response struct {
	Success    bool                    `json:"success"`
	Data       any                     `json:"data,omitempty"`
	Message    string                  `json:"message,omitempty"`
	Errors     []validation.FieldError `json:"errors,omitempty"`
	Pagination *Pagination             `json:"pagination,omitempty"`
}

// Pagination describes the page of a list response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func userFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeResponse(w, status, Response{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string, data any) {
	writeResponse(w, status, Response{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeResponse(w, status, Response{Success: false, Message: message})
}

func writeValidationErrors(w http.ResponseWriter, errs validation.Errors) {
	writeResponse(w, http.StatusBadRequest, Response{
		Success: false,
		Message: "Validation failed",
		Errors:  errs,
	})
}

// writeServiceError maps service-layer failures onto the envelope: field
// errors become 400, missing records 404, duplicates 409, everything else a
// generic 500 that leaks no internals.
func writeServiceError(w http.ResponseWriter, err error, notFoundMsg, conflictMsg string) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		writeValidationErrors(w, verrs)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, conflictMsg)
	default:
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

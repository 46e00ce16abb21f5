package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/buildflow/permkit/pkg/permission"
)

// envelope is the standard JSON response structure.
type envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	var cycle *permission.CycleError
	switch {
	case errors.Is(err, permission.ErrRoleNotFound),
		errors.Is(err, permission.ErrUserNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.As(err, &cycle), errors.Is(err, permission.ErrInheritanceTooDeep):
		status = http.StatusUnprocessableEntity
		code = "invalid_role_graph"
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
		code = "bad_request"
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &errorDetail{
		Code:    code,
		Message: err.Error(),
	}})
}

var errBadRequest = errors.New("bad request")

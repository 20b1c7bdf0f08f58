package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sakif/auth-gateway/internal/apperror"
	"github.com/sakif/auth-gateway/internal/service"
)

// Operation names accepted by /query.
const (
	OpGetUser = "getUser"
	OpLogin   = "login"
	OpSignup  = "signup"
)

// QueryRequest is the body of POST /query.
//
//	{"operation": "login", "variables": {"email": "...", "password": "..."}}
//	{"operation": "signup", "variables": {"input": {"username": "...", "email": "...", "password": "..."}}}
//	{"operation": "getUser"}
type QueryRequest struct {
	Operation string          `json:"operation"`
	Variables json.RawMessage `json:"variables,omitempty"`
}

// QueryResponse holds either data keyed by operation name or errors.
type QueryResponse struct {
	Data   map[string]any `json:"data"`
	Errors []QueryError   `json:"errors,omitempty"`
}

// QueryError is one entry of QueryResponse.Errors.
type QueryError struct {
	Message    string          `json:"message"`
	Path       []string        `json:"path,omitempty"`
	Extensions QueryExtensions `json:"extensions"`
}

// QueryExtensions carries the machine-readable error code.
type QueryExtensions struct {
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

type signupVariables struct {
	Input service.SignupInput `json:"input"`
}

// HandleQuery is the single query/mutation endpoint.
//
// HTTP: POST /query
//
// Operation failures are part of the response body, not the status line:
// a rejected login is still a 200 with an "errors" entry. Only a body that
// cannot be read at all is a 400.
func (h *AuthHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, queryFailure("", err))
		return
	}

	var (
		result any
		err    error
	)
	switch req.Operation {
	case OpGetUser:
		result, err = h.auth.GetUser(r.Context())

	case OpLogin:
		var in service.LoginInput
		if err = decodeVariables(req.Variables, &in); err == nil {
			result, err = h.auth.Login(r.Context(), in)
		}

	case OpSignup:
		var vars signupVariables
		if err = decodeVariables(req.Variables, &vars); err == nil {
			result, err = h.auth.Signup(r.Context(), vars.Input)
		}

	default:
		writeJSON(w, http.StatusBadRequest, queryFailure(req.Operation,
			apperror.ValidationFailed("operation", "unknown operation "+quote(req.Operation))))
		return
	}

	if err != nil {
		h.logFailure(r, req.Operation, err)
		writeJSON(w, http.StatusOK, queryFailure(req.Operation, err))
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{Data: map[string]any{req.Operation: result}})
}

func decodeVariables(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperror.ValidationFailed("variables", "invalid variables")
	}
	return nil
}

func queryFailure(op string, err error) QueryResponse {
	class, msg := classify(err)
	qe := QueryError{
		Message:    msg,
		Extensions: QueryExtensions{Code: class.code},
	}
	if op != "" {
		qe.Path = []string{op}
	}
	var appErr *apperror.AppError
	if class != classInternal && errors.As(err, &appErr) {
		qe.Extensions.Field = appErr.Field
	}
	return QueryResponse{Data: nil, Errors: []QueryError{qe}}
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

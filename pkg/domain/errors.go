package domain

import (
	"github.com/pkg/errors"
	"net/http"
)

var (
	ErrInvalidName       = NewErr("bad_request", "invalid name", http.StatusBadRequest)
	ErrInvalidRequest    = NewErr("bad_request", "invalid request", http.StatusBadRequest)
	ErrUnauthorized      = NewErr("unauthorized", "missing or invalid token", http.StatusUnauthorized)
	ErrInvalidAPIKey     = NewErr("unauthorized", "missing or invalid API key", http.StatusUnauthorized)
	ErrScopeForbidden    = NewErr("forbidden", "api key lacks required scope", http.StatusForbidden)
	ErrIPNotAllowed      = NewErr("forbidden", "client IP not in allowlist", http.StatusForbidden)
	ErrPasteNotFound     = NewErr("not_found", "paste not found", http.StatusNotFound)
	ErrAlreadyRunning    = NewErr("conflict", "already running", http.StatusConflict)
	ErrIdempotencyReuse  = NewErr("conflict", "idempotency key reuse with different payload", http.StatusConflict)
	ErrPasteTooLarge     = NewErr("too_large", "request body exceeds max-bytes", http.StatusRequestEntityTooLarge)
	ErrRateLimitExceeded = NewErr("too_many_requests", "rate limit exceeded", http.StatusTooManyRequests)
	ErrKeyRateLimited    = NewErr("too_many_requests", "api key rate limit exceeded", http.StatusTooManyRequests)
	ErrInternalServer    = NewErr("internal", "internal error", http.StatusInternalServerError)
	ErrRepoNotReady      = NewErr("service_unavailable", "repo not ready", http.StatusServiceUnavailable)
	ErrGitMissing        = NewErr("service_unavailable", "git is required", http.StatusServiceUnavailable)
)

type Err struct {
	Code   string `json:"error"`
	Msg    string `json:"message"`
	Status int    `json:"-"`
}

func (e *Err) Error() string { return e.Msg }
func NewErr(code, msg string, status int) *Err {
	return &Err{Code: code, Msg: msg, Status: status}
}

type ErrResp struct {
	Error string `json:"error"`
	Msg   string `json:"message"`
}

func ToResp(err error) ErrResp {
	if e, ok := err.(*Err); ok {
		return ErrResp{Error: e.Code, Msg: e.Msg}
	}
	if e, ok := errors.Cause(err).(*Err); ok {
		return ErrResp{Error: e.Code, Msg: e.Msg}
	}
	return ErrResp{Error: "internal", Msg: "internal error"}
}

func Status(err error) int {
	if e, ok := err.(*Err); ok {
		return e.Status
	}
	if e, ok := errors.Cause(err).(*Err); ok {
		return e.Status
	}
	return http.StatusInternalServerError
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"yashubustudio/occumatch/skillmatch"
)

const (
	statusError        = "error"
	statusInitializing = "initializing"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	Status    string `json:"status"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

var (
	ErrBadRequest = func(detail string) *APIError { return NewAPIError(http.StatusBadRequest, "bad request", detail) }
	ErrTooLarge   = func(detail string) *APIError {
		return NewAPIError(http.StatusRequestEntityTooLarge, "request body too large", detail)
	}
	ErrTooManyRequests = func(detail string) *APIError {
		return NewAPIError(http.StatusTooManyRequests, "too many requests", detail)
	}
	ErrInternalServer = func(detail string) *APIError {
		return NewAPIError(http.StatusInternalServerError, "internal server error", detail)
	}
	ErrTimeout = func(detail string) *APIError {
		return NewAPIError(http.StatusGatewayTimeout, "request timed out", detail)
	}
	ErrInitializing = func(detail string) *APIError {
		e := NewAPIError(http.StatusServiceUnavailable, "model is not ready, retry in a few seconds", detail)
		e.Status = statusInitializing
		return e
	}
)

func NewAPIError(code int, message, detail string) *APIError {
	return &APIError{
		Status:  statusError,
		Code:    code,
		Message: message,
		Detail:  detail,
	}
}

func (e *APIError) WithRequestID(requestID string) *APIError {
	e.RequestID = requestID
	return e
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// fromServiceError maps core errors onto HTTP errors.
func fromServiceError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, skillmatch.ErrIndexNotReady):
		return ErrInitializing("")
	case errors.Is(err, skillmatch.ErrCorpusUnavailable):
		return ErrInternalServer("vocabulary is unavailable, check the CBO dataset: " + err.Error())
	case errors.Is(err, skillmatch.ErrEmptyRequirements):
		return ErrBadRequest(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout(err.Error())
	default:
		return ErrInternalServer(err.Error())
	}
}

package services

import (
	"errors"
	"net/http"

	"gorm.io/gorm"
)

type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindNotFound        ErrorKind = "not_found"
	KindStateConflict   ErrorKind = "state_conflict"
	KindUpstream        ErrorKind = "upstream"
)

// ServiceError represents a typed error with an HTTP status code.
type ServiceError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Details    interface{}
}

func (e *ServiceError) Error() string {
	return e.Message
}

func newError(kind ErrorKind, status int, msg string) *ServiceError {
	return &ServiceError{Kind: kind, StatusCode: status, Message: msg}
}

func ValidationError(msg string) *ServiceError {
	return newError(KindValidation, http.StatusBadRequest, msg)
}

func UnauthenticatedError(msg string) *ServiceError {
	return newError(KindUnauthenticated, http.StatusUnauthorized, msg)
}

func UnauthorizedError(msg string) *ServiceError {
	return newError(KindUnauthorized, http.StatusForbidden, msg)
}

func NotFoundError(msg string) *ServiceError {
	return newError(KindNotFound, http.StatusNotFound, msg)
}

func StateConflictError(msg string) *ServiceError {
	return newError(KindStateConflict, http.StatusBadRequest, msg)
}

// UpstreamError carries the underlying store error in Details for operators.
func UpstreamError(msg string, err error) *ServiceError {
	e := newError(KindUpstream, http.StatusInternalServerError, msg)
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

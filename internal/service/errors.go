package service

import (
	"fmt"
	"net/http"
)

// StatusCodeError is implemented by errors that map onto an HTTP status.
type StatusCodeError interface {
	error
	StatusCode() int
}

// ValidationError is returned when a required field is missing or invalid.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

// NotFoundError is returned for an unknown resource or record id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("Record %s not found in resource '%s'", e.ID, e.Resource)
	}
	return fmt.Sprintf("Resource '%s' not found", e.Resource)
}

func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// MalformedJSONError is returned when a request body is not a JSON object.
type MalformedJSONError struct {
	Err error
}

func (e *MalformedJSONError) Error() string {
	if e.Err == nil {
		return "Request body must be a JSON object"
	}
	return "Invalid JSON body: " + e.Err.Error()
}

func (e *MalformedJSONError) Unwrap() error {
	return e.Err
}

func (e *MalformedJSONError) StatusCode() int {
	return http.StatusBadRequest
}

// CapacityError is returned when a resource has no integer id left to hand out.
type CapacityError struct {
	Resource string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Resource '%s' has no ids left to assign", e.Resource)
}

func (e *CapacityError) StatusCode() int {
	return http.StatusInsufficientStorage
}

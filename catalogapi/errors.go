// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogapi

// ErrorResponse is a struct for error responses that also implements the error interface.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

var (
	// ErrBadRequest is returned when the request is malformed.
	ErrBadRequest = &ErrorResponse{StatusCode: 400, Message: "bad request"}

	// ErrNotFound is returned when the requested path does not exist.
	ErrNotFound = &ErrorResponse{StatusCode: 404, Message: "Not Found"}

	// ErrAuthorizationFailed is returned when the API key is missing or invalid.
	ErrAuthorizationFailed = &ErrorResponse{StatusCode: 403, Message: "Invalid X-Api-Key"}

	// ErrInternalError is returned when an internal error occurs.
	ErrInternalError = &ErrorResponse{StatusCode: 500, Message: "internal error"}
)

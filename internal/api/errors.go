package api

import "net/http"

// Error is the error half of the response envelope. Handler subpackages
// carry their own copies of the shape to avoid importing this package;
// this one covers the routing-level responses.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrNotFound = &Error{
		Code:    "NOT_FOUND",
		Message: "Resource not found",
		Status:  http.StatusNotFound,
	}

	ErrMethodNotAllowed = &Error{
		Code:    "METHOD_NOT_ALLOWED",
		Message: "Method not allowed for this resource",
		Status:  http.StatusMethodNotAllowed,
	}
)

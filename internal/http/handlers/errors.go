// Package handlers implements the HTTP endpoints of the bot: the platform
// webhook and the read-only party directory API.
//
// Error responses carry a stable, machine-readable code from this file:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "not_found",
//	  "message": "resource not found"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeListFailed  = "list_failed"
	ErrCodeBadUpdate   = "bad_update"
	ErrCodeUnavailable = "unavailable"
)

// Package services defines the business logic of the party directory: mention
// resolution, suggestions, mutation rules and chat settings.
// This file centralizes the service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages is performed by the bot layer, which
// maps each error to a message template.
package services

import (
	"errors"

	"github.com/tbourn/pull-party-bot/internal/callback"
)

var (
	// ErrEmptyArguments is returned when a command lacks required arguments.
	ErrEmptyArguments = errors.New("empty arguments")

	// ErrInvalidName is returned for names that are too long, contain a
	// prohibited symbol or end with a hyphen.
	ErrInvalidName = errors.New("invalid party name")

	// ErrReservedName is returned for any mutation of the admins pseudo-party.
	ErrReservedName = errors.New("reserved party name")

	// ErrNotFound indicates the party does not exist in the chat.
	ErrNotFound = errors.New("party not found")

	// ErrAlreadyExists is returned when creating a party whose name is taken.
	ErrAlreadyExists = errors.New("party already exists")

	// ErrPermissionDenied is returned when the acting user is not an
	// administrator of a group chat.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnsupportedChatKind is returned when admins is referenced outside a
	// group chat.
	ErrUnsupportedChatKind = errors.New("unsupported chat kind")

	// ErrPartialHandleRejection signals that some member handles were dropped
	// as malformed while the operation went on with the rest.
	ErrPartialHandleRejection = errors.New("some handles were rejected")

	// ErrExternalFetchFailure is returned when the administrator roster could
	// not be fetched from the platform.
	ErrExternalFetchFailure = errors.New("administrator list unavailable")

	// ErrDecodeFailure is returned for malformed callback tokens.
	ErrDecodeFailure = callback.ErrDecodeFailure

	// ErrSingletonParty is returned when a party would consist only of a
	// member named like the party itself.
	ErrSingletonParty = errors.New("party would only contain itself")

	// ErrInvalidArgument is returned when an argument is outside its allowed set.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRateLimited is returned when a user exceeds a per-user quota.
	ErrRateLimited = errors.New("rate limited")
)

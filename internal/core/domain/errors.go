package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateQuery    = errors.New("query already exists for this origin and destination")
	ErrDuplicateUser     = errors.New("user already exists")
	ErrNotOwner          = errors.New("resource does not belong to the user")
	ErrForbidden         = errors.New("insufficient rights")
	ErrUnauthorized      = errors.New("user not logged in or session expired")
	ErrInvalidThreshold  = errors.New("distance threshold must be a positive number of miles")
	ErrMalformedPolyline = errors.New("malformed polyline")
	ErrNoRoute           = errors.New("no route between origin and destination")
	ErrMissingEndpoint   = errors.New("origin and destination are required")
	ErrInvalidTag        = errors.New("tag keyword must not be empty")
	ErrMissingCredential = errors.New("email and password are required")
	ErrInvalidAccess     = errors.New("unknown access level")
	ErrAlreadyPlanned    = errors.New("query is already planned or being planned")
)

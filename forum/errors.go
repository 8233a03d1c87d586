package forum

import "errors"

// Error taxonomy shared by the store and the request handlers. Handlers map
// these onto redirects or error pages; the store never touches HTTP.
var (
	// ErrUnauthenticated means no valid session; handlers redirect to login.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrValidation covers missing, empty-after-trim, or oversized input.
	ErrValidation = errors.New("validation failed")
	// ErrReferential means a foreign key target does not exist.
	ErrReferential = errors.New("referenced record does not exist")
	// ErrNotFound means the requested post, reply, user, or category is gone.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means a non-owner, non-admin tried a delete.
	ErrUnauthorized = errors.New("not allowed")
)

package domain

import "fmt"

// NotFoundError represents a missing or soft-deleted resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// AuthenticationError represents a failed wallet-signature login:
// no user or nonce for the address, or a signature that recovers
// to a different address.
type AuthenticationError struct {
	Reason string
}

func (e AuthenticationError) Error() string {
	if e.Reason == "" {
		return "authentication failed"
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e AuthenticationError) Is(target error) bool {
	_, ok := target.(AuthenticationError)
	if ok {
		return true
	}
	_, ok = target.(*AuthenticationError)
	return ok
}

var ErrAuthenticationFailed = AuthenticationError{}

// UnauthorizedError means the caller lacks ownership or admin standing
// for a privileged mutation.
type UnauthorizedError struct {
	Action string
}

func (e UnauthorizedError) Error() string {
	if e.Action == "" {
		return "unauthorized"
	}
	return fmt.Sprintf("unauthorized to %s", e.Action)
}

func (e UnauthorizedError) Is(target error) bool {
	_, ok := target.(UnauthorizedError)
	if ok {
		return true
	}
	_, ok = target.(*UnauthorizedError)
	return ok
}

var ErrUnauthorized = UnauthorizedError{}

// ForbiddenError means the caller tried to grant a privilege beyond
// their own standing, e.g. a non-admin handing out ADMIN.
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string {
	if e.Reason == "" {
		return "forbidden"
	}
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

func (e ForbiddenError) Is(target error) bool {
	_, ok := target.(ForbiddenError)
	if ok {
		return true
	}
	_, ok = target.(*ForbiddenError)
	return ok
}

var ErrForbidden = ForbiddenError{}

// BadRequestError represents a business-invariant violation: not a
// member, malformed price, unknown role name.
type BadRequestError struct {
	Reason string
}

func (e BadRequestError) Error() string {
	if e.Reason == "" {
		return "bad request"
	}
	return e.Reason
}

func (e BadRequestError) Is(target error) bool {
	_, ok := target.(BadRequestError)
	if ok {
		return true
	}
	_, ok = target.(*BadRequestError)
	return ok
}

var ErrBadRequest = BadRequestError{}

// QuotaError means a per-role quota was reached: a second group of the
// same visibility, or the item limit inside a group.
type QuotaError struct {
	Quota string
}

func (e QuotaError) Error() string {
	if e.Quota == "" {
		return "quota exceeded"
	}
	return fmt.Sprintf("quota exceeded: %s", e.Quota)
}

func (e QuotaError) Is(target error) bool {
	_, ok := target.(QuotaError)
	if ok {
		return true
	}
	_, ok = target.(*QuotaError)
	return ok
}

var ErrQuotaExceeded = QuotaError{}

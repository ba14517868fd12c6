package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

const (
	UserNotFound              = "User not found"
	DonorNotFound             = "Donor not found"
	RequesterNotFound         = "Requester not found"
	BloodRequestNotFound      = "Blood request not found"
	ConnectionRequestNotFound = "Connection request not found"
	ConnectionUserNotFound    = "Connection user not found"
	RequestAlreadyAccepted    = "This blood request has already been accepted"
	AcceptedBySomeoneElse     = "This blood request has already been accepted by someone else"
	DuplicateConnection       = "You have already sent a connection request for this blood request"
	DeleteAcceptedRequest     = "Cannot delete an accepted blood request"
	AlreadyInCircle           = "This user is already in your circle"
	SelfCircle                = "You cannot add yourself to your circle"
	NotInCircle               = "User not found in your circle"
	EmailAlreadyExist         = "User already exists with this email"
	InvalidCredentials        = "Invalid email or password"
	PhoneNotFound             = "No user found with this phone number"
	InvalidPhoneFormat        = "Invalid phone number format. Please enter a valid Bangladesh phone number (e.g., 01712345678)"
)

type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindIneligible Kind = "ineligible"
	KindValidation Kind = "validation"
	KindStorage    Kind = "storage"
)

// StatusError carries a machine-checkable kind next to the human-readable
// message so handlers can map business failures without string matching.
// DaysRemaining is set only for KindIneligible.
type StatusError struct {
	Kind          Kind
	Message       string
	DaysRemaining int
	cause         error
}

func (e *StatusError) Error() string {
	return e.Message
}

func (e *StatusError) Unwrap() error {
	return e.cause
}

func NotFound(message string) *StatusError {
	return &StatusError{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *StatusError {
	return &StatusError{Kind: KindConflict, Message: message}
}

func Conflictf(format string, args ...interface{}) *StatusError {
	return &StatusError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Validation(message string) *StatusError {
	return &StatusError{Kind: KindValidation, Message: message}
}

func Ineligible(daysRemaining int, message string) *StatusError {
	return &StatusError{Kind: KindIneligible, Message: message, DaysRemaining: daysRemaining}
}

func Storage(err error) *StatusError {
	return &StatusError{Kind: KindStorage, Message: "Storage error: " + err.Error(), cause: err}
}

func KindOf(err error) Kind {
	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		return statusErr.Kind
	}
	return KindStorage
}

// As returns the StatusError behind err, wrapping unknown errors as storage
// failures so callers always get a kind and a message.
func As(err error) *StatusError {
	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		return statusErr
	}
	return Storage(err)
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindIneligible:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

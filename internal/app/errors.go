package app

import "errors"

var (
	ErrValidation            = errors.New("validation failed")
	ErrAthleteNotFound       = errors.New("athlete not found")
	ErrRecoveryNotConfigured = errors.New("recovery questions not configured")
	ErrResetQuotaExceeded    = errors.New("pin reset limit reached")
	ErrAnswersMismatch       = errors.New("security answers do not match")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrAccountNotActivated   = errors.New("account not yet activated")
	ErrInvalidCredentials    = errors.New("invalid id number or pincode")
	ErrAlreadyOnboarded      = errors.New("athlete already onboarded")
	ErrAthleteExists         = errors.New("athlete already exists")
	ErrAdminNotFound         = errors.New("admin not found")
	ErrAdminExists           = errors.New("admin already exists")
)

// ValidationError names the offending field. errors.Is(err, ErrValidation) matches it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AnswersMismatchError carries the unchanged quota so callers can show it.
// errors.Is(err, ErrAnswersMismatch) matches it.
type AnswersMismatchError struct {
	RemainingResets int
}

func (e *AnswersMismatchError) Error() string {
	return ErrAnswersMismatch.Error()
}

func (e *AnswersMismatchError) Unwrap() error {
	return ErrAnswersMismatch
}

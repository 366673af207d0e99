package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes an authentication failure. The set is closed: every
// provider-native failure is normalized to exactly one of these codes before
// it reaches a caller.
type ErrorCode string

const (
	// ErrCodeNotInitialized indicates the façade was used before initialization completed.
	ErrCodeNotInitialized ErrorCode = "not_initialized"
	// ErrCodeInvalidCredentials indicates the email/password pair was rejected.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeAccountNotFound indicates no account exists for the given email.
	ErrCodeAccountNotFound ErrorCode = "account_not_found"
	// ErrCodeEmailInUse indicates sign-up hit an already registered email.
	ErrCodeEmailInUse ErrorCode = "email_in_use"
	// ErrCodeWeakPassword indicates the password failed the provider's strength policy.
	ErrCodeWeakPassword ErrorCode = "weak_password"
	// ErrCodeInvalidEmail indicates the email address is not syntactically valid.
	ErrCodeInvalidEmail ErrorCode = "invalid_email"
	// ErrCodeTooManyAttempts indicates the provider throttled the caller.
	ErrCodeTooManyAttempts ErrorCode = "too_many_attempts"
	// ErrCodeNetwork indicates the provider could not be reached.
	ErrCodeNetwork ErrorCode = "network"
	// ErrCodePopupClosed indicates the interactive sign-in flow was abandoned.
	ErrCodePopupClosed ErrorCode = "popup_closed"
	// ErrCodeProviderMisconfigured indicates credentials or provider setup are wrong.
	ErrCodeProviderMisconfigured ErrorCode = "provider_misconfigured"
	// ErrCodeGuestDisabled indicates guest sign-in is switched off by configuration.
	ErrCodeGuestDisabled ErrorCode = "guest_disabled"
	// ErrCodeUnknown indicates a provider failure with no mapping.
	ErrCodeUnknown ErrorCode = "unknown"
)

// userMessages is the single source of truth for user-facing error text,
// keyed by code. Consumers display these verbatim and never inspect
// provider-native codes.
var userMessages = map[ErrorCode]string{
	ErrCodeNotInitialized:        "authentication is not ready yet",
	ErrCodeInvalidCredentials:    "incorrect email or password",
	ErrCodeAccountNotFound:       "no account exists for this email",
	ErrCodeEmailInUse:            "an account already exists for this email",
	ErrCodeWeakPassword:          "password is too weak",
	ErrCodeInvalidEmail:          "email address is not valid",
	ErrCodeTooManyAttempts:       "too many attempts, try again later",
	ErrCodeNetwork:               "network error, check your connection",
	ErrCodePopupClosed:           "sign-in window was closed before finishing",
	ErrCodeProviderMisconfigured: "authentication service is misconfigured",
	ErrCodeGuestDisabled:         "guest access is disabled",
	ErrCodeUnknown:               "something went wrong, try again",
}

// fieldHints marks codes attributable to a single input field, for callers
// that highlight form controls.
var fieldHints = map[ErrorCode]string{
	ErrCodeAccountNotFound: "email",
	ErrCodeEmailInUse:      "email",
	ErrCodeInvalidEmail:    "email",
	ErrCodeWeakPassword:    "password",
}

// AuthError is a normalized authentication failure with a stable code, a
// user-facing message, and the provider-native cause (kept for logs only).
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AuthError struct {
	// Code categorizes the failure
	Code ErrorCode
	// Message is safe to show to the user
	Message string
	// Cause is the underlying provider error (optional)
	Cause error
	// Field names the input field at fault (optional)
	Field string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// New creates an AuthError for code with its canonical user message.
func New(code ErrorCode) *AuthError {
	return &AuthError{
		Code:    code,
		Message: UserMessage(code),
		Field:   fieldHints[code],
	}
}

// Wrap attaches a provider-native cause to a normalized error for code.
// Returns nil when err is nil.
func Wrap(err error, code ErrorCode) *AuthError {
	if err == nil {
		return nil
	}
	e := New(code)
	e.Cause = err
	return e
}

// Wrapf is Wrap with a message overriding the canonical one.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AuthError {
	if err == nil {
		return nil
	}
	return &AuthError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
		Field:   fieldHints[code],
	}
}

// NotInitialized creates a NotInitialized error.
func NotInitialized() *AuthError {
	return New(ErrCodeNotInitialized)
}

// InvalidCredentials creates an InvalidCredentials error.
func InvalidCredentials() *AuthError {
	return New(ErrCodeInvalidCredentials)
}

// AccountNotFound creates an AccountNotFound error.
func AccountNotFound() *AuthError {
	return New(ErrCodeAccountNotFound)
}

// EmailInUse creates an EmailInUse error.
func EmailInUse() *AuthError {
	return New(ErrCodeEmailInUse)
}

// WeakPassword creates a WeakPassword error.
func WeakPassword() *AuthError {
	return New(ErrCodeWeakPassword)
}

// InvalidEmail creates an InvalidEmail error.
func InvalidEmail() *AuthError {
	return New(ErrCodeInvalidEmail)
}

// TooManyAttempts creates a TooManyAttempts error.
func TooManyAttempts() *AuthError {
	return New(ErrCodeTooManyAttempts)
}

// Network creates a Network error.
func Network() *AuthError {
	return New(ErrCodeNetwork)
}

// PopupClosed creates a PopupClosed error.
func PopupClosed() *AuthError {
	return New(ErrCodePopupClosed)
}

// ProviderMisconfigured creates a ProviderMisconfigured error.
func ProviderMisconfigured() *AuthError {
	return New(ErrCodeProviderMisconfigured)
}

// GuestDisabled creates a GuestDisabled error.
func GuestDisabled() *AuthError {
	return New(ErrCodeGuestDisabled)
}

// Unknown creates an Unknown error carrying the provider's message. An empty
// message falls back to the canonical text.
func Unknown(message string) *AuthError {
	e := New(ErrCodeUnknown)
	if message != "" {
		e.Message = message
	}
	return e
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Code == code
}

// IsNotInitialized checks if an error is a NotInitialized error.
func IsNotInitialized(err error) bool {
	return isCode(err, ErrCodeNotInitialized)
}

// IsInvalidCredentials checks if an error is an InvalidCredentials error.
func IsInvalidCredentials(err error) bool {
	return isCode(err, ErrCodeInvalidCredentials)
}

// IsAccountNotFound checks if an error is an AccountNotFound error.
func IsAccountNotFound(err error) bool {
	return isCode(err, ErrCodeAccountNotFound)
}

// IsEmailInUse checks if an error is an EmailInUse error.
func IsEmailInUse(err error) bool {
	return isCode(err, ErrCodeEmailInUse)
}

// IsWeakPassword checks if an error is a WeakPassword error.
func IsWeakPassword(err error) bool {
	return isCode(err, ErrCodeWeakPassword)
}

// IsInvalidEmail checks if an error is an InvalidEmail error.
func IsInvalidEmail(err error) bool {
	return isCode(err, ErrCodeInvalidEmail)
}

// IsTooManyAttempts checks if an error is a TooManyAttempts error.
func IsTooManyAttempts(err error) bool {
	return isCode(err, ErrCodeTooManyAttempts)
}

// IsNetwork checks if an error is a Network error.
func IsNetwork(err error) bool {
	return isCode(err, ErrCodeNetwork)
}

// IsPopupClosed checks if an error is a PopupClosed error.
func IsPopupClosed(err error) bool {
	return isCode(err, ErrCodePopupClosed)
}

// IsProviderMisconfigured checks if an error is a ProviderMisconfigured error.
func IsProviderMisconfigured(err error) bool {
	return isCode(err, ErrCodeProviderMisconfigured)
}

// IsGuestDisabled checks if an error is a GuestDisabled error.
func IsGuestDisabled(err error) bool {
	return isCode(err, ErrCodeGuestDisabled)
}

// IsFatal reports whether the error means retrying the same operation cannot
// succeed without reconfiguration. Callers surface these as a persistent
// notice rather than a transient message.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeNotInitialized, ErrCodeProviderMisconfigured:
		return true
	default:
		return false
	}
}

// GetCode returns the ErrorCode from an error, or empty string if not an AuthError.
func GetCode(err error) ErrorCode {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AuthError or no field set.
func GetField(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Field
	}
	return ""
}

// UserMessage returns the canonical user-facing text for code.
func UserMessage(code ErrorCode) string {
	if m, ok := userMessages[code]; ok {
		return m
	}
	return userMessages[ErrCodeUnknown]
}

package identitykit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	autherr "github.com/foyerhq/foyer/internal/errors"
)

// apiError is the provider's error envelope, decoded from a non-2xx
// response. Code is the SCREAMING_SNAKE identifier; Detail is the free-text
// suffix some codes carry after " : ".
type apiError struct {
	Status int
	Code   string
	Detail string
}

func (e *apiError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	}
	return e.Code
}

// codeMap is the fixed provider-code-to-taxonomy table. New provider codes
// are additive entries here, never new branching.
var codeMap = map[string]autherr.ErrorCode{
	"EMAIL_NOT_FOUND":             autherr.ErrCodeAccountNotFound,
	"INVALID_PASSWORD":            autherr.ErrCodeInvalidCredentials,
	"INVALID_LOGIN_CREDENTIALS":   autherr.ErrCodeInvalidCredentials,
	"MISSING_PASSWORD":            autherr.ErrCodeInvalidCredentials,
	"EMAIL_EXISTS":                autherr.ErrCodeEmailInUse,
	"WEAK_PASSWORD":               autherr.ErrCodeWeakPassword,
	"INVALID_EMAIL":               autherr.ErrCodeInvalidEmail,
	"MISSING_EMAIL":               autherr.ErrCodeInvalidEmail,
	"TOO_MANY_ATTEMPTS_TRY_LATER": autherr.ErrCodeTooManyAttempts,
	"OPERATION_NOT_ALLOWED":       autherr.ErrCodeProviderMisconfigured,
	"ADMIN_ONLY_OPERATION":        autherr.ErrCodeProviderMisconfigured,
}

// remoteSignOutCodes are refresh failures meaning the provider no longer
// honors the session at all, as opposed to a transient fault.
var remoteSignOutCodes = map[string]bool{
	"TOKEN_EXPIRED":         true,
	"INVALID_REFRESH_TOKEN": true,
	"USER_NOT_FOUND":        true,
	"USER_DISABLED":         true,
}

// MapError normalizes any failure from this provider into the stable error
// taxonomy. It handles, in order:
//   - context deadline/cancellation and transport failures → Network
//   - recognized envelope codes → their mapped taxonomy code
//   - unrecognized envelope codes → Unknown carrying the provider message
//
// A nil error maps to nil. The original error always rides along as the
// cause, for logs only.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	// Check for context errors first
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return autherr.Wrap(err, autherr.ErrCodeNetwork)
	}

	// Transport-level failures (DNS, refused connections, TLS)
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return autherr.Wrap(err, autherr.ErrCodeNetwork)
	}

	var api *apiError
	if errors.As(err, &api) {
		if code, ok := codeMap[api.Code]; ok {
			return autherr.Wrap(err, code)
		}
		return autherr.Wrapf(err, autherr.ErrCodeUnknown, "%s", api.Error())
	}

	// Already normalized errors pass through unchanged.
	var authErr *autherr.AuthError
	if errors.As(err, &authErr) {
		return err
	}

	return autherr.Wrap(err, autherr.ErrCodeUnknown)
}

// isRemoteSignOut reports whether a refresh failure means the session was
// revoked provider-side.
func isRemoteSignOut(err error) bool {
	var api *apiError
	return errors.As(err, &api) && remoteSignOutCodes[api.Code]
}

// parseAPIError builds an apiError from an error response body shaped
// {"error":{"message":"CODE : optional detail"}}. Bodies that do not parse
// still produce an apiError so MapError can fall through to Unknown.
func parseAPIError(status int, body []byte) *apiError {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := ""
	if err := json.Unmarshal(body, &envelope); err == nil {
		message = strings.TrimSpace(envelope.Error.Message)
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	code, detail, _ := strings.Cut(message, " : ")
	return &apiError{
		Status: status,
		Code:   strings.TrimSpace(code),
		Detail: strings.TrimSpace(detail),
	}
}

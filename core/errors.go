package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	VaultErrorBadInput             = "VAULT_BAD_INPUT"
	VaultErrorNotFound             = "VAULT_NOT_FOUND"
	VaultErrorAccessDenied         = "VAULT_ACCESS_DENIED"
	VaultErrorAuthenticationFailed = "VAULT_AUTHENTICATION_FAILED"
	VaultErrorConflict             = "VAULT_CONFLICT"
	VaultErrorProvider             = "VAULT_PROVIDER_ERROR"
	VaultErrorSessionExpired       = "VAULT_SESSION_EXPIRED"
	VaultErrorTokenExpired         = "VAULT_TOKEN_EXPIRED"
	VaultErrorSignInRestart        = "VAULT_SIGNIN_RESTART"
	VaultErrorInternal             = "VAULT_INTERNAL_ERROR"
)

// ErrInvalidGrant marks the one provider failure the federation flow
// recovers from locally: the caller is told to restart at the authorization
// step instead of receiving a terminal error.
var ErrInvalidGrant = errors.New("core: provider rejected grant")

// ErrSessionNotFound marks an exchange referencing an unknown or already
// consumed state value.
var ErrSessionNotFound = errors.New("core: sign-in session not found")

// ErrUserInfoNotConfigured marks a flow without a user-info endpoint. The
// federation flow skips profile retrieval for such providers.
var ErrUserInfoNotConfigured = errors.New("core: user info endpoint not configured")

func NewNotFoundError(message string) *goerrors.Error {
	return newVaultError(message, goerrors.CategoryNotFound, VaultErrorNotFound)
}

// NewAccessDeniedError enumerates the missing permission names so callers
// can diagnose which bit a grant lacks. The message is identical whether the
// label exists or not.
func NewAccessDeniedError(clientID, label string, missing []string) *goerrors.Error {
	message := "missing " + strings.Join(missing, ", ") + " permission"
	if len(missing) != 1 {
		message = "missing " + strings.Join(missing, ", ") + " permissions"
	}
	return newVaultError(message, goerrors.CategoryAuthz, VaultErrorAccessDenied).
		WithMetadata(map[string]any{
			"client_id":           clientID,
			"label":               label,
			"missing_permissions": append([]string(nil), missing...),
		})
}

func NewAuthenticationFailedError(message string) *goerrors.Error {
	return newVaultError(message, goerrors.CategoryAuth, VaultErrorAuthenticationFailed)
}

func NewConflictError(message string) *goerrors.Error {
	return newVaultError(message, goerrors.CategoryConflict, VaultErrorConflict)
}

// NewProviderError wraps a malformed or error response from an external
// provider, carrying the provider's own error code when it sent one.
func NewProviderError(provider, code, message string) *goerrors.Error {
	err := newVaultError(message, goerrors.CategoryExternal, VaultErrorProvider)
	metadata := map[string]any{"provider": provider}
	if strings.TrimSpace(code) != "" {
		metadata["provider_error_code"] = code
	}
	return err.WithMetadata(metadata)
}

func NewSessionExpiredError(message string) *goerrors.Error {
	return newVaultError(message, goerrors.CategoryAuth, VaultErrorSessionExpired)
}

func NewTokenExpiredError(message string) *goerrors.Error {
	return newVaultError(message, goerrors.CategoryAuth, VaultErrorTokenExpired)
}

// NewSignInRestartError translates an invalid_grant exchange failure into
// the restart-flow signal. Target is the caller's original post-sign-in
// destination so the flow can be restarted at the authorization step.
func NewSignInRestartError(provider, target string) *goerrors.Error {
	return newVaultError(
		"provider rejected the authorization grant; restart the sign-in flow",
		goerrors.CategoryExternal,
		VaultErrorSignInRestart,
	).WithMetadata(map[string]any{
		"provider": provider,
		"target":   target,
	})
}

// IsSignInRestart reports whether err carries the restart-flow signal and,
// when it does, the original sign-in target.
func IsSignInRestart(err error) (string, bool) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return "", false
	}
	if richErr.TextCode != VaultErrorSignInRestart {
		return "", false
	}
	target, _ := richErr.Metadata["target"].(string)
	return target, true
}

// HasTextCode reports whether err is a vault error envelope with the given
// text code.
func HasTextCode(err error, textCode string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

func vaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureVaultErrorEnvelope(richErr)
	}
	if errors.Is(err, ErrSessionNotFound) {
		return ensureVaultErrorEnvelope(
			newVaultError(err.Error(), goerrors.CategoryAuth, VaultErrorAuthenticationFailed))
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newVaultError(err.Error(), goerrors.CategoryNotFound, VaultErrorNotFound)
	case strings.Contains(msg, "duplicate"), strings.Contains(msg, "unique constraint"):
		return newVaultError(err.Error(), goerrors.CategoryConflict, VaultErrorConflict)
	case strings.Contains(msg, "state mismatch"), strings.Contains(msg, "authentication"):
		return newVaultError(err.Error(), goerrors.CategoryAuth, VaultErrorAuthenticationFailed)
	case strings.Contains(msg, "expired"):
		return newVaultError(err.Error(), goerrors.CategoryAuth, VaultErrorSessionExpired)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newVaultError(err.Error(), goerrors.CategoryBadInput, VaultErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureVaultErrorEnvelope(mapped)
}

func newVaultError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureVaultErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureVaultErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = vaultHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultVaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultVaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return VaultErrorBadInput
	case goerrors.CategoryNotFound:
		return VaultErrorNotFound
	case goerrors.CategoryAuth:
		return VaultErrorAuthenticationFailed
	case goerrors.CategoryAuthz:
		return VaultErrorAccessDenied
	case goerrors.CategoryConflict:
		return VaultErrorConflict
	case goerrors.CategoryExternal:
		return VaultErrorProvider
	default:
		return VaultErrorInternal
	}
}

func vaultHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

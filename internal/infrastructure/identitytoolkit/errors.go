package identitytoolkit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

type operation string

const (
	opSignUp        operation = "signUp"
	opSignIn        operation = "signInWithPassword"
	opSignInIdp     operation = "signInWithIdp"
	opVerifyEmail   operation = "sendOobCode(VERIFY_EMAIL)"
	opPasswordReset operation = "sendOobCode(PASSWORD_RESET)"
	opUpdate        operation = "update"
	opLookup        operation = "lookup"
	opRefresh       operation = "token"
)

// errorBody covers both the Identity Toolkit shape
// {"error":{"code":400,"message":"EMAIL_EXISTS"}} and the Secure Token one
// {"error":{"message":"TOKEN_EXPIRED","status":"INVALID_ARGUMENT"}}.
type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func providerMessage(raw []byte) string {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Error.Message != "" {
		return eb.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

// mapError turns a provider error message into a domain error. Messages look
// like "WEAK_PASSWORD : Password should be at least 6 characters"; only the
// part before " : " is a stable code.
func mapError(op operation, status int, message string) error {
	code, detail, _ := strings.Cut(message, " : ")
	code = strings.TrimSpace(code)
	cause := fmt.Errorf("%s: %d %s", op, status, message)

	switch code {
	case "EMAIL_EXISTS":
		return domain.ErrEmailAlreadyInUse()
	case "EMAIL_NOT_FOUND":
		if op == opPasswordReset {
			return domain.ErrUserNotFound()
		}
		return domain.ErrInvalidCredentials()
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return domain.ErrInvalidCredentials()
	case "USER_DISABLED":
		return domain.ErrAccountDisabled()
	case "WEAK_PASSWORD":
		return domain.ErrWeakPassword(strings.TrimSpace(detail))
	case "INVALID_EMAIL":
		return domain.ErrInvalidField("email", "invalid")
	case "MISSING_PASSWORD":
		return domain.ErrMissingField("password")
	case "MISSING_EMAIL":
		return domain.ErrMissingField("email")
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return domain.ErrRateLimited("identity_provider")
	case "INVALID_IDP_RESPONSE", "INVALID_CREDENTIAL_OR_PROVIDER_ID", "INVALID_OAUTH_CLIENT_ID", "INVALID_PROVIDER_ID":
		return domain.ErrInvalidIdPCredential(cause)
	case "TOKEN_EXPIRED", "CREDENTIAL_TOO_OLD_LOGIN_AGAIN":
		return domain.ErrTokenExpired()
	case "INVALID_ID_TOKEN", "INVALID_REFRESH_TOKEN", "INVALID_GRANT_TYPE", "MISSING_REFRESH_TOKEN":
		return domain.ErrTokenInvalid()
	case "USER_NOT_FOUND":
		if op == opRefresh || op == opLookup || op == opUpdate {
			return domain.ErrTokenInvalid()
		}
		return domain.ErrUserNotFound()
	}

	if status >= http.StatusInternalServerError {
		return domain.ErrProviderUnavailable(cause)
	}
	if code == "" {
		code = http.StatusText(status)
	}
	return domain.ErrProvider(code, cause)
}

package auth

import (
	"errors"
	"strconv"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

// Op names the account operation a failure notification is built for.
type Op string

const (
	OpRegister         Op = "register"
	OpSignIn           Op = "login"
	OpProviderSignIn   Op = "provider_login"
	OpResetPassword    Op = "password_reset"
	OpProfileWrite     Op = "profile_write"
	OpSignOut          Op = "logout"
	OpSessionLifecycle Op = "session"
)

// FailureNotice builds the error toast shown for a failed operation.
// Register and password sign-in stay generic; the rest surface the message.
func FailureNotice(op Op, err error) domain.Notification {
	switch op {
	case OpRegister, OpSignIn, OpSignOut, OpSessionLifecycle:
		return domain.Failure("")
	case OpProviderSignIn:
		if domain.Is(err, "email_already_in_use") {
			return domain.Failure(domain.MsgEmailInUse)
		}
		return domain.Failure(messageOf(err))
	default:
		return domain.Failure(messageOf(err))
	}
}

func messageOf(err error) string {
	if err == nil {
		return ""
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

func boolString(b bool) string { return strconv.FormatBool(b) }

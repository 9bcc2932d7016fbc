package domain

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarn    Severity = "warn"
	SeverityError   Severity = "error"
)

// Notification is the toast the UI shows after an account operation.
type Notification struct {
	Severity Severity `json:"severity"`
	Summary  string   `json:"summary"`
	Detail   string   `json:"detail,omitempty"`
}

// Navigation targets returned alongside a notification.
const (
	NavigateHome  = "home"
	NavigateLogin = "login"
)

// User-facing texts.
const (
	MsgRegisteredSummary = "Te has registrado"
	MsgSuccessSummary    = "Success"
	MsgErrorSummary      = "Error"
	MsgWelcome           = "Bienvenido"
	MsgEmailInUse        = "Error el correo ya fue usado"
	MsgResetSentSummary  = "Correo enviado"
	MsgResetSentDetail   = "Revisa tu bandeja de entrada"
)

// Welcome greets by name when one is known.
func Welcome(displayName string) string {
	if displayName == "" {
		return MsgWelcome
	}
	return MsgWelcome + " " + displayName
}

func Success(summary, detail string) Notification {
	return Notification{Severity: SeveritySuccess, Summary: summary, Detail: detail}
}

func Failure(detail string) Notification {
	return Notification{Severity: SeverityError, Summary: MsgErrorSummary, Detail: detail}
}

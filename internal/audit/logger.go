package audit

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Logger writes account events produced by the auth service as structured
// log lines tagged audit=true.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Record matches the auth.Service audit hook. Failure actions are logged at
// warn level; e-mail addresses are masked.
func (l *Logger) Record(action string, fields map[string]string) {
	ev := l.log.Info()
	if isFailure(action) {
		ev = l.log.Warn()
	}
	ev = ev.Str("action", action)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if k == "email" {
			v = maskEmail(v)
		}
		ev = ev.Str(k, v)
	}
	ev.Msg("audit " + action)
}

func isFailure(action string) bool {
	return strings.HasSuffix(action, "_failed")
}

// maskEmail partially masks email for privacy in logs
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email[:2] + "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}

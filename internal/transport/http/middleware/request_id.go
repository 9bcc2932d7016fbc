package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	appCtx "github.com/baechuer/real-time-ressys/services/identity-bridge/internal/pkg/context"
)

const HeaderXRequestID = "X-Request-Id"

// RequestID propagates or mints the request id and records the caller
// address. Mount it after chi's RealIP so RemoteAddr is already resolved.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(HeaderXRequestID))
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}

		w.Header().Set(HeaderXRequestID, reqID)

		ctx := appCtx.WithRequestID(r.Context(), reqID)
		ctx = appCtx.WithClientIP(ctx, remoteHost(r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func remoteHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

package response

import (
	"net/http"

	reqctx "github.com/baechuer/real-time-ressys/services/identity-bridge/internal/pkg/context"
)

func RequestIDFromContext(r *http.Request) string {
	return reqctx.GetRequestID(r.Context())
}

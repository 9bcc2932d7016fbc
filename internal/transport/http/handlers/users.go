package http_handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/logger"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/transport/http/response"
)

const defaultHeartbeat = 25 * time.Second

// UsersHandler exposes the "user" document collection.
type UsersHandler struct {
	svc       *auth.Service
	heartbeat time.Duration
}

func NewUsersHandler(svc *auth.Service) *UsersHandler {
	return &UsersHandler{svc: svc, heartbeat: defaultHeartbeat}
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListUsers(r.Context())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.UsersData{Users: dto.NewDocumentList(docs)})
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := response.DecodeJSON(w, r, &fields); err != nil {
		response.WriteError(w, r, err)
		return
	}

	id, err := h.svc.AddUser(r.Context(), fields)
	if err != nil {
		response.WriteErrorNotice(w, r, err, auth.FailureNotice(auth.OpProfileWrite, err))
		return
	}
	response.Created(w, dto.CreatedDocData{ID: id})
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewDocumentView(doc))
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

// SetMine writes the caller's profile document with a new display name.
func (h *UsersHandler) SetMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}
	sid, _ := middleware.SessionIDFromContext(r.Context())

	var req dto.SetUserDataRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	me, err := h.svc.Me(r.Context(), userID, sid)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	u := domain.ProviderUser{
		UID:           me.UID,
		Email:         me.Email,
		PhotoURL:      me.PhotoURL,
		EmailVerified: me.EmailVerified,
	}
	if err := h.svc.SetUserData(r.Context(), u, req.DisplayName); err != nil {
		response.WriteErrorNotice(w, r, err, auth.FailureNotice(auth.OpProfileWrite, err))
		return
	}

	me.DisplayName = req.DisplayName
	response.OK(w, dto.MeData{User: dto.NewUserView(me)})
}

// Stream pushes the ordered listing as server-sent events every time the
// collection changes. The first event is the current listing.
func (h *UsersHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snaps, err := h.svc.WatchUsers(ctx)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	// long-lived response; the server write timeout must not cut it
	_ = rc.SetWriteDeadline(time.Time{})

	response.StartEventStream(w)
	if err := rc.Flush(); err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Msg("user stream: flush unsupported")
		return
	}

	middleware.UserStreamsActive.Inc()
	defer middleware.UserStreamsActive.Dec()

	tick := time.NewTicker(h.heartbeat)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case docs, ok := <-snaps:
			if !ok {
				return
			}
			if err := response.WriteEvent(w, "users", dto.UsersData{Users: dto.NewDocumentList(docs)}); err != nil {
				logger.WithCtx(ctx).Warn().Err(err).Msg("user stream: write snapshot")
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-tick.C:
			if err := response.WriteComment(w, "ping"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

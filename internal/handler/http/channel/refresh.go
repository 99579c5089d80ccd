package channel

import (
	"context"
	"log/slog"
	"net/http"

	"channelmirror/internal/handler/http/pathutil"
	"channelmirror/internal/handler/http/respond"
	channelUC "channelmirror/internal/usecase/channel"
	"channelmirror/internal/usecase/refresh"
)

const refreshSuffix = "/refresh"

// RefreshHandler serves POST /channels/{id}/refresh: it enqueues a
// refresh of that one channel and returns immediately.
type RefreshHandler struct{ Svc *channelUC.Service }

func (h RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractStringID(r.URL.Path, "/channels/", refreshSuffix)
	if err != nil {
		respond.SafeError(w, http.StatusNotFound, pathutil.ErrInvalidID)
		return
	}
	if err := h.Svc.Refresh(r.Context(), id); err != nil {
		respond.SafeError(w, respond.StatusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// RefreshAllHandler serves POST /channels/refresh-all: it enqueues a
// refresh of every enabled channel and returns immediately.
type RefreshAllHandler struct{ Svc *refresh.Service }

func (h RefreshAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	safeCtx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := h.Svc.RefreshAll(safeCtx); err != nil {
			slog.Warn("channel: refresh_all failed", slog.Any("error", err))
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

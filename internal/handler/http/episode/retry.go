package episode

import (
	"net/http"

	"channelmirror/internal/handler/http/pathutil"
	"channelmirror/internal/handler/http/respond"
	episodeUC "channelmirror/internal/usecase/episode"
)

const retrySuffix = "/retry"

// RetryHandler serves POST /episodes/{id}/retry. Only valid when the
// episode's current status is failed; any other status is a conflict.
type RetryHandler struct{ Svc *episodeUC.Service }

func (h RetryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractStringID(r.URL.Path, "/episodes/", retrySuffix)
	if err != nil {
		respond.SafeError(w, http.StatusNotFound, pathutil.ErrInvalidID)
		return
	}
	if err := h.Svc.RetryEpisode(r.Context(), id); err != nil {
		respond.SafeError(w, respond.StatusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

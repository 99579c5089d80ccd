package channel

import (
	"net/http"

	"channelmirror/internal/handler/http/pathutil"
	"channelmirror/internal/handler/http/respond"
	channelUC "channelmirror/internal/usecase/channel"
)

type DeleteHandler struct{ Svc *channelUC.Service }

// ServeHTTP deletes a channel. The delete_files query parameter, when
// "true", also removes every episode's on-disk artifacts.
func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractStringID(r.URL.Path, "/channels/", "")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	deleteFiles := r.URL.Query().Get("delete_files") == "true"

	if err := h.Svc.Delete(r.Context(), id, deleteFiles); err != nil {
		respond.SafeError(w, respond.StatusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

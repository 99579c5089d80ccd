package episode

import (
	"net/http"

	"channelmirror/internal/handler/http/pathutil"
	"channelmirror/internal/handler/http/respond"
	episodeUC "channelmirror/internal/usecase/episode"
)

type DeleteHandler struct{ Svc *episodeUC.Service }

// ServeHTTP deletes an episode. The delete_files query parameter, when
// "true", also removes its on-disk artifacts.
func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractStringID(r.URL.Path, "/episodes/", "")
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

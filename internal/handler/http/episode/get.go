package episode

import (
	"net/http"

	"channelmirror/internal/handler/http/pathutil"
	"channelmirror/internal/handler/http/respond"
	episodeUC "channelmirror/internal/usecase/episode"
)

type GetHandler struct{ Svc *episodeUC.Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractStringID(r.URL.Path, "/episodes/", "")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	ep, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		respond.SafeError(w, respond.StatusFor(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(ep))
}

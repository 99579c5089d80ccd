package channel

import (
	"net/http"

	"channelmirror/internal/handler/http/respond"
	channelUC "channelmirror/internal/usecase/channel"
)

type ListHandler struct{ Svc *channelUC.Service }

// ServeHTTP returns every mirrored channel.
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.List(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]DTO, 0, len(list))
	for _, c := range list {
		out = append(out, toDTO(c))
	}
	respond.JSON(w, http.StatusOK, out)
}

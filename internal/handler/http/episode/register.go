package episode

import (
	"net/http"

	episodeUC "channelmirror/internal/usecase/episode"
)

// Register wires the episode routes onto mux. Channel-scoped listing is
// registered by internal/handler/http/channel since its URL nests under
// /channels/.
func Register(mux *http.ServeMux, svc *episodeUC.Service) {
	mux.Handle("GET    /episodes/", GetHandler{svc})
	mux.Handle("DELETE /episodes/", DeleteHandler{svc})
	mux.Handle("POST   /episodes/", RetryHandler{svc})
}

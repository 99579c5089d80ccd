package status

import (
	"net/http"

	"channelmirror/internal/handler/http/respond"
	statusUC "channelmirror/internal/usecase/status"
)

type StatusHandler struct{ Svc *statusUC.Service }

func (h StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := h.Svc.Get(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toStatusDTO(s))
}

type QueueHandler struct{ Svc *statusUC.Service }

func (h QueueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q, err := h.Svc.GetQueue(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toQueueDTO(q))
}

// Register wires the status routes onto mux.
func Register(mux *http.ServeMux, svc *statusUC.Service) {
	mux.Handle("GET    /status", StatusHandler{svc})
	mux.Handle("GET    /queue", QueueHandler{svc})
}

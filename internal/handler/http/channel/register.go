// Package channel provides the admin HTTP handlers for managing mirrored
// channels and listing their episodes.
package channel

import (
	"net/http"

	"channelmirror/internal/common/pagination"
	channelUC "channelmirror/internal/usecase/channel"
	episodeUC "channelmirror/internal/usecase/episode"
	"channelmirror/internal/usecase/refresh"
)

// Register wires the channel routes onto mux.
func Register(mux *http.ServeMux, channelSvc *channelUC.Service, episodeSvc *episodeUC.Service, refreshSvc *refresh.Service, paginationCfg pagination.Config) {
	mux.Handle("GET    /channels", ListHandler{channelSvc})
	mux.Handle("POST   /channels", CreateHandler{channelSvc})
	mux.Handle("POST   /channels/refresh-all", RefreshAllHandler{refreshSvc})

	mux.Handle("GET    /channels/", GetOrListEpisodesHandler{channelSvc, episodeSvc, paginationCfg})
	mux.Handle("PUT    /channels/", UpdateHandler{channelSvc})
	mux.Handle("DELETE /channels/", DeleteHandler{channelSvc})
	mux.Handle("POST   /channels/", RefreshHandler{channelSvc})
}

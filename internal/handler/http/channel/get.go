package channel

import (
	"net/http"
	"strings"

	"channelmirror/internal/common/pagination"
	"channelmirror/internal/domain/entity"
	"channelmirror/internal/handler/http/pathutil"
	"channelmirror/internal/handler/http/respond"
	channelUC "channelmirror/internal/usecase/channel"
	episodeUC "channelmirror/internal/usecase/episode"
)

const episodesSuffix = "/episodes"

// episodeDTO is the wire representation of an episode, listed under its
// channel. It mirrors the fields an admin client needs to triage a
// channel's episodes without duplicating internal/handler/http/episode's
// full DTO here.
type episodeDTO struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
	LastError  string `json:"last_error,omitempty"`
}

// GetOrListEpisodesHandler serves GET /channels/{id} and
// GET /channels/{id}/episodes. Both share the "/channels/" subtree
// registration, so the suffix is inspected to tell them apart.
type GetOrListEpisodesHandler struct {
	Channels      *channelUC.Service
	Episodes      *episodeUC.Service
	PaginationCfg pagination.Config
}

func (h GetOrListEpisodesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, episodesSuffix) {
		h.listEpisodes(w, r)
		return
	}
	h.getChannel(w, r)
}

func (h GetOrListEpisodesHandler) getChannel(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractStringID(r.URL.Path, "/channels/", "")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	ch, err := h.Channels.Get(r.Context(), id)
	if err != nil {
		respond.SafeError(w, respond.StatusFor(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(ch))
}

func (h GetOrListEpisodesHandler) listEpisodes(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathutil.ExtractStringID(r.URL.Path, "/channels/", episodesSuffix)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	params, err := pagination.ParseQueryParams(r, h.PaginationCfg)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	filter := episodeUC.Filter{Status: entity.EpisodeStatus(r.URL.Query().Get("status"))}

	episodes, metadata, err := h.Episodes.List(r.Context(), channelID, filter, params)
	if err != nil {
		respond.SafeError(w, respond.StatusFor(err), err)
		return
	}

	out := make([]episodeDTO, 0, len(episodes))
	for _, ep := range episodes {
		out = append(out, episodeDTO{
			ID:         ep.ID,
			ExternalID: ep.ExternalID,
			Title:      ep.Title,
			Status:     string(ep.Status),
			RetryCount: ep.RetryCount,
			LastError:  ep.LastError,
		})
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(out, metadata))
}

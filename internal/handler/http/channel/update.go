package channel

import (
	"encoding/json"
	"net/http"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/handler/http/pathutil"
	"channelmirror/internal/handler/http/respond"
	channelUC "channelmirror/internal/usecase/channel"
)

type UpdateHandler struct{ Svc *channelUC.Service }

type updateRequest struct {
	SourceURL    string `json:"source_url"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
	KeepCount    int    `json:"keep_count"`
	Format       string `json:"format"`
	Enabled      bool   `json:"enabled"`
}

// ServeHTTP replaces a channel's mutable fields.
func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractStringID(r.URL.Path, "/channels/", "")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	ch, err := h.Svc.Update(r.Context(), id, channelUC.UpdateInput{
		SourceURL:    req.SourceURL,
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		KeepCount:    req.KeepCount,
		Format:       entity.Format(req.Format),
		Enabled:      req.Enabled,
	})
	if err != nil {
		respond.SafeError(w, respond.StatusFor(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(ch))
}

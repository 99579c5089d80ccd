package channel

import (
	"encoding/json"
	"net/http"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/handler/http/respond"
	channelUC "channelmirror/internal/usecase/channel"
)

type CreateHandler struct{ Svc *channelUC.Service }

type createRequest struct {
	SourceURL    string `json:"source_url"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
	KeepCount    int    `json:"keep_count"`
	Format       string `json:"format"`
	Enabled      bool   `json:"enabled"`
}

// ServeHTTP creates a new channel. Responds 409 if source_url is already
// mirrored, 422 if the payload fails validation.
func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	ch, err := h.Svc.Create(r.Context(), channelUC.CreateInput{
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
	respond.JSON(w, http.StatusCreated, toDTO(ch))
}

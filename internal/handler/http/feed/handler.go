// Package feed serves a channel's completed episodes as an RSS 2.0 or
// Atom 1.0 document, and the underlying media files as plain static
// downloads.
package feed

import (
	"fmt"
	"net/http"
	"strings"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/feed"
	"channelmirror/internal/handler/http/pathutil"
	"channelmirror/internal/handler/http/respond"
	"channelmirror/internal/repository"
)

// Handler serves GET /channels/{id}/feed.xml (RSS) and
// GET /channels/{id}/feed.atom (Atom), and registers a static file server
// for the downloaded media itself.
type Handler struct {
	Channels  repository.ChannelRepository
	Episodes  repository.EpisodeRepository
	PublicURL string // base URL the enclosure/media links are built from, e.g. "http://localhost:8080"
}

const (
	rssSuffix  = "/feed.xml"
	atomSuffix = "/feed.atom"
)

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var suffix string
	switch {
	case strings.HasSuffix(r.URL.Path, rssSuffix):
		suffix = rssSuffix
	case strings.HasSuffix(r.URL.Path, atomSuffix):
		suffix = atomSuffix
	default:
		http.NotFound(w, r)
		return
	}

	channelID, err := pathutil.ExtractStringID(r.URL.Path, "/channels/", suffix)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	ch, err := h.Channels.Get(r.Context(), channelID)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	if ch == nil {
		respond.SafeError(w, http.StatusNotFound, entity.ErrNotFound)
		return
	}

	episodes, err := h.Episodes.ListByChannel(r.Context(), channelID, 0)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	items := make([]feed.Item, 0, len(episodes))
	for _, ep := range episodes {
		if ep.Status != entity.EpisodeStatusCompleted {
			continue
		}
		items = append(items, h.toItem(ep))
	}

	var body []byte
	var contentType string
	if suffix == rssSuffix {
		body, err = feed.RenderRSS(ch, items, h.PublicURL)
		contentType = "application/rss+xml; charset=utf-8"
	} else {
		body, err = feed.RenderAtom(ch, items, h.PublicURL)
		contentType = "application/atom+xml; charset=utf-8"
	}
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(body)
}

func (h Handler) toItem(ep *entity.Episode) feed.Item {
	switch {
	case ep.AudioPath != "":
		size := int64(0)
		if ep.AudioSize != nil {
			size = *ep.AudioSize
		}
		return feed.Item{
			Episode:     ep,
			Enclosure:   fmt.Sprintf("%s/media/%s/audio/%s", h.PublicURL, ep.ChannelID, epFile(ep.AudioPath)),
			ContentType: "audio/mpeg",
			SizeBytes:   size,
		}
	default:
		size := int64(0)
		if ep.VideoSize != nil {
			size = *ep.VideoSize
		}
		return feed.Item{
			Episode:     ep,
			Enclosure:   fmt.Sprintf("%s/media/%s/video/%s", h.PublicURL, ep.ChannelID, epFile(ep.VideoPath)),
			ContentType: "video/mp4",
			SizeBytes:   size,
		}
	}
}

// epFile returns the final path segment, since artifact paths are absolute
// filesystem paths but the media server exposes them relative to
// <download_dir>/<channel_id>/.
func epFile(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// RegisterMedia mounts a static file server over downloadDir at /media/,
// serving exactly the <channel_id>/audio|video/<file> layout the pipeline
// writes to.
func RegisterMedia(mux *http.ServeMux, downloadDir string) {
	fileServer := http.FileServer(http.Dir(downloadDir))
	mux.Handle("GET /media/", http.StripPrefix("/media/", fileServer))
}

// Register wires the feed routes onto mux.
func Register(mux *http.ServeMux, channels repository.ChannelRepository, episodes repository.EpisodeRepository, publicURL, downloadDir string) {
	h := Handler{Channels: channels, Episodes: episodes, PublicURL: publicURL}
	mux.Handle("GET /channels/{id}/feed.xml", h)
	mux.Handle("GET /channels/{id}/feed.atom", h)
	RegisterMedia(mux, downloadDir)
}

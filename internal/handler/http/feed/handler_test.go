package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/handler/http/feed"
)

type fakeChannelRepo struct{ channels map[string]*entity.Channel }

func (r *fakeChannelRepo) Get(_ context.Context, id string) (*entity.Channel, error) {
	return r.channels[id], nil
}
func (r *fakeChannelRepo) GetBySourceURL(_ context.Context, _ string) (*entity.Channel, error) {
	return nil, nil
}
func (r *fakeChannelRepo) List(_ context.Context) ([]*entity.Channel, error)        { return nil, nil }
func (r *fakeChannelRepo) ListEnabled(_ context.Context) ([]*entity.Channel, error) { return nil, nil }
func (r *fakeChannelRepo) Create(_ context.Context, _ *entity.Channel) error        { return nil }
func (r *fakeChannelRepo) Update(_ context.Context, _ *entity.Channel) error        { return nil }
func (r *fakeChannelRepo) Delete(_ context.Context, _ string) error                 { return nil }
func (r *fakeChannelRepo) TouchRefreshedAt(_ context.Context, _ string, _ time.Time) error {
	return nil
}

type fakeEpisodeRepo struct{ byChannel map[string][]*entity.Episode }

func (r *fakeEpisodeRepo) Get(_ context.Context, _ string) (*entity.Episode, error) { return nil, nil }
func (r *fakeEpisodeRepo) GetByExternalID(_ context.Context, _, _ string) (*entity.Episode, error) {
	return nil, nil
}
func (r *fakeEpisodeRepo) ListByChannel(_ context.Context, channelID string, _ int) ([]*entity.Episode, error) {
	return r.byChannel[channelID], nil
}
func (r *fakeEpisodeRepo) OldestCompletedByChannel(_ context.Context, _ string, _ int) ([]*entity.Episode, error) {
	return nil, nil
}
func (r *fakeEpisodeRepo) CountByStatus(_ context.Context, _ string, _ entity.EpisodeStatus) (int, error) {
	return 0, nil
}
func (r *fakeEpisodeRepo) ExistsByExternalIDBatch(_ context.Context, _ string, _ []string) (map[string]bool, error) {
	return nil, nil
}
func (r *fakeEpisodeRepo) Create(_ context.Context, _ *entity.Episode) error { return nil }
func (r *fakeEpisodeRepo) Update(_ context.Context, _ *entity.Episode) error { return nil }
func (r *fakeEpisodeRepo) Delete(_ context.Context, _ string) error          { return nil }

func TestHandler_RSS_ReturnsCompletedEpisodesOnly(t *testing.T) {
	ch := &entity.Channel{ID: "chan-1", Title: "My Channel", SourceURL: "https://example.com/feed"}
	size := int64(1024)
	episodes := []*entity.Episode{
		{ID: "ep-1", ChannelID: "chan-1", Title: "Completed Episode", Status: entity.EpisodeStatusCompleted, AudioPath: "/data/chan-1/audio/ep-1.mp3", AudioSize: &size},
		{ID: "ep-2", ChannelID: "chan-1", Title: "Pending Episode", Status: entity.EpisodeStatusPending},
	}
	h := feed.Handler{
		Channels:  &fakeChannelRepo{channels: map[string]*entity.Channel{"chan-1": ch}},
		Episodes:  &fakeEpisodeRepo{byChannel: map[string][]*entity.Episode{"chan-1": episodes}},
		PublicURL: "http://localhost:8080",
	}

	req := httptest.NewRequest(http.MethodGet, "/channels/chan-1/feed.xml", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "rss") {
		t.Fatalf("Content-Type = %q, want rss", ct)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Completed Episode") {
		t.Fatalf("body = %s, want completed episode present", body)
	}
	if strings.Contains(body, "Pending Episode") {
		t.Fatalf("body = %s, want pending episode excluded", body)
	}
}

func TestHandler_Atom_ReturnsAtomContentType(t *testing.T) {
	ch := &entity.Channel{ID: "chan-1", Title: "My Channel", SourceURL: "https://example.com/feed"}
	h := feed.Handler{
		Channels:  &fakeChannelRepo{channels: map[string]*entity.Channel{"chan-1": ch}},
		Episodes:  &fakeEpisodeRepo{byChannel: map[string][]*entity.Episode{}},
		PublicURL: "http://localhost:8080",
	}

	req := httptest.NewRequest(http.MethodGet, "/channels/chan-1/feed.atom", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "atom") {
		t.Fatalf("Content-Type = %q, want atom", ct)
	}
}

func TestHandler_UnknownChannelReturnsNotFound(t *testing.T) {
	h := feed.Handler{
		Channels:  &fakeChannelRepo{channels: map[string]*entity.Channel{}},
		Episodes:  &fakeEpisodeRepo{byChannel: map[string][]*entity.Episode{}},
		PublicURL: "http://localhost:8080",
	}

	req := httptest.NewRequest(http.MethodGet, "/channels/missing/feed.xml", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandler_UnknownSuffixReturnsNotFound(t *testing.T) {
	h := feed.Handler{
		Channels:  &fakeChannelRepo{channels: map[string]*entity.Channel{}},
		Episodes:  &fakeEpisodeRepo{byChannel: map[string][]*entity.Episode{}},
		PublicURL: "http://localhost:8080",
	}

	req := httptest.NewRequest(http.MethodGet, "/channels/chan-1/feed.json", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

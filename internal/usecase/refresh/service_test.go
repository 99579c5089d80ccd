package refresh_test

import (
	"context"
	"testing"
	"time"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/usecase/pipeline"
	"channelmirror/internal/usecase/queue"
	"channelmirror/internal/usecase/refresh"
)

type fakeChannelRepo struct {
	channels  map[string]*entity.Channel
	refreshed map[string]time.Time
}

func newFakeChannelRepo(channels ...*entity.Channel) *fakeChannelRepo {
	r := &fakeChannelRepo{channels: make(map[string]*entity.Channel), refreshed: make(map[string]time.Time)}
	for _, c := range channels {
		r.channels[c.ID] = c
	}
	return r
}

func (r *fakeChannelRepo) Get(_ context.Context, id string) (*entity.Channel, error) { return r.channels[id], nil }
func (r *fakeChannelRepo) GetBySourceURL(_ context.Context, u string) (*entity.Channel, error) {
	for _, c := range r.channels {
		if c.SourceURL == u {
			return c, nil
		}
	}
	return nil, nil
}
func (r *fakeChannelRepo) List(_ context.Context) ([]*entity.Channel, error) {
	out := make([]*entity.Channel, 0, len(r.channels))
	for _, c := range r.channels {
		out = append(out, c)
	}
	return out, nil
}
func (r *fakeChannelRepo) ListEnabled(_ context.Context) ([]*entity.Channel, error) {
	out := make([]*entity.Channel, 0, len(r.channels))
	for _, c := range r.channels {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out, nil
}
func (r *fakeChannelRepo) Create(_ context.Context, c *entity.Channel) error { r.channels[c.ID] = c; return nil }
func (r *fakeChannelRepo) Update(_ context.Context, c *entity.Channel) error { r.channels[c.ID] = c; return nil }
func (r *fakeChannelRepo) Delete(_ context.Context, id string) error        { delete(r.channels, id); return nil }
func (r *fakeChannelRepo) TouchRefreshedAt(_ context.Context, id string, t time.Time) error {
	r.refreshed[id] = t
	return nil
}

type fakeEpisodeRepo struct {
	episodes map[string]*entity.Episode
}

func newFakeEpisodeRepo() *fakeEpisodeRepo {
	return &fakeEpisodeRepo{episodes: make(map[string]*entity.Episode)}
}

func (r *fakeEpisodeRepo) Get(_ context.Context, id string) (*entity.Episode, error) { return r.episodes[id], nil }
func (r *fakeEpisodeRepo) GetByExternalID(_ context.Context, channelID, externalID string) (*entity.Episode, error) {
	for _, e := range r.episodes {
		if e.ChannelID == channelID && e.ExternalID == externalID {
			return e, nil
		}
	}
	return nil, nil
}
func (r *fakeEpisodeRepo) ListByChannel(_ context.Context, channelID string, limit int) ([]*entity.Episode, error) {
	var out []*entity.Episode
	for _, e := range r.episodes {
		if e.ChannelID == channelID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (r *fakeEpisodeRepo) OldestCompletedByChannel(_ context.Context, channelID string, n int) ([]*entity.Episode, error) {
	return nil, nil
}
func (r *fakeEpisodeRepo) CountByStatus(_ context.Context, channelID string, status entity.EpisodeStatus) (int, error) {
	count := 0
	for _, e := range r.episodes {
		if e.ChannelID == channelID && e.Status == status {
			count++
		}
	}
	return count, nil
}
func (r *fakeEpisodeRepo) ExistsByExternalIDBatch(_ context.Context, channelID string, externalIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range externalIDs {
		for _, e := range r.episodes {
			if e.ChannelID == channelID && e.ExternalID == id {
				out[id] = true
			}
		}
	}
	return out, nil
}
func (r *fakeEpisodeRepo) Create(_ context.Context, e *entity.Episode) error { r.episodes[e.ID] = e; return nil }
func (r *fakeEpisodeRepo) Update(_ context.Context, e *entity.Episode) error { r.episodes[e.ID] = e; return nil }
func (r *fakeEpisodeRepo) Delete(_ context.Context, id string) error        { delete(r.episodes, id); return nil }

type fakeQueueRepo struct {
	items map[string]*entity.QueueItem
}

func newFakeQueueRepo() *fakeQueueRepo { return &fakeQueueRepo{items: make(map[string]*entity.QueueItem)} }

func (r *fakeQueueRepo) Get(_ context.Context, id string) (*entity.QueueItem, error) { return r.items[id], nil }
func (r *fakeQueueRepo) GetByEpisode(_ context.Context, episodeID string) (*entity.QueueItem, error) {
	for _, it := range r.items {
		if it.EpisodeID == episodeID {
			return it, nil
		}
	}
	return nil, nil
}
func (r *fakeQueueRepo) NextPending(_ context.Context) (*entity.QueueItem, error) { return nil, nil }
func (r *fakeQueueRepo) Retryable(_ context.Context, now time.Time) ([]*entity.QueueItem, error) {
	return nil, nil
}
func (r *fakeQueueRepo) CountByStatus(_ context.Context, status entity.QueueItemStatus) (int, error) {
	return 0, nil
}
func (r *fakeQueueRepo) Create(_ context.Context, it *entity.QueueItem) error { r.items[it.ID] = it; return nil }
func (r *fakeQueueRepo) Update(_ context.Context, it *entity.QueueItem) error { r.items[it.ID] = it; return nil }
func (r *fakeQueueRepo) Delete(_ context.Context, id string) error           { delete(r.items, id); return nil }

type fakeFetcher struct {
	entries []pipeline.FeedEntry
	err     error
}

func (f *fakeFetcher) ListChannelItems(_ context.Context, _ string) ([]pipeline.FeedEntry, error) {
	return f.entries, f.err
}
func (f *fakeFetcher) FetchItemMetadata(_ context.Context, _ string) (pipeline.FeedEntry, error) {
	return pipeline.FeedEntry{}, nil
}
func (f *fakeFetcher) FetchItemMedia(_ context.Context, _, outputPath string, _ pipeline.ProgressSink) (string, error) {
	return outputPath, nil
}

func testChannel() *entity.Channel {
	now := time.Now()
	return &entity.Channel{
		ID: "chan-1", SourceURL: "https://example.com/feed.xml", Title: "Channel",
		KeepCount: 10, Format: entity.FormatAudio, Enabled: true,
		CreatedAt: now, UpdatedAt: now,
	}
}

func TestRefreshAll_InsertsNewEpisodesAndEnqueues(t *testing.T) {
	channels := newFakeChannelRepo(testChannel())
	episodes := newFakeEpisodeRepo()
	queueSvc := queue.NewService(newFakeQueueRepo())
	fetcher := &fakeFetcher{entries: []pipeline.FeedEntry{
		{ExternalID: "v1", Title: "Episode 1"},
		{ExternalID: "v2", Title: "Episode 2"},
	}}

	svc := refresh.NewService(channels, episodes, fetcher, queueSvc)
	stats, err := svc.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if stats.Inserted != 2 {
		t.Fatalf("Inserted = %d, want 2", stats.Inserted)
	}
	if len(episodes.episodes) != 2 {
		t.Fatalf("episodes created = %d, want 2", len(episodes.episodes))
	}
	if _, ok := channels.refreshed["chan-1"]; !ok {
		t.Fatal("TouchRefreshedAt: want it to have been called")
	}
}

func TestRefreshAll_SkipsDuplicateExternalIDs(t *testing.T) {
	channels := newFakeChannelRepo(testChannel())
	episodes := newFakeEpisodeRepo()
	episodes.episodes["existing"] = &entity.Episode{ID: "existing", ChannelID: "chan-1", ExternalID: "v1"}
	queueSvc := queue.NewService(newFakeQueueRepo())
	fetcher := &fakeFetcher{entries: []pipeline.FeedEntry{
		{ExternalID: "v1", Title: "Already known"},
		{ExternalID: "v2", Title: "New"},
	}}

	svc := refresh.NewService(channels, episodes, fetcher, queueSvc)
	stats, err := svc.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if stats.Duplicate != 1 {
		t.Fatalf("Duplicate = %d, want 1", stats.Duplicate)
	}
	if stats.Inserted != 1 {
		t.Fatalf("Inserted = %d, want 1", stats.Inserted)
	}
}

func TestRefreshAll_IsolatesPerChannelFetchFailure(t *testing.T) {
	broken := testChannel()
	broken.ID, broken.SourceURL = "chan-broken", "https://example.com/broken.xml"
	healthy := testChannel()

	channels := newFakeChannelRepo(broken, healthy)
	episodes := newFakeEpisodeRepo()
	queueSvc := queue.NewService(newFakeQueueRepo())

	svc := refresh.NewService(channels, episodes, &erroringFetcher{}, queueSvc)
	stats, err := svc.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("RefreshAll: want nil error even when one channel fails, got %v", err)
	}
	if stats.Channels != 2 {
		t.Fatalf("Channels = %d, want 2", stats.Channels)
	}
}

type erroringFetcher struct{}

func (erroringFetcher) ListChannelItems(_ context.Context, sourceURL string) ([]pipeline.FeedEntry, error) {
	if sourceURL == "https://example.com/broken.xml" {
		return nil, &pipeline.ExternalError{Kind: entity.ErrorKindNetwork, Err: context.DeadlineExceeded}
	}
	return nil, nil
}
func (erroringFetcher) FetchItemMetadata(_ context.Context, _ string) (pipeline.FeedEntry, error) {
	return pipeline.FeedEntry{}, nil
}
func (erroringFetcher) FetchItemMedia(_ context.Context, _, outputPath string, _ pipeline.ProgressSink) (string, error) {
	return outputPath, nil
}

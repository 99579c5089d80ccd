package retention_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/usecase/retention"
)

type fakeChannelRepo struct{ channels map[string]*entity.Channel }

func (r *fakeChannelRepo) Get(_ context.Context, id string) (*entity.Channel, error) { return r.channels[id], nil }
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

type fakeEpisodeRepo struct {
	episodes map[string]*entity.Episode
}

func (r *fakeEpisodeRepo) Get(_ context.Context, id string) (*entity.Episode, error) { return r.episodes[id], nil }
func (r *fakeEpisodeRepo) GetByExternalID(_ context.Context, _, _ string) (*entity.Episode, error) {
	return nil, nil
}
func (r *fakeEpisodeRepo) ListByChannel(_ context.Context, _ string, _ int) ([]*entity.Episode, error) {
	return nil, nil
}
func (r *fakeEpisodeRepo) OldestCompletedByChannel(_ context.Context, channelID string, n int) ([]*entity.Episode, error) {
	var matches []*entity.Episode
	for _, e := range r.episodes {
		if e.ChannelID == channelID && e.Status == entity.EpisodeStatusCompleted {
			matches = append(matches, e)
		}
	}
	if len(matches) > n {
		matches = matches[:n]
	}
	return matches, nil
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
func (r *fakeEpisodeRepo) ExistsByExternalIDBatch(_ context.Context, _ string, _ []string) (map[string]bool, error) {
	return nil, nil
}
func (r *fakeEpisodeRepo) Create(_ context.Context, e *entity.Episode) error { r.episodes[e.ID] = e; return nil }
func (r *fakeEpisodeRepo) Update(_ context.Context, e *entity.Episode) error { r.episodes[e.ID] = e; return nil }
func (r *fakeEpisodeRepo) Delete(_ context.Context, id string) error        { delete(r.episodes, id); return nil }

func TestRunForChannel_DeletesOverflowArtifacts(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "old.mp3")
	if err := os.WriteFile(audioPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	size := int64(1)

	channel := &entity.Channel{ID: "chan-1", KeepCount: 1, Format: entity.FormatAudio, Enabled: true}
	overflowEpisode := &entity.Episode{ID: "ep-old", ChannelID: "chan-1", Status: entity.EpisodeStatusCompleted, AudioPath: audioPath, AudioSize: &size}

	channels := &fakeChannelRepo{channels: map[string]*entity.Channel{"chan-1": channel}}
	episodes := &fakeEpisodeRepo{episodes: map[string]*entity.Episode{
		"ep-keep": {ID: "ep-keep", ChannelID: "chan-1", Status: entity.EpisodeStatusCompleted},
		"ep-old":  overflowEpisode,
	}}

	svc := retention.NewService(channels, episodes)
	if err := svc.RunForChannel(context.Background(), "chan-1"); err != nil {
		t.Fatalf("RunForChannel: %v", err)
	}

	if _, err := os.Stat(audioPath); !os.IsNotExist(err) {
		t.Fatalf("audio file: want removed, stat err=%v", err)
	}
	got := episodes.episodes["ep-old"]
	if got.Status != entity.EpisodeStatusDeleted {
		t.Fatalf("status = %s, want deleted", got.Status)
	}
	if got.AudioPath != "" {
		t.Fatal("AudioPath: want cleared")
	}
}

func TestRunForChannel_NoOverflowIsNoop(t *testing.T) {
	channel := &entity.Channel{ID: "chan-1", KeepCount: 5, Format: entity.FormatAudio, Enabled: true}
	channels := &fakeChannelRepo{channels: map[string]*entity.Channel{"chan-1": channel}}
	episodes := &fakeEpisodeRepo{episodes: map[string]*entity.Episode{
		"ep-1": {ID: "ep-1", ChannelID: "chan-1", Status: entity.EpisodeStatusCompleted},
	}}

	svc := retention.NewService(channels, episodes)
	if err := svc.RunForChannel(context.Background(), "chan-1"); err != nil {
		t.Fatalf("RunForChannel: %v", err)
	}
	if episodes.episodes["ep-1"].Status != entity.EpisodeStatusCompleted {
		t.Fatal("episode: want untouched when within keep_count")
	}
}

func TestRunForChannel_UnknownChannelIsNoop(t *testing.T) {
	channels := &fakeChannelRepo{channels: map[string]*entity.Channel{}}
	episodes := &fakeEpisodeRepo{episodes: map[string]*entity.Episode{}}

	svc := retention.NewService(channels, episodes)
	if err := svc.RunForChannel(context.Background(), "missing"); err != nil {
		t.Fatalf("RunForChannel: %v", err)
	}
}

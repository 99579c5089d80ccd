package fetcher

import (
	"testing"

	"github.com/mmcdole/gofeed"
)

func TestParseDurationSeconds(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"01:02:03", 3723, true},
		{"05:30", 330, true},
		{"45", 45, true},
		{"not-a-duration", 0, false},
	}
	for _, c := range cases {
		got, ok := parseDurationSeconds(c.in)
		if ok != c.ok {
			t.Fatalf("parseDurationSeconds(%q): ok=%v, want %v", c.in, ok, c.ok)
		}
		if ok && got != c.want {
			t.Fatalf("parseDurationSeconds(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestToFeedEntry(t *testing.T) {
	item := &gofeed.Item{
		GUID:        "video-123",
		Title:       "Episode title",
		Description: "Episode description",
		Image:       &gofeed.Image{URL: "https://example.com/thumb.jpg"},
	}
	entry := toFeedEntry(item)

	if entry.ExternalID != "video-123" {
		t.Fatalf("ExternalID = %q, want video-123", entry.ExternalID)
	}
	if entry.Title != "Episode title" {
		t.Fatalf("Title = %q", entry.Title)
	}
	if entry.ThumbnailURL != "https://example.com/thumb.jpg" {
		t.Fatalf("ThumbnailURL = %q", entry.ThumbnailURL)
	}
	if entry.DurationSeconds != nil {
		t.Fatalf("DurationSeconds: want nil when no itunes extension present")
	}
}

func TestToFeedEntry_FallsBackToLinkWhenNoGUID(t *testing.T) {
	item := &gofeed.Item{Link: "https://example.com/watch?v=abc"}
	entry := toFeedEntry(item)
	if entry.ExternalID != "https://example.com/watch?v=abc" {
		t.Fatalf("ExternalID = %q, want the link fallback", entry.ExternalID)
	}
}

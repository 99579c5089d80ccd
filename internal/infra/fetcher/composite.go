package fetcher

import (
	"context"

	"channelmirror/internal/usecase/pipeline"
)

// CompositeFetcher satisfies pipeline.Fetcher by pairing a feed-based
// lister/metadata source with an exec-based media downloader, since no
// single external dependency covers both concerns.
type CompositeFetcher struct {
	Feed  *YouTubeFeedFetcher
	Media *ExecMediaFetcher
}

func NewCompositeFetcher(feed *YouTubeFeedFetcher, media *ExecMediaFetcher) *CompositeFetcher {
	return &CompositeFetcher{Feed: feed, Media: media}
}

func (f *CompositeFetcher) ListChannelItems(ctx context.Context, sourceURL string) ([]pipeline.FeedEntry, error) {
	return f.Feed.ListChannelItems(ctx, sourceURL)
}

func (f *CompositeFetcher) FetchItemMetadata(ctx context.Context, externalID string) (pipeline.FeedEntry, error) {
	return f.Feed.FetchItemMetadata(ctx, externalID)
}

func (f *CompositeFetcher) FetchItemMedia(ctx context.Context, externalID, outputPath string, sink pipeline.ProgressSink) (string, error) {
	return f.Media.FetchItemMedia(ctx, externalID, outputPath, sink)
}

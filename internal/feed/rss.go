// Package feed renders a channel's completed episodes as an RSS 2.0 feed
// (with the iTunes podcast extensions a client expects) or an Atom 1.0
// feed.
package feed

import (
	"encoding/xml"
	"fmt"
	"time"

	"channelmirror/internal/domain/entity"
)

// rss is the root RSS 2.0 element.
type rss struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	ItunesNS string  `xml:"xmlns:itunes,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate"`
	ItunesImage   *itunesImage `xml:"itunes:image"`
	Items         []rssItem `xml:"item"`
}

type itunesImage struct {
	Href string `xml:"href,attr"`
}

type rssItem struct {
	Title       string      `xml:"title"`
	Description string      `xml:"description,omitempty"`
	GUID        rssGUID     `xml:"guid"`
	PubDate     string      `xml:"pubDate,omitempty"`
	Enclosure   rssEnclosure `xml:"enclosure"`
	Duration    string      `xml:"itunes:duration,omitempty"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length string `xml:"length,attr"`
}

// Item is the information RenderRSS/RenderAtom need about one completed
// episode, already resolved to a public download URL by the caller.
type Item struct {
	Episode     *entity.Episode
	Enclosure   string // absolute URL to the downloaded artifact
	ContentType string // e.g. "audio/mpeg" or "video/mp4"
	SizeBytes   int64
}

// RenderRSS builds an RSS 2.0 document for channel's completed episodes.
// linkURL is the channel's public page (or source URL if it has none);
// imageURL may be empty.
func RenderRSS(ch *entity.Channel, items []Item, linkURL string) ([]byte, error) {
	channel := rssChannel{
		Title:         ch.Title,
		Link:          linkURL,
		Description:   ch.Description,
		Language:      "en-us",
		LastBuildDate: time.Now().UTC().Format(time.RFC1123Z),
	}
	if ch.ThumbnailURL != "" {
		channel.ItunesImage = &itunesImage{Href: ch.ThumbnailURL}
	}

	channel.Items = make([]rssItem, 0, len(items))
	for _, it := range items {
		channel.Items = append(channel.Items, toRSSItem(it))
	}

	doc := rss{Version: "2.0", ItunesNS: "http://www.itunes.com/dtds/podcast-1.0.dtd", Channel: channel}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("feed: marshal rss: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func toRSSItem(it Item) rssItem {
	ep := it.Episode
	item := rssItem{
		Title:       ep.Title,
		Description: ep.Description,
		GUID:        rssGUID{IsPermaLink: "false", Value: ep.ExternalID},
		Enclosure: rssEnclosure{
			URL:    it.Enclosure,
			Type:   it.ContentType,
			Length: fmt.Sprintf("%d", it.SizeBytes),
		},
	}
	if ep.PublishedAt != nil {
		item.PubDate = ep.PublishedAt.UTC().Format(time.RFC1123Z)
	}
	if ep.DurationSeconds != nil {
		item.Duration = fmt.Sprintf("%d", *ep.DurationSeconds)
	}
	return item
}

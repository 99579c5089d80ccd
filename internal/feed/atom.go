package feed

import (
	"encoding/xml"
	"fmt"
	"time"

	"channelmirror/internal/domain/entity"
)

// atomFeed is the root Atom 1.0 element.
type atomFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Xmlns   string       `xml:"xmlns,attr"`
	Title   string       `xml:"title"`
	ID      string       `xml:"id"`
	Link    atomLink     `xml:"link"`
	Updated string       `xml:"updated"`
	Entries []atomEntry  `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
}

type atomEntry struct {
	Title     string   `xml:"title"`
	ID        string   `xml:"id"`
	Updated   string   `xml:"updated"`
	Published string   `xml:"published,omitempty"`
	Summary   string   `xml:"summary,omitempty"`
	Link      atomLink `xml:"link"`
}

// RenderAtom builds an Atom 1.0 document for channel's completed episodes.
func RenderAtom(ch *entity.Channel, items []Item, linkURL string) ([]byte, error) {
	feed := atomFeed{
		Xmlns:   "http://www.w3.org/2005/Atom",
		Title:   ch.Title,
		ID:      feedID(ch),
		Link:    atomLink{Href: linkURL, Rel: "alternate"},
		Updated: time.Now().UTC().Format(time.RFC3339),
	}

	feed.Entries = make([]atomEntry, 0, len(items))
	for _, it := range items {
		feed.Entries = append(feed.Entries, toAtomEntry(it))
	}

	body, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("feed: marshal atom: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func toAtomEntry(it Item) atomEntry {
	ep := it.Episode
	updated := ep.UpdatedAt.UTC().Format(time.RFC3339)
	entry := atomEntry{
		Title:   ep.Title,
		ID:      fmt.Sprintf("urn:channelmirror:episode:%s", ep.ID),
		Updated: updated,
		Summary: ep.Description,
		Link:    atomLink{Href: it.Enclosure, Rel: "enclosure"},
	}
	if ep.PublishedAt != nil {
		entry.Published = ep.PublishedAt.UTC().Format(time.RFC3339)
	}
	return entry
}

func feedID(ch *entity.Channel) string {
	return fmt.Sprintf("urn:channelmirror:channel:%s", ch.ID)
}

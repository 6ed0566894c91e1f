package plex

import (
	"fmt"
	"strings"

	"plexbanner/internal/banner"
	"plexbanner/internal/mediainfo"
)

// ItemType is a Plex metadata type.
type ItemType string

const (
	TypeMovie   ItemType = "movie"
	TypeShow    ItemType = "show"
	TypeSeason  ItemType = "season"
	TypeEpisode ItemType = "episode"
)

func (t ItemType) code() int {
	switch t {
	case TypeMovie:
		return 1
	case TypeShow:
		return 2
	case TypeSeason:
		return 3
	case TypeEpisode:
		return 4
	}
	return 0
}

// Item is the metadata of one library item.
type Item struct {
	RatingKey       string
	GUID            string
	Type            ItemType
	Title           string
	ShowTitle       string
	Season          int
	Episode         int
	Thumb           string
	ParentThumb     string
	VideoResolution string
	File            string
	Size            int64
	Streams         []mediainfo.PlexStream
	Labels          []string
	// ViewCount is the number of completed plays by the token's user.
	ViewCount int
}

// Watched reports whether the item has been played at least once.
func (i Item) Watched() bool {
	return i.ViewCount > 0
}

// PosterPath returns the artwork path for the item. Seasons without their
// own artwork fall back to the show poster.
func (i Item) PosterPath() string {
	if i.Thumb != "" {
		return i.Thumb
	}
	if i.Type == TypeSeason {
		return i.ParentThumb
	}
	return ""
}

// Class returns the poster class for the item's type.
func (i Item) Class() (banner.Class, bool) {
	switch i.Type {
	case TypeMovie:
		return banner.ClassFilmWide, true
	case TypeEpisode:
		return banner.ClassTVEpisode, true
	case TypeSeason:
		return banner.ClassTVSeason, true
	}
	return "", false
}

// Attributes derives media attributes from the stream metadata Plex reports.
func (i Item) Attributes() banner.MediaAttributes {
	return mediainfo.FromPlex(i.VideoResolution, i.Streams)
}

// HasLabel reports whether the label is already attached.
func (i Item) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// DisplayTitle is a human readable name for logs and tables.
func (i Item) DisplayTitle() string {
	switch i.Type {
	case TypeEpisode:
		return strings.TrimSpace(i.ShowTitle + " " + episodeCode(i.Season, i.Episode) + " " + i.Title)
	case TypeSeason:
		return strings.TrimSpace(i.ShowTitle + " " + i.Title)
	}
	return i.Title
}

func episodeCode(season, episode int) string {
	return fmt.Sprintf("S%02dE%02d", season, episode)
}

type mediaContainer struct {
	Videos      []video     `xml:"Video"`
	Directories []directory `xml:"Directory"`
}

type tag struct {
	Tag string `xml:"tag,attr"`
}

type video struct {
	RatingKey        string  `xml:"ratingKey,attr"`
	GUID             string  `xml:"guid,attr"`
	Type             string  `xml:"type,attr"`
	Title            string  `xml:"title,attr"`
	GrandparentTitle string  `xml:"grandparentTitle,attr"`
	ParentIndex      int     `xml:"parentIndex,attr"`
	Index            int     `xml:"index,attr"`
	Thumb            string  `xml:"thumb,attr"`
	ParentThumb      string  `xml:"parentThumb,attr"`
	ViewCount        int     `xml:"viewCount,attr"`
	Media            []media `xml:"Media"`
	Labels           []tag   `xml:"Label"`
}

type directory struct {
	Key         string `xml:"key,attr"`
	RatingKey   string `xml:"ratingKey,attr"`
	GUID        string `xml:"guid,attr"`
	Type        string `xml:"type,attr"`
	Title       string `xml:"title,attr"`
	ParentTitle string `xml:"parentTitle,attr"`
	Index       int    `xml:"index,attr"`
	Thumb       string `xml:"thumb,attr"`
	ParentThumb string `xml:"parentThumb,attr"`
	Labels      []tag  `xml:"Label"`
}

type media struct {
	VideoResolution string `xml:"videoResolution,attr"`
	Parts           []part `xml:"Part"`
}

type part struct {
	File    string   `xml:"file,attr"`
	Size    int64    `xml:"size,attr"`
	Streams []stream `xml:"Stream"`
}

type stream struct {
	StreamType   int    `xml:"streamType,attr"`
	DisplayTitle string `xml:"displayTitle,attr"`
	DOVIPresent  string `xml:"DOVIPresent,attr"`
	ColorTrc     string `xml:"colorTrc,attr"`
}

func (c mediaContainer) items() []Item {
	items := make([]Item, 0, len(c.Videos)+len(c.Directories))
	for _, v := range c.Videos {
		items = append(items, v.item())
	}
	for _, d := range c.Directories {
		if d.Type != string(TypeSeason) || d.RatingKey == "" {
			continue
		}
		items = append(items, Item{
			RatingKey:   d.RatingKey,
			GUID:        d.GUID,
			Type:        TypeSeason,
			Title:       d.Title,
			ShowTitle:   d.ParentTitle,
			Season:      d.Index,
			Thumb:       d.Thumb,
			ParentThumb: d.ParentThumb,
			Labels:      tagNames(d.Labels),
		})
	}
	return items
}

func (v video) item() Item {
	item := Item{
		RatingKey:   v.RatingKey,
		GUID:        v.GUID,
		Type:        ItemType(v.Type),
		Title:       v.Title,
		ShowTitle:   v.GrandparentTitle,
		Season:      v.ParentIndex,
		Episode:     v.Index,
		Thumb:       v.Thumb,
		ParentThumb: v.ParentThumb,
		Labels:      tagNames(v.Labels),
		ViewCount:   v.ViewCount,
	}
	if len(v.Media) == 0 {
		return item
	}
	m := v.Media[0]
	item.VideoResolution = m.VideoResolution
	if len(m.Parts) == 0 {
		return item
	}
	p := m.Parts[0]
	item.File = p.File
	item.Size = p.Size
	for _, s := range p.Streams {
		item.Streams = append(item.Streams, mediainfo.PlexStream{
			StreamType:   s.StreamType,
			DisplayTitle: s.DisplayTitle,
			DOVIPresent:  s.DOVIPresent == "1" || strings.EqualFold(s.DOVIPresent, "true"),
			ColorTrc:     s.ColorTrc,
		})
	}
	return item
}

func tagNames(tags []tag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Tag != "" {
			out = append(out, t.Tag)
		}
	}
	return out
}

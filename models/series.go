package models

import "time"

// Series is the normalized listing item produced by every extraction
// strategy, regardless of which site it came from.
type Series struct {
	// Title is the series title as displayed on the source site.
	Title string `json:"title"`

	// URL is the absolute link to the series page on the source site.
	URL string `json:"url"`

	// CoverURL is the absolute link to the cover image, if any.
	CoverURL string `json:"cover_url,omitempty"`

	// LatestChapter is the most recent chapter label (e.g. "Chapter 112").
	LatestChapter string `json:"latest_chapter,omitempty"`

	// Chapters lists known chapters, newest first. Usually populated only
	// by detail scrapes; list scrapes carry LatestChapter alone.
	Chapters []Chapter `json:"chapters,omitempty"`

	// Description is the series synopsis, when the page exposes one.
	Description string `json:"description,omitempty"`

	// Source is the registry key of the site this item came from.
	Source string `json:"source"`
}

// Chapter is one chapter entry on a series page.
type Chapter struct {
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	ReleasedAt time.Time `json:"released_at,omitempty"`
}

// ImageRef points at one page image of a chapter. Image extraction is an
// optional source capability; sources without it never produce these.
type ImageRef struct {
	URL   string `json:"url"`
	Index int    `json:"index"`
}

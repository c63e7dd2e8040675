package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/kagemura/scanlate/models"
)

// SelectorSet is the disposable per-site rule table: which CSS selectors
// locate listing cards, detail fields, and chapter rows. These break
// whenever a site redesigns; everything interesting lives elsewhere.
type SelectorSet struct {
	// Listing page.
	Item          string // one listing card
	Title         string // title text, relative to Item
	Link          string // series anchor, relative to Item
	Cover         string // cover img, relative to Item
	LatestChapter string // latest chapter label, relative to Item

	// Details page.
	DetailTitle       string
	DetailCover       string
	DetailDescription string
	ChapterItem       string
	ChapterLink       string

	// Chapter page; empty means the source has no image capability.
	PageImage string
}

// SelectorStrategy extracts normalized items by running a SelectorSet
// over the rendered page HTML with goquery.
type SelectorStrategy struct {
	key string
	sel SelectorSet
}

// NewSelectorStrategy creates a strategy for one site's selector table.
func NewSelectorStrategy(key string, sel SelectorSet) *SelectorStrategy {
	return &SelectorStrategy{key: key, sel: sel}
}

func (s *SelectorStrategy) ExtractList(ctx context.Context, page *rod.Page, baseURL string, limit int) ([]models.Series, error) {
	doc, err := renderedDoc(ctx, page)
	if err != nil {
		return nil, err
	}
	return s.parseList(doc, baseURL, limit)
}

func (s *SelectorStrategy) ExtractDetails(ctx context.Context, page *rod.Page, pageURL string) (*models.Series, error) {
	doc, err := renderedDoc(ctx, page)
	if err != nil {
		return nil, err
	}
	return s.parseDetails(doc, pageURL)
}

func (s *SelectorStrategy) parseList(doc *goquery.Document, baseURL string, limit int) ([]models.Series, error) {
	var items []models.Series
	doc.Find(s.sel.Item).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		item := models.Series{Source: s.key}

		item.Title = strings.TrimSpace(card.Find(s.sel.Title).First().Text())
		if href, ok := card.Find(s.sel.Link).First().Attr("href"); ok {
			item.URL = absURL(baseURL, href)
		}
		if s.sel.Cover != "" {
			item.CoverURL = imageSrc(card.Find(s.sel.Cover).First(), baseURL)
		}
		if s.sel.LatestChapter != "" {
			item.LatestChapter = strings.TrimSpace(card.Find(s.sel.LatestChapter).First().Text())
		}

		// Cards without a title or link are decoration (ads, placeholders).
		if item.Title == "" || item.URL == "" {
			return true
		}
		items = append(items, item)
		return limit <= 0 || len(items) < limit
	})

	if len(items) == 0 {
		return nil, fmt.Errorf("no listing items matched %q", s.sel.Item)
	}
	return items, nil
}

func (s *SelectorStrategy) parseDetails(doc *goquery.Document, pageURL string) (*models.Series, error) {
	item := &models.Series{Source: s.key, URL: pageURL}
	item.Title = strings.TrimSpace(doc.Find(s.sel.DetailTitle).First().Text())
	if item.Title == "" {
		return nil, nil
	}
	if s.sel.DetailCover != "" {
		item.CoverURL = imageSrc(doc.Find(s.sel.DetailCover).First(), pageURL)
	}
	if s.sel.DetailDescription != "" {
		item.Description = strings.TrimSpace(doc.Find(s.sel.DetailDescription).First().Text())
	}

	doc.Find(s.sel.ChapterItem).Each(func(_ int, row *goquery.Selection) {
		link := row.Find(s.sel.ChapterLink).First()
		ch := models.Chapter{Title: strings.TrimSpace(link.Text())}
		if href, ok := link.Attr("href"); ok {
			ch.URL = absURL(pageURL, href)
		}
		if ch.Title != "" && ch.URL != "" {
			item.Chapters = append(item.Chapters, ch)
		}
	})
	if len(item.Chapters) > 0 {
		item.LatestChapter = item.Chapters[0].Title
	}
	return item, nil
}

// imageStrategy adds the optional chapter-image capability on top of a
// SelectorStrategy. Wrap with WithImages only for sources whose selector
// table carries a PageImage rule.
type imageStrategy struct {
	*SelectorStrategy
}

// WithImages upgrades the strategy with the image-extraction capability.
func (s *SelectorStrategy) WithImages() Strategy {
	return &imageStrategy{SelectorStrategy: s}
}

func (s *imageStrategy) ExtractImages(ctx context.Context, page *rod.Page, pageURL string) ([]models.ImageRef, error) {
	doc, err := renderedDoc(ctx, page)
	if err != nil {
		return nil, err
	}
	return s.parseImages(doc, pageURL)
}

func (s *imageStrategy) parseImages(doc *goquery.Document, pageURL string) ([]models.ImageRef, error) {
	if s.sel.PageImage == "" {
		return nil, fmt.Errorf("source %q has no page-image selector", s.key)
	}

	var images []models.ImageRef
	doc.Find(s.sel.PageImage).Each(func(i int, img *goquery.Selection) {
		if src := imageSrc(img, pageURL); src != "" {
			images = append(images, models.ImageRef{URL: src, Index: i})
		}
	})
	if len(images) == 0 {
		return nil, fmt.Errorf("no chapter images matched %q", s.sel.PageImage)
	}
	return images, nil
}

// renderedDoc snapshots the live page's HTML into a goquery document.
func renderedDoc(ctx context.Context, page *rod.Page) (*goquery.Document, error) {
	html, err := page.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("reading rendered HTML: %w", err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// imageSrc reads an img's source, preferring the lazy-load attribute
// most listing themes use over the placeholder in src.
func imageSrc(img *goquery.Selection, base string) string {
	for _, attr := range []string{"data-src", "data-lazy-src", "src"} {
		if v, ok := img.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return absURL(base, v)
			}
		}
	}
	return ""
}

// absURL resolves href against base; bad input falls through unchanged.
func absURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

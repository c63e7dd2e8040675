package source

// madaraSelectors is the rule table shared by sites built on the Madara
// WordPress theme. Individual sources only differ in base URL and which
// optional capabilities their pages expose.
var madaraSelectors = SelectorSet{
	Item:          "div.page-item-detail",
	Title:         "h3.h5 a, .post-title a",
	Link:          "h3.h5 a, .post-title a",
	Cover:         ".item-thumb img",
	LatestChapter: ".chapter-item .chapter a",

	DetailTitle:       ".post-title h1",
	DetailCover:       ".summary_image img",
	DetailDescription: ".description-summary .summary__content",
	ChapterItem:       "li.wp-manga-chapter",
	ChapterLink:       "a",

	PageImage: ".reading-content img.wp-manga-chapter-img",
}

// DefaultRegistry returns the registry of built-in sources. Adding a
// source means adding one entry here; dispatch never changes.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(&Source{
		Key:          "kunmanga",
		Name:         "KunManga",
		BaseURL:      "https://kunmanga.com",
		ListingPath:  "/manga/?m_orderby=latest",
		WaitSelector: "div.page-item-detail",
		Strategy:     NewSelectorStrategy("kunmanga", madaraSelectors).WithImages(),
	})

	// No image capability: its reader assembles pages with canvas, so
	// only listings and details are supported.
	r.MustRegister(&Source{
		Key:          "manhuafast",
		Name:         "ManhuaFast",
		BaseURL:      "https://manhuafast.com",
		ListingPath:  "/manga/?m_orderby=latest",
		WaitSelector: "div.page-item-detail",
		Strategy:     NewSelectorStrategy("manhuafast", madaraSelectors),
	})

	return r
}

package models

// Viewport is the emulated browser window size for a scrape.
type Viewport struct {
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
}

// Delay paces requests against a source before extraction runs.
// With Max == 0 the delay is fixed at Min; otherwise a random duration
// in [Min, Max] is picked per scrape. Values are milliseconds.
type Delay struct {
	MinMs int `json:"min_ms" mapstructure:"min_ms"`
	MaxMs int `json:"max_ms" mapstructure:"max_ms"`
}

// ScrapeOptions is the per-scrape configuration bag.
type ScrapeOptions struct {
	// Headless controls whether newly launched browsers run headless.
	// Nil keeps the server-configured default. Only consulted when the
	// scrape triggers a fresh launch; a reused browser keeps its mode.
	Headless *bool `json:"headless,omitempty"`

	// TimeoutMs bounds page navigation. Default: 15000.
	TimeoutMs int `json:"timeout_ms"`

	// WaitForSelector, when set, is a CSS selector the orchestrator waits
	// for after navigation, with a shorter sub-timeout.
	WaitForSelector string `json:"wait_for_selector,omitempty"`

	// UserAgent overrides the browser's user-agent string.
	UserAgent string `json:"user_agent,omitempty"`

	// Viewport is the emulated window size. Zero values keep the default.
	Viewport Viewport `json:"viewport"`

	// Delay paces the scrape before extraction. Nil means no delay.
	Delay *Delay `json:"delay,omitempty"`

	// Stealth enables anti-bot-detection evasions.
	Stealth bool `json:"stealth,omitempty"`
}

// ScrapeRequest describes one orchestration call.
type ScrapeRequest struct {
	// URL is the page to navigate to.
	URL string `json:"url"`

	// Limit caps how many items the extraction strategy returns.
	// Zero means no cap.
	Limit int `json:"limit"`

	Options ScrapeOptions `json:"options"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.Options.TimeoutMs == 0 {
		r.Options.TimeoutMs = 15000
	}
	if r.Options.Viewport.Width == 0 {
		r.Options.Viewport.Width = 1280
	}
	if r.Options.Viewport.Height == 0 {
		r.Options.Viewport.Height = 800
	}
}

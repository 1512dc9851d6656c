package posting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	apperr "jobtracker-engine/internal/errors"
)

const (
	DefaultMaxBytes = 1 << 20
	DefaultTimeout  = 10 * time.Second
	userAgent       = "JobTracker/1.0 (+local)"
)

// Preview is the metadata extracted from a job posting page.
type Preview struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SiteName    string    `json:"siteName"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

type Options struct {
	Timeout      time.Duration
	MaxBytes     int64
	ReqPerSecond float64
	Burst        int
	// AllowPrivateHosts lets fetches reach loopback, private and link-local
	// addresses.
	AllowPrivateHosts bool
}

type Fetcher struct {
	hc           *http.Client
	limiter      *HostLimiter
	maxBytes     int64
	allowPrivate bool
	logger       *zap.Logger
	now          func() time.Time
}

func NewFetcher(opts Options, logger *zap.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.ReqPerSecond <= 0 {
		opts.ReqPerSecond = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{
		limiter:      NewHostLimiter(opts.ReqPerSecond, opts.Burst),
		maxBytes:     opts.MaxBytes,
		allowPrivate: opts.AllowPrivateHosts,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	f.hc = newClient(opts.Timeout, f.allowPrivate)
	return f
}

// Sweep drops per-host limiters idle for longer than idle.
func (f *Fetcher) Sweep(idle time.Duration) int {
	return f.limiter.Sweep(idle)
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Preview, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Preview{}, apperr.Invalid("jobUrl must be an absolute http or https URL")
	}
	u = Canonicalize(u)
	if !f.allowPrivate && !publicHost(u.Hostname()) {
		return Preview{}, apperr.Invalid("jobUrl must point to a public host")
	}

	if err := f.limiter.WaitURL(ctx, u.String()); err != nil {
		return Preview{}, apperr.Unavailable("posting fetch cancelled", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Preview{}, apperr.Invalid("jobUrl is not fetchable")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	res, err := f.hc.Do(req)
	if err != nil {
		f.logger.Warn("posting fetch failed", zap.String("url", u.String()), zap.Error(err))
		return Preview{}, apperr.Unavailable("failed to fetch job posting", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return Preview{}, apperr.Unavailable(fmt.Sprintf("job posting returned status %d", res.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(res.Body, f.maxBytes))
	if err != nil {
		return Preview{}, apperr.Unavailable("failed to parse job posting", err)
	}

	p := Extract(doc, u.Host)
	p.URL = u.String()
	p.FetchedAt = f.now()
	return p, nil
}

// Extract reads title, description and site name from a parsed page.
// host is used when the page names no site.
func Extract(doc *goquery.Document, host string) Preview {
	var p Preview

	p.Title = metaContent(doc, `meta[property="og:title"]`)
	if p.Title == "" {
		p.Title = cleanText(doc.Find("title").First().Text())
	}
	if p.Title == "" {
		p.Title = cleanText(doc.Find("h1").First().Text())
	}

	p.Description = metaContent(doc, `meta[property="og:description"]`)
	if p.Description == "" {
		p.Description = metaContent(doc, `meta[name="description"]`)
	}

	p.SiteName = metaContent(doc, `meta[property="og:site_name"]`)
	if p.SiteName == "" {
		p.SiteName = strings.ToLower(host)
	}
	return p
}

func metaContent(doc *goquery.Document, sel string) string {
	v, _ := doc.Find(sel).First().Attr("content")
	return cleanText(v)
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

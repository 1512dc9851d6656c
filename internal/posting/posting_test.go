package posting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperr "jobtracker-engine/internal/errors"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestExtractPrefersOpenGraph(t *testing.T) {
	doc := parse(t, `<html><head>
<title>Page title</title>
<meta property="og:title" content="  Senior   Engineer ">
<meta property="og:description" content="Build the platform">
<meta name="description" content="ignored">
<meta property="og:site_name" content="Acme Careers">
</head><body><h1>Heading</h1></body></html>`)

	p := Extract(doc, "jobs.acme.com")
	if p.Title != "Senior Engineer" {
		t.Fatalf("title: got %q", p.Title)
	}
	if p.Description != "Build the platform" {
		t.Fatalf("description: got %q", p.Description)
	}
	if p.SiteName != "Acme Careers" {
		t.Fatalf("site name: got %q", p.SiteName)
	}
}

func TestExtractFallbacks(t *testing.T) {
	cases := []struct {
		name     string
		html     string
		title    string
		desc     string
		siteName string
	}{
		{
			name:     "title tag and meta description",
			html:     `<html><head><title>Backend Dev</title><meta name="description" content="Go services"></head></html>`,
			title:    "Backend Dev",
			desc:     "Go services",
			siteName: "example.com",
		},
		{
			name:     "first h1",
			html:     `<html><body><h1>Data Engineer</h1><h1>Other</h1></body></html>`,
			title:    "Data Engineer",
			siteName: "example.com",
		},
		{
			name:     "nothing",
			html:     `<html><body><p>hi</p></body></html>`,
			siteName: "example.com",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Extract(parse(t, tc.html), "Example.com")
			if p.Title != tc.title || p.Description != tc.desc || p.SiteName != tc.siteName {
				t.Fatalf("got %+v", p)
			}
		})
	}
}

func TestFetchReadsPostingPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != userAgent {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><meta property="og:title" content="Platform Engineer"></head></html>`))
	}))
	defer srv.Close()

	f := NewFetcher(Options{ReqPerSecond: 100, Burst: 10, AllowPrivateHosts: true}, nil)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	p, err := f.Fetch(context.Background(), srv.URL+"/jobs/1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if p.Title != "Platform Engineer" {
		t.Fatalf("title: got %q", p.Title)
	}
	if p.URL != srv.URL+"/jobs/1" || !p.FetchedAt.Equal(fixed) {
		t.Fatalf("unexpected preview: %+v", p)
	}
	if !strings.HasPrefix(p.SiteName, "127.0.0.1") {
		t.Fatalf("expected host as site name, got %q", p.SiteName)
	}
}

func TestFetchCapsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := `<html><head><title>Short</title>` +
			strings.Repeat(" ", 512) +
			`<meta property="og:title" content="Late"></head></html>`
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := NewFetcher(Options{MaxBytes: 64, ReqPerSecond: 100, Burst: 10, AllowPrivateHosts: true}, nil)
	p, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if p.Title != "Short" {
		t.Fatalf("expected truncated page title, got %q", p.Title)
	}
}

func TestFetchUpstreamErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := NewFetcher(Options{ReqPerSecond: 100, Burst: 10, AllowPrivateHosts: true}, nil)
	_, err := f.Fetch(context.Background(), srv.URL)
	if !apperr.Is(err, apperr.ErrTypeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestFetchRejectsNonHTTPURLs(t *testing.T) {
	f := NewFetcher(Options{}, nil)
	for _, raw := range []string{"ftp://example.com/job", "/relative/path", "javascript:alert(1)", ""} {
		if _, err := f.Fetch(context.Background(), raw); !apperr.Is(err, apperr.ErrTypeInvalidInput) {
			t.Fatalf("%q: expected invalid input, got %v", raw, err)
		}
	}
}

func TestHostLimiterHonoursCancelledContext(t *testing.T) {
	hl := NewHostLimiter(0.001, 1)
	ctx := context.Background()
	if err := hl.WaitURL(ctx, "https://a.example/x"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := hl.WaitURL(ctx, "https://a.example/y"); err == nil {
		t.Fatalf("expected second wait on same host to fail")
	}
	if err := hl.WaitURL(context.Background(), "https://b.example/"); err != nil {
		t.Fatalf("other host should not be throttled: %v", err)
	}
}

func TestCanonicalizeStripsTracking(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"HTTPS://Jobs.Example.COM/role/42?utm_source=mail&b=2&a=1#apply", "https://jobs.example.com/role/42?a=1&b=2"},
		{"https://boards.example.com/x?gclid=abc", "https://boards.example.com/x"},
		{"https://www.linkedin.com/jobs/view/?currentJobId=99&trk=feed&refId=z", "https://www.linkedin.com/jobs/view/?currentJobId=99"},
	}
	for _, tc := range cases {
		u, err := url.Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got := Canonicalize(u).String(); got != tc.want {
			t.Fatalf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFetchRefusesInternalHostsByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>internal-admin</title></head></html>`))
	}))
	defer srv.Close()

	f := NewFetcher(Options{ReqPerSecond: 100, Burst: 10}, nil)
	port := srv.URL[strings.LastIndex(srv.URL, ":")+1:]
	for _, raw := range []string{
		srv.URL + "/admin",
		"http://localhost:" + port + "/admin",
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.8/",
		"http://[::1]:" + port + "/",
	} {
		p, err := f.Fetch(context.Background(), raw)
		if err == nil {
			t.Fatalf("%s: expected refusal, got %+v", raw, p)
		}
		if !apperr.Is(err, apperr.ErrTypeInvalidInput) && !apperr.Is(err, apperr.ErrTypeUnavailable) {
			t.Fatalf("%s: unexpected error type %v", raw, err)
		}
	}
}

func TestCheckDialAddr(t *testing.T) {
	cases := []struct {
		addr string
		ok   bool
	}{
		{"127.0.0.1:80", false},
		{"169.254.169.254:80", false},
		{"10.1.2.3:443", false},
		{"192.168.0.10:8080", false},
		{"100.64.1.1:80", false},
		{"0.0.0.0:80", false},
		{"[::1]:80", false},
		{"[fc00::1]:443", false},
		{"[::ffff:127.0.0.1]:80", false},
		{"93.184.216.34:443", true},
		{"[2606:4700::1111]:443", true},
	}
	for _, tc := range cases {
		err := checkDialAddr("tcp", tc.addr, nil)
		if (err == nil) != tc.ok {
			t.Fatalf("%s: ok=%v, err=%v", tc.addr, tc.ok, err)
		}
	}
}

func TestCheckRedirectRevalidatesEveryHop(t *testing.T) {
	mk := func(raw string) *http.Request {
		req, err := http.NewRequest(http.MethodGet, raw, nil)
		if err != nil {
			t.Fatalf("request %q: %v", raw, err)
		}
		return req
	}
	first := []*http.Request{mk("https://jobs.example.com/1")}

	if err := checkRedirect(mk("https://careers.example.com/2"), first, false); err != nil {
		t.Fatalf("public redirect refused: %v", err)
	}
	if err := checkRedirect(mk("http://127.0.0.1:8080/admin"), first, false); err == nil {
		t.Fatalf("expected loopback redirect to be refused")
	}
	if err := checkRedirect(mk("http://metadata.localhost/"), first, false); err == nil {
		t.Fatalf("expected localhost redirect to be refused")
	}
	if err := checkRedirect(mk("http://127.0.0.1:8080/admin"), first, true); err != nil {
		t.Fatalf("private redirect should pass when allowed: %v", err)
	}
	if err := checkRedirect(mk("ftp://example.com/x"), first, true); err == nil {
		t.Fatalf("expected non-http redirect to be refused")
	}
	many := make([]*http.Request, maxRedirects)
	for i := range many {
		many[i] = first[0]
	}
	if err := checkRedirect(mk("https://careers.example.com/2"), many, false); err == nil {
		t.Fatalf("expected redirect limit")
	}
}

func TestHostLimiterSweepDropsIdleHosts(t *testing.T) {
	hl := NewHostLimiter(100, 10)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	hl.now = func() time.Time { return now }

	ctx := context.Background()
	if err := hl.WaitURL(ctx, "https://old.example/x"); err != nil {
		t.Fatalf("wait: %v", err)
	}
	now = base.Add(20 * time.Minute)
	if err := hl.WaitURL(ctx, "https://fresh.example/x"); err != nil {
		t.Fatalf("wait: %v", err)
	}

	if n := hl.Sweep(10 * time.Minute); n != 1 {
		t.Fatalf("expected 1 swept host, got %d", n)
	}
	if hl.hosts() != 1 {
		t.Fatalf("expected fresh host kept, have %d", hl.hosts())
	}
}

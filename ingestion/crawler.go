package ingestion

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	// DefaultMaxPages bounds a crawl when Crawler.MaxPages is not set.
	DefaultMaxPages = 200

	// contentSelector picks the elements whose text is kept.
	contentSelector = "h1, h2, h3, p, pre, code"
)

// Page is the text extracted from one crawled URL.
type Page struct {
	URL   string
	Lines []string
}

// Document joins the page's lines into a Document sourced from its URL.
func (p Page) Document() Document {
	return Document{Source: p.URL, Text: strings.Join(p.Lines, "\n")}
}

// Crawler walks a documentation site depth first, staying on the host
// (and port) of the starting URL.
type Crawler struct {
	MaxPages int
	// Client supplies the transport and timeout used for fetching.
	Client *http.Client
	Logger *slog.Logger
}

// NewCrawler creates a crawler with a 30 second request timeout.
func NewCrawler(maxPages int) *Crawler {
	return &Crawler{
		MaxPages: maxPages,
		Client:   &http.Client{Timeout: 30 * time.Second},
		Logger:   slog.Default().With("component", "crawler"),
	}
}

// Crawl fetches baseURL and every same-host page reachable from it, up to
// MaxPages pages, each at most once. Pages are returned in the order they
// were fetched. Pages that fail to load are logged and skipped, except the
// first one.
func (c *Crawler) Crawl(ctx context.Context, baseURL string) ([]Page, error) {
	base, err := url.Parse(baseURL)
	if err != nil || !isHTTP(base) || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	base.Fragment = ""

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxPages := c.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(base.Hostname()),
		colly.IgnoreRobotsTxt(),
		colly.StdlibContext(ctx),
	)
	if c.Client != nil {
		if c.Client.Transport != nil {
			collector.WithTransport(c.Client.Transport)
		}
		if c.Client.Timeout > 0 {
			collector.SetRequestTimeout(c.Client.Timeout)
		}
	}

	var (
		pages   []Page
		byURL   = make(map[string]int)
		baseErr error
	)

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil || len(pages) >= maxPages {
			r.Abort()
			return
		}
		logger.Info("scraping", "url", r.URL.String())
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r.Request.Depth == 1 {
			baseErr = err
			return
		}
		logger.Warn("failed to fetch page", "url", r.Request.URL.String(), "status", r.StatusCode, "err", err)
	})

	collector.OnResponse(func(r *colly.Response) {
		page := r.Request.URL.String()
		byURL[page] = len(pages)
		pages = append(pages, Page{URL: page})
	})

	collector.OnHTML(contentSelector, func(e *colly.HTMLElement) {
		text := strings.TrimSpace(e.DOM.Text())
		if text == "" {
			return
		}
		if i, ok := byURL[e.Request.URL.String()]; ok {
			pages[i].Lines = append(pages[i].Lines, text)
		}
	})

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link, err := url.Parse(e.Request.AbsoluteURL(strings.TrimSpace(e.Attr("href"))))
		if err != nil || !isHTTP(link) || link.Host != base.Host {
			return
		}
		link.Fragment = ""
		// Already-visited and aborted links are expected; failed fetches
		// are reported through OnError.
		_ = e.Request.Visit(link.String())
	})

	visitErr := collector.Visit(base.String())
	if err := ctx.Err(); err != nil {
		return pages, err
	}
	if baseErr == nil {
		baseErr = visitErr
	}
	if baseErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, baseErr)
	}

	logger.Info("crawl complete", "pages", len(pages), "base", base.String())
	return pages, nil
}

func isHTTP(u *url.URL) bool {
	return u.Scheme == "http" || u.Scheme == "https"
}

// Lines flattens the pages' text in crawl order.
func Lines(pages []Page) []string {
	var lines []string
	for _, page := range pages {
		lines = append(lines, page.Lines...)
	}
	return lines
}

// WriteLines writes one line of text per line to path, replacing the file.
func WriteLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

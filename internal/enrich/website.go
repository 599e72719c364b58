// Package enrich fills in missing lead fields after normalization. The
// website enricher visits a lead's site and looks for an Instagram profile
// link, which is how most cafes that never post a handle anywhere else still
// end up with one.
package enrich

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/leads"
	"github.com/matchaops/cafeleads/internal/normalize"
)

// Config controls the website collector.
type Config struct {
	Enabled   bool
	UserAgent string
	Timeout   time.Duration
}

// WebsiteEnricher scrapes lead websites for Instagram handles.
type WebsiteEnricher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

var (
	instagramHrefPattern = regexp.MustCompile(`(?i)instagram\.com`)
	socialClassPattern   = regexp.MustCompile(`(?i)social|footer|contact`)
	instagramTextPattern = regexp.MustCompile(`(?i)instagram\.com/([a-zA-Z0-9._]+)`)
)

// New builds a WebsiteEnricher. A nil logger is replaced with a no-op logger.
func New(cfg Config, logger *zap.Logger) *WebsiteEnricher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())

	return &WebsiteEnricher{cfg: cfg, baseCollector: c, logger: logger}
}

// Candidates fills InstagramHandle for candidates that have a website but no
// handle yet. Fetch and parse failures are logged and leave the candidate
// unchanged; enrichment never fails a batch.
func (e *WebsiteEnricher) Candidates(ctx context.Context, candidates []leads.Lead) []leads.Lead {
	if !e.cfg.Enabled {
		return candidates
	}
	for i := range candidates {
		if candidates[i].InstagramHandle != "" || candidates[i].Website == "" {
			continue
		}
		handle, err := e.HandleFromWebsite(ctx, candidates[i].Website)
		if err != nil {
			e.logger.Debug("website enrichment failed",
				zap.String("website", candidates[i].Website),
				zap.Error(err))
			continue
		}
		if handle != "" {
			candidates[i].InstagramHandle = handle
			candidates[i].ProfileURL = "https://www.instagram.com/" + handle + "/"
		}
	}
	return candidates
}

// HandleFromWebsite fetches the page and extracts the first plausible
// Instagram handle. Returns "" with a nil error when the page simply has
// no Instagram link.
func (e *WebsiteEnricher) HandleFromWebsite(ctx context.Context, websiteURL string) (string, error) {
	body, err := e.fetch(ctx, websiteURL)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", websiteURL, err)
	}
	return handleFromDocument(doc), nil
}

func (e *WebsiteEnricher) fetch(ctx context.Context, url string) ([]byte, error) {
	collector := e.baseCollector.Clone()
	collector.UserAgent = e.cfg.UserAgent
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(e.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("website fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit %s: %w", url, err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, fetchErr)
		}
		return body, nil
	}
}

// handleFromDocument tries, in order: anchor hrefs, anchors inside
// social/footer/contact sections, instagram URLs anywhere in the page text,
// and og:/twitter: meta tags.
func handleFromDocument(doc *goquery.Document) string {
	var handle string

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if instagramHrefPattern.MatchString(href) {
			if h := normalize.HandleFromURL(href); h != "" {
				handle = h
				return false
			}
		}
		return true
	})
	if handle != "" {
		return handle
	}

	doc.Find("div, nav, footer, section").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		class, _ := sel.Attr("class")
		id, _ := sel.Attr("id")
		if !socialClassPattern.MatchString(class) && !socialClassPattern.MatchString(id) {
			return true
		}
		sel.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
			href, _ := link.Attr("href")
			if h := normalize.HandleFromURL(href); h != "" {
				handle = h
				return false
			}
			return true
		})
		return handle == ""
	})
	if handle != "" {
		return handle
	}

	for _, m := range instagramTextPattern.FindAllStringSubmatch(doc.Text(), -1) {
		if h := normalize.HandleFromURL("instagram.com/" + m[1]); h != "" {
			return h
		}
	}

	doc.Find("meta[property]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		prop, _ := sel.Attr("property")
		lower := strings.ToLower(prop)
		if !strings.HasPrefix(lower, "og:") && !strings.HasPrefix(lower, "twitter:") {
			return true
		}
		content, _ := sel.Attr("content")
		if h := normalize.HandleFromURL(content); h != "" {
			handle = h
			return false
		}
		return true
	})
	return handle
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

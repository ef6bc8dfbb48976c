// Package news fetches the distribution news index and extracts recent
// advisories. Extraction works either through a CSS selector over table
// rows or an XPath expression returning anchor nodes, so a site redesign
// only costs a config change.
package news

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/pacscout/pacscout/internal/errdefs"
)

// DefaultURL is the Arch Linux news index
const DefaultURL = "https://archlinux.org/news/"

// DefaultSelector matches the news table rows on the default index
const DefaultSelector = "table.results tbody tr"

// Advisory is one news item
type Advisory struct {
	Title string `json:"title"`
	Date  string `json:"date,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Extractor pulls advisories out of a news index page. XPath wins when both
// extraction methods are configured. MaxItems caps the result when positive.
type Extractor struct {
	Selector string
	XPath    string
	MaxItems int
}

// Extract parses the page and returns the advisories found. Relative item
// links resolve against base when given.
func (e *Extractor) Extract(content []byte, base *url.URL) ([]Advisory, error) {
	var advisories []Advisory
	var err error

	switch {
	case e.XPath != "":
		advisories, err = e.extractXPath(content, base)
	case e.Selector != "":
		advisories, err = e.extractSelector(content, base)
	default:
		return nil, errdefs.Config("news extraction needs a selector or an xpath")
	}
	if err != nil {
		return nil, err
	}

	if len(advisories) == 0 {
		return nil, errdefs.Serialization("no news items matched the configured extraction")
	}
	if e.MaxItems > 0 && len(advisories) > e.MaxItems {
		advisories = advisories[:e.MaxItems]
	}
	return advisories, nil
}

// extractSelector reads table-style rows: the first cell carries the date,
// the first anchor carries title and link. Rows without an anchor are
// skipped.
func (e *Extractor) extractSelector(content []byte, base *url.URL) ([]Advisory, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, errdefs.Serialization("parsing news page: %v", err)
	}

	var advisories []Advisory
	doc.Find(e.Selector).Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		adv := Advisory{
			Title: title,
			Date:  strings.TrimSpace(row.Find("td").First().Text()),
		}
		if href, ok := link.Attr("href"); ok {
			adv.URL = resolveURL(base, href)
		}
		advisories = append(advisories, adv)
	})
	return advisories, nil
}

// extractXPath reads anchor nodes: inner text carries the title, href the
// link. No date is available on this path.
func (e *Extractor) extractXPath(content []byte, base *url.URL) ([]Advisory, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, errdefs.Serialization("parsing news page: %v", err)
	}

	nodes, err := htmlquery.QueryAll(doc, e.XPath)
	if err != nil {
		return nil, errdefs.Config("invalid news xpath %q: %v", e.XPath, err)
	}

	var advisories []Advisory
	for _, node := range nodes {
		title := strings.TrimSpace(htmlquery.InnerText(node))
		if title == "" {
			continue
		}
		adv := Advisory{Title: title}
		if href := htmlquery.SelectAttr(node, "href"); href != "" {
			adv.URL = resolveURL(base, href)
		}
		advisories = append(advisories, adv)
	}
	return advisories, nil
}

func resolveURL(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return href
	}
	return resolved.String()
}

// Client fetches the news index over HTTPS with bounded retries
type Client struct {
	URL       string
	Extractor Extractor
	http      *retryablehttp.Client
}

// NewClient creates a news client for indexURL
func NewClient(indexURL string, extractor Extractor) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = log.New(io.Discard, "", 0)
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 10 * time.Second
	return &Client{URL: indexURL, Extractor: extractor, http: rc}
}

// Recent fetches the index and extracts the most recent advisories
func (c *Client) Recent() ([]Advisory, error) {
	resp, err := c.http.Get(c.URL)
	if err != nil {
		return nil, errdefs.Network("fetching news index: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errdefs.Network("news index returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errdefs.Network("reading news index: %v", err)
	}

	base, err := url.Parse(c.URL)
	if err != nil {
		base = nil
	}
	return c.Extractor.Extract(body, base)
}

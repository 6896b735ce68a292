package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

const (
	formatPlaintext = "plaintext"
	formatHTML      = "html"

	searchLimit = 10
)

// Page is a single resolved encyclopedia page
type Page struct {
	Title          string
	URL            string
	Content        string // Plain text with wiki section markers, or rendered HTML
	HTML           bool
	Disambiguation bool
}

// Searcher resolves a free text query to candidate page titles
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// PageFetcher loads a page by its exact title
type PageFetcher interface {
	FetchPage(ctx context.Context, title string) (*Page, error)
}

// MediaWikiClient talks to the MediaWiki action API of a Wikipedia
type MediaWikiClient struct {
	apiURL    string
	userAgent string
	format    string
	client    *http.Client
}

// NewMediaWikiClient creates a client for the configured wiki
func NewMediaWikiClient(settings RetrieverSettings) *MediaWikiClient {
	return &MediaWikiClient{
		apiURL:    settings.APIURL,
		userAgent: settings.UserAgent,
		format:    settings.Format,
		client: &http.Client{
			Timeout: secondsOr(settings.TimeoutSeconds, 30*time.Second),
		},
	}
}

// apiError is the error envelope of the action API
type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type searchResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type pageResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		Pages []struct {
			Title     string            `json:"title"`
			FullURL   string            `json:"fullurl"`
			Extract   string            `json:"extract"`
			Missing   bool              `json:"missing"`
			Invalid   bool              `json:"invalid"`
			PageProps map[string]string `json:"pageprops"`
		} `json:"pages"`
	} `json:"query"`
}

type parseResponse struct {
	Error *apiError `json:"error"`
	Parse struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"parse"`
}

// Search returns the titles of the best matching pages, most relevant first
func (c *MediaWikiClient) Search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprint(searchLimit)},
		"srprop":   {""},
	}

	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("search: %s: %s", resp.Error.Code, resp.Error.Info)
	}

	titles := make([]string, 0, len(resp.Query.Search))
	for _, r := range resp.Query.Search {
		titles = append(titles, r.Title)
	}
	return titles, nil
}

// FetchPage loads exactly the given title. Redirects are followed as reported
// by the wiki; missing and invalid titles return ErrNotFound.
func (c *MediaWikiClient) FetchPage(ctx context.Context, title string) (*Page, error) {
	params := url.Values{
		"action":    {"query"},
		"titles":    {title},
		"prop":      {"info|pageprops"},
		"inprop":    {"url"},
		"ppprop":    {"disambiguation"},
		"redirects": {"1"},
	}
	if c.format != formatHTML {
		params.Set("prop", "extracts|info|pageprops")
		params.Set("explaintext", "1")
		params.Set("exsectionformat", "wiki")
	}

	var resp pageResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("page %q: %s: %s", title, resp.Error.Code, resp.Error.Info)
	}
	if len(resp.Query.Pages) == 0 {
		return nil, fmt.Errorf("page %q: %w", title, ErrNotFound)
	}

	p := resp.Query.Pages[0]
	if p.Missing || p.Invalid {
		return nil, fmt.Errorf("page %q: %w", title, ErrNotFound)
	}
	_, disambiguation := p.PageProps["disambiguation"]

	page := &Page{
		Title:          p.Title,
		URL:            p.FullURL,
		Content:        p.Extract,
		Disambiguation: disambiguation,
	}

	if c.format == formatHTML && !disambiguation {
		html, err := c.parseHTML(ctx, p.Title)
		if err != nil {
			return nil, err
		}
		page.Content = html
		page.HTML = true
	}

	return page, nil
}

// parseHTML returns the rendered article body
func (c *MediaWikiClient) parseHTML(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":             {"parse"},
		"page":               {title},
		"prop":               {"text"},
		"disableeditsection": {"1"},
		"disabletoc":         {"1"},
		"redirects":          {"1"},
	}

	var resp parseResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		if resp.Error.Code == "missingtitle" {
			return "", fmt.Errorf("page %q: %w", title, ErrNotFound)
		}
		return "", fmt.Errorf("parse %q: %s: %s", title, resp.Error.Code, resp.Error.Info)
	}
	return resp.Parse.Text, nil
}

// get performs an action API request and decodes the JSON response
func (c *MediaWikiClient) get(ctx context.Context, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	reqURL := c.apiURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", c.apiURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPError{StatusCode: resp.StatusCode, URL: c.apiURL, Body: truncateBody(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", c.apiURL, err)
	}
	return nil
}

// Elements of rendered articles that do not read well as prose
var htmlNoise = strings.Join([]string{
	"style", "script", "table", "figure", ".thumb", ".infobox", ".navbox",
	".vertical-navbox", ".sidebar", ".hatnote", ".noprint", ".metadata",
	".mw-editsection", ".mw-references-wrap", ".reflist", ".references",
	"sup.reference", "#toc", ".toc", ".shortdescription",
}, ", ")

var deepHeading = regexp.MustCompile(`(?m)^#{4,6} `)

// htmlToMarkdown strips layout noise from rendered article HTML and converts
// the remaining prose to markdown with at most two heading depths
func htmlToMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing article HTML: %w", err)
	}
	doc.Find(htmlNoise).Remove()

	root := doc.Find(".mw-parser-output").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	body, err := root.Html()
	if err != nil {
		return "", fmt.Errorf("rendering article HTML: %w", err)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(body)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}

	return deepHeading.ReplaceAllString(strings.TrimSpace(markdown), "### "), nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestWiki(t *testing.T, format string, handler http.HandlerFunc) *MediaWikiClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewMediaWikiClient(RetrieverSettings{
		APIURL:    server.URL + "/w/api.php",
		UserAgent: "podcast-writer-test/1.0",
		Format:    format,
	})
}

func TestMediaWikiSearch(t *testing.T) {
	wiki := newTestWiki(t, formatPlaintext, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("action") != "query" || q.Get("list") != "search" {
			t.Errorf("unexpected params: %v", q)
		}
		if q.Get("srsearch") != "apollo 11" {
			t.Errorf("srsearch = %q, want %q", q.Get("srsearch"), "apollo 11")
		}
		if q.Get("formatversion") != "2" {
			t.Errorf("formatversion = %q, want 2", q.Get("formatversion"))
		}
		if ua := r.Header.Get("User-Agent"); ua != "podcast-writer-test/1.0" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"query":{"search":[{"ns":0,"title":"Apollo 11"},{"ns":0,"title":"Apollo program"}]}}`))
	})

	titles, err := wiki.Search(context.Background(), "apollo 11")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(titles) != 2 || titles[0] != "Apollo 11" || titles[1] != "Apollo program" {
		t.Errorf("Search() = %v", titles)
	}
}

func TestMediaWikiSearchEmpty(t *testing.T) {
	wiki := newTestWiki(t, formatPlaintext, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"batchcomplete":true,"query":{"searchinfo":{"totalhits":0},"search":[]}}`))
	})

	titles, err := wiki.Search(context.Background(), "xyzzy")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(titles) != 0 {
		t.Errorf("Search() = %v, want no titles", titles)
	}
}

func TestMediaWikiAPIError(t *testing.T) {
	wiki := newTestWiki(t, formatPlaintext, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":"maxlag","info":"Waiting for a database server"}}`))
	})

	_, err := wiki.Search(context.Background(), "apollo")
	if err == nil || !strings.Contains(err.Error(), "maxlag") {
		t.Fatalf("Search() error = %v, want maxlag error", err)
	}
}

func TestMediaWikiHTTPError(t *testing.T) {
	wiki := newTestWiki(t, formatPlaintext, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream unavailable"))
	})

	_, err := wiki.Search(context.Background(), "apollo")

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Search() should return HTTPError, got %T", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("HTTPError.StatusCode = %d, want %d", httpErr.StatusCode, http.StatusServiceUnavailable)
	}
	if httpErr.Body != "upstream unavailable" {
		t.Errorf("HTTPError.Body = %q", httpErr.Body)
	}
}

func TestMediaWikiFetchPage(t *testing.T) {
	tests := []struct {
		name               string
		response           string
		wantErr            error
		wantTitle          string
		wantDisambiguation bool
	}{
		{
			name:      "article",
			response:  `{"query":{"pages":[{"pageid":662,"title":"Apollo 11","fullurl":"https://en.wikipedia.org/wiki/Apollo_11","extract":"Apollo 11 was a spaceflight.\n\n== Background ==\nText."}]}}`,
			wantTitle: "Apollo 11",
		},
		{
			name:      "redirect resolved",
			response:  `{"query":{"redirects":[{"from":"Apollo XI","to":"Apollo 11"}],"pages":[{"pageid":662,"title":"Apollo 11","fullurl":"https://en.wikipedia.org/wiki/Apollo_11","extract":"Text."}]}}`,
			wantTitle: "Apollo 11",
		},
		{
			name:               "disambiguation",
			response:           `{"query":{"pages":[{"pageid":19,"title":"Mercury","fullurl":"https://en.wikipedia.org/wiki/Mercury","extract":"Mercury may refer to:","pageprops":{"disambiguation":""}}]}}`,
			wantTitle:          "Mercury",
			wantDisambiguation: true,
		},
		{
			name:     "missing",
			response: `{"query":{"pages":[{"ns":0,"title":"Ghost page","missing":true}]}}`,
			wantErr:  ErrNotFound,
		},
		{
			name:     "invalid",
			response: `{"query":{"pages":[{"title":"<>","invalidreason":"bad title","invalid":true}]}}`,
			wantErr:  ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wiki := newTestWiki(t, formatPlaintext, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("explaintext") != "1" || !strings.Contains(q.Get("prop"), "extracts") {
					t.Errorf("plaintext fetch should request extracts, got %v", q)
				}
				if q.Get("redirects") != "1" {
					t.Errorf("redirects = %q, want 1", q.Get("redirects"))
				}
				w.Write([]byte(tt.response))
			})

			page, err := wiki.FetchPage(context.Background(), "Apollo 11")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("FetchPage() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FetchPage() error = %v", err)
			}
			if page.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", page.Title, tt.wantTitle)
			}
			if page.Disambiguation != tt.wantDisambiguation {
				t.Errorf("Disambiguation = %v, want %v", page.Disambiguation, tt.wantDisambiguation)
			}
			if page.HTML {
				t.Error("plaintext page should not be marked HTML")
			}
		})
	}
}

func TestMediaWikiFetchPageHTML(t *testing.T) {
	var actions []string
	wiki := newTestWiki(t, formatHTML, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		actions = append(actions, q.Get("action"))
		switch q.Get("action") {
		case "query":
			if q.Get("explaintext") != "" {
				t.Error("html fetch should not request plain text extracts")
			}
			w.Write([]byte(`{"query":{"pages":[{"pageid":662,"title":"Apollo 11","fullurl":"https://en.wikipedia.org/wiki/Apollo_11"}]}}`))
		case "parse":
			if q.Get("page") != "Apollo 11" {
				t.Errorf("parse page = %q, want canonical title", q.Get("page"))
			}
			w.Write([]byte(`{"parse":{"title":"Apollo 11","text":"<div class=\"mw-parser-output\"><p>Apollo 11 was a spaceflight.</p></div>"}}`))
		default:
			t.Errorf("unexpected action %q", q.Get("action"))
		}
	})

	page, err := wiki.FetchPage(context.Background(), "Apollo 11")
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if !page.HTML {
		t.Error("page should be marked HTML")
	}
	if !strings.Contains(page.Content, "Apollo 11 was a spaceflight.") {
		t.Errorf("Content = %q", page.Content)
	}
	if len(actions) != 2 || actions[0] != "query" || actions[1] != "parse" {
		t.Errorf("actions = %v, want [query parse]", actions)
	}
}

func TestHTMLToMarkdown(t *testing.T) {
	html := `<div class="mw-parser-output">
<table class="infobox"><tr><td>Launch date July 16, 1969</td></tr></table>
<p>Apollo 11 was the first spaceflight to land humans on the Moon.<sup class="reference">[1]</sup></p>
<div class="mw-heading mw-heading2"><h2 id="Background">Background</h2></div>
<p>The Space Race.</p>
<h3>Kennedy's goal</h3>
<p>Before the decade is out.</p>
<h4>Funding</h4>
<p>Budgets grew.</p>
<div class="reflist"><ol class="references"><li>Citation text</li></ol></div>
</div>`

	markdown, err := htmlToMarkdown(html)
	if err != nil {
		t.Fatalf("htmlToMarkdown() error = %v", err)
	}

	for _, want := range []string{
		"Apollo 11 was the first spaceflight to land humans on the Moon.",
		"## Background",
		"### Kennedy's goal",
		"### Funding",
	} {
		if !strings.Contains(markdown, want) {
			t.Errorf("markdown missing %q:\n%s", want, markdown)
		}
	}

	for _, unwanted := range []string{"Launch date", "[1]", "Citation text", "#### "} {
		if strings.Contains(markdown, unwanted) {
			t.Errorf("markdown should not contain %q:\n%s", unwanted, markdown)
		}
	}
}

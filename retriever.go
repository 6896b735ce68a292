package main

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Section markers of plain text extracts, e.g. "== History ==" or "=== Launch ==="
var sectionMarker = regexp.MustCompile(`(?m)^[ \t]*(={2,6})[ \t]*([^=\n]+?)[ \t]*={2,6}[ \t]*$`)

// Retriever resolves a query to a single article rendered as markdown
type Retriever struct {
	searcher Searcher
	pages    PageFetcher
}

// NewRetriever creates a retriever over the given backends
func NewRetriever(searcher Searcher, pages PageFetcher) *Retriever {
	return &Retriever{searcher: searcher, pages: pages}
}

// Retrieve searches for query, takes the first result and returns that exact
// page as markdown. It fails with ErrNotFound, an *AmbiguousError or a
// *RetrievalError.
func (r *Retriever) Retrieve(ctx context.Context, query string) (*ArticleContent, error) {
	titles, err := r.searcher.Search(ctx, query)
	if err != nil {
		return nil, &RetrievalError{Query: query, Err: err}
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("no pages found for %q: %w", query, ErrNotFound)
	}

	title := titles[0]
	logger.Debug("resolved search result", zap.String("query", query), zap.String("title", title), zap.Int("candidates", len(titles)))

	page, err := r.pages.FetchPage(ctx, title)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("page %q derived from %q: %w", title, query, ErrNotFound)
		}
		return nil, &RetrievalError{Query: query, Err: err}
	}
	if page.Disambiguation {
		return nil, &AmbiguousError{Title: page.Title, Candidates: titles[1:]}
	}

	body := page.Content
	if page.HTML {
		body, err = htmlToMarkdown(page.Content)
		if err != nil {
			return nil, &RetrievalError{Query: query, Err: err}
		}
	} else {
		body = convertHeadings(body)
	}

	return &ArticleContent{
		Title:    page.Title,
		URL:      page.URL,
		Markdown: fmt.Sprintf("# %s\n\n%s", page.Title, body),
	}, nil
}

// convertHeadings turns wiki section markers into markdown headings.
// Top level sections become "##", all deeper levels "###".
func convertHeadings(content string) string {
	return sectionMarker.ReplaceAllStringFunc(content, func(line string) string {
		m := sectionMarker.FindStringSubmatch(line)
		prefix := "###"
		if len(m[1]) == 2 {
			prefix = "##"
		}
		return prefix + " " + strings.TrimSpace(m[2])
	})
}

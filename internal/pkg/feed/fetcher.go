package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
)

// Entry 订阅源中的一条内容
type Entry struct {
	Title       string
	Summary     string
	URL         string
	Content     string
	PublishedAt *time.Time
}

// Result 一次抓取结果，Raw 为原始文档
type Result struct {
	Raw     []byte
	Title   string
	Entries []Entry
}

// Fetcher 订阅源连接器
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Result, error)
}

// HTTPFetcher 通过 HTTP 拉取并解析 RSS/Atom
type HTTPFetcher struct {
	client *resty.Client
	parser *gofeed.Parser
}

func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	return &HTTPFetcher{client: client, parser: gofeed.NewParser()}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch feed %s: status %d", url, resp.StatusCode())
	}
	return Parse(f.parser, resp.Body())
}

// Parse 解析订阅源文档
func Parse(parser *gofeed.Parser, raw []byte) (*Result, error) {
	parsed, err := parser.ParseString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	result := &Result{Raw: raw, Title: parsed.Title, Entries: make([]Entry, 0, len(parsed.Items))}
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entry := Entry{
			Title:   strings.TrimSpace(item.Title),
			Summary: StripHTML(item.Description),
			URL:     strings.TrimSpace(item.Link),
			Content: StripHTML(item.Content),
		}
		switch {
		case item.PublishedParsed != nil:
			t := item.PublishedParsed.UTC()
			entry.PublishedAt = &t
		case item.UpdatedParsed != nil:
			t := item.UpdatedParsed.UTC()
			entry.PublishedAt = &t
		}
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

// StripHTML 提取 HTML 片段中的纯文本
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

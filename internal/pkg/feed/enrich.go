package feed

import (
	"context"
	"fmt"
	log "log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"
	"github.com/go-shiori/go-readability"
)

const maxArticleChars = 5000

// Enricher 为缺少正文的条目抓取原文
type Enricher interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// ArticleEnricher 使用 readability 提取正文，可选 headless 浏览器渲染
type ArticleEnricher struct {
	client    *resty.Client
	renderJS  bool
	renderTTL time.Duration
}

func NewArticleEnricher(timeout time.Duration, userAgent string, renderJS bool) *ArticleEnricher {
	return &ArticleEnricher{
		client:    resty.New().SetTimeout(timeout).SetHeader("User-Agent", userAgent),
		renderJS:  renderJS,
		renderTTL: timeout,
	}
}

func (e *ArticleEnricher) Extract(ctx context.Context, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse article url: %w", err)
	}

	resp, err := e.client.R().SetContext(ctx).Get(pageURL)
	html := ""
	if err == nil && !resp.IsError() {
		html = resp.String()
	}

	// 页面过小多半是前端渲染
	if e.renderJS && len(html) < 4000 {
		if rendered, rerr := e.render(ctx, pageURL); rerr == nil {
			html = rendered
		} else {
			log.WarnContext(ctx, "render article failed", "url", pageURL, "err", rerr)
		}
	}
	if html == "" {
		if err == nil {
			err = fmt.Errorf("status %d", resp.StatusCode())
		}
		return "", fmt.Errorf("fetch article %s: %w", pageURL, err)
	}

	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extract article %s: %w", pageURL, err)
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if r := []rune(text); len(r) > maxArticleChars {
		text = string(r[:maxArticleChars])
	}
	return text, nil
}

func (e *ArticleEnricher) render(ctx context.Context, pageURL string) (string, error) {
	browserCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, e.renderTTL)
	defer timeoutCancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady(`body`),
		chromedp.OuterHTML("html", &html),
	)
	return html, err
}

package parser

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/polygraphy/digest/internal/domain"
)

// HTMLParser applies best-effort structural heuristics to plain HTML pages.
// There is no per-source selector configuration; it looks for the common
// repeated item containers and takes the first link and heading of each.
type HTMLParser struct{}

// Parse extracts candidates from block-level containers that usually wrap
// article teasers. Containers without a link are skipped; the heading text
// falls back to the link text.
func (p *HTMLParser) Parse(content []byte, source *domain.Source) []*domain.Article {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil
	}

	var articles []*domain.Article
	doc.Find("article, .post, .entry").Each(func(_ int, node *goquery.Selection) {
		link := node.Find("a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}

		title := strings.TrimSpace(node.Find("h1, h2, h3, .title").First().Text())
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}
		if title == "" {
			return
		}

		articles = append(articles, &domain.Article{
			SourceID:   source.ID,
			ExternalID: href,
			Title:      title,
			URL:        href,
		})
	})

	return articles
}

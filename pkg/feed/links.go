package feed

import (
	"strings"

	"github.com/mmcdole/gofeed"
)

// LinkSource は、詳細ページURLの一覧を提供できる任意の型を表します。
// HTML一覧ページ (listing.Page) と Atom フィード (FeedAdapter) の抽象化の境界線です。
type LinkSource interface {
	GetLinks() []string
}

// FeedAdapter は gofeed.Feed を LinkSource に適合させるためのアダプターです。
type FeedAdapter struct {
	*gofeed.Feed
}

// NewFeedAdapter は gofeed.Feed から新しいアダプターを作成します。
func NewFeedAdapter(feed *gofeed.Feed) *FeedAdapter {
	return &FeedAdapter{Feed: feed}
}

// GetLinks は LinkSource インターフェースを満たし、各エントリーのリンクを出現順に返します。
func (a *FeedAdapter) GetLinks() []string {
	if a == nil || a.Feed == nil || len(a.Items) == 0 {
		return []string{}
	}

	urls := make([]string, 0, len(a.Items))
	for _, item := range a.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link != "" {
			urls = append(urls, link)
		}
	}
	return urls
}

// GetAllLinks は LinkSource からリンクを抽出する汎用関数です。
// source が nil の場合は空のスライスを返します。
func GetAllLinks(source LinkSource) []string {
	if source == nil {
		return []string{}
	}
	links := source.GetLinks()
	if links == nil {
		return []string{}
	}
	return links
}

package feed

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// Fetcher は、Parser が依存すべきインターフェースです。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Parser は Atom/RSS フィードを取得・解析します。
type Parser struct {
	client Fetcher
}

// NewParser は新しい Parser インスタンスを初期化します。
// ParseBytes のみを使う場合、client は nil で構いません。
func NewParser(client Fetcher) *Parser {
	return &Parser{client: client}
}

// FetchAndParse は指定されたURLからフィードを取得し、パースします。
func (p *Parser) FetchAndParse(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	if p.client == nil {
		return nil, fmt.Errorf("フィードの取得失敗 (URL: %s): Fetcherが設定されていません", feedURL)
	}
	body, err := p.client.FetchBytes(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得失敗 (URL: %s): %w", feedURL, err)
	}

	feed, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("%w (URL: %s)", err, feedURL)
	}
	return feed, nil
}

// ParseBytes は取得済みのボディをフィードとしてパースします。
func (p *Parser) ParseBytes(body []byte) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	feed, err := fp.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("フィードのパース失敗: %w", err)
	}
	return feed, nil
}

package detail

import (
	"context"
	"fmt"

	"github.com/shouni/go-gazette-scraper/pkg/types"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// Fetcher は、HTMLドキュメントの生バイト配列を取得する機能のインターフェースを定義します。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Extractor は、Fetcher と Parser を組み合わせて1件の詳細ページを処理します。
type Extractor struct {
	fetcher Fetcher
	parser  *Parser
}

// NewExtractor は、新しいExtractorのインスタンスを生成します。
func NewExtractor(fetcher Fetcher) (*Extractor, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("detail.NewExtractor: Fetcher cannot be nil")
	}
	return &Extractor{
		fetcher: fetcher,
		parser:  NewParser(),
	}, nil
}

// FetchAndParse は rc.FetchURL からページを取得し、NoticeRecord を抽出します。
func (e *Extractor) FetchAndParse(ctx context.Context, rc types.RequestContext) (*types.NoticeRecord, error) {
	body, err := e.fetcher.FetchBytes(ctx, rc.FetchURL)
	if err != nil {
		return nil, fmt.Errorf("詳細ページの取得に失敗しました (URL: %s): %w", rc.TargetURL, err)
	}
	return e.parser.Parse(body, rc)
}

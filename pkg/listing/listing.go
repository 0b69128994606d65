package listing

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shouni/go-gazette-scraper/pkg/feed"
	"github.com/shouni/go-gazette-scraper/pkg/pagination"
	"github.com/shouni/go-gazette-scraper/pkg/types"
)

// ----------------------------------------------------------------------
// 定数とインターフェース
// ----------------------------------------------------------------------

// resultLinkSelector は検索結果のタイトルリンクを示す構造セレクターです。
const resultLinkSelector = "#search-results .title a[href]"

// ErrNoLinks は、一覧ページから詳細ページのリンクが1件も見つからなかった場合のエラーです。
var ErrNoLinks = errors.New("検索結果のリンクが見つかりませんでした")

// URLBuilder は、詳細ページURLをプロキシURLに変換します。
type URLBuilder interface {
	Build(targetURL string) string
}

// Page は1つの一覧ページから発見された詳細ページURLの順序付き集合です。
// feed.LinkSource を満たします。
type Page struct {
	links []string
}

// GetLinks は発見順の絶対URLを返します。
func (p *Page) GetLinks() []string {
	if p == nil {
		return []string{}
	}
	return p.links
}

// ----------------------------------------------------------------------
// HTML一覧パーサー
// ----------------------------------------------------------------------

// Parser は一覧ページのHTMLから詳細ページのリクエストを生成します。
type Parser struct {
	builder URLBuilder
	origin  *url.URL
}

// NewParser は Parser を初期化します。
func NewParser(builder URLBuilder) (*Parser, error) {
	if builder == nil {
		return nil, fmt.Errorf("listing.NewParser: URLBuilder cannot be nil")
	}
	origin, err := url.Parse(pagination.Origin)
	if err != nil {
		return nil, fmt.Errorf("listing.NewParser: オリジンの解析に失敗しました: %w", err)
	}
	return &Parser{builder: builder, origin: origin}, nil
}

// ExtractPage は一覧ページのHTMLから検索結果リンクを抽出します。
func (p *Parser) ExtractPage(body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTML解析に失敗しました: %w", err)
	}

	page := &Page{}
	doc.Find(resultLinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		page.links = append(page.links, p.resolve(href))
	})
	return page, nil
}

// resolve は href を固定オリジン基準の絶対URLに変換します。
// プロトコル相対の href (//host/path) はオリジンのスキームを引き継ぎます。
func (p *Parser) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return p.origin.String() + href
	}
	return p.origin.ResolveReference(ref).String()
}

// Parse は一覧ページのレスポンスから詳細ページのリクエストを生成します。
// リンクが1件もない場合は空のスライスと ParseError を返します。
func (p *Parser) Parse(body []byte, rc types.RequestContext) ([]types.RequestContext, error) {
	page, err := p.ExtractPage(body)
	if err != nil {
		return nil, &types.ParseError{URL: rc.TargetURL, Stage: types.StageListing, Err: err}
	}
	return DetailRequests(page, rc, p.builder, types.StageListing)
}

// ----------------------------------------------------------------------
// フィード一覧パーサー
// ----------------------------------------------------------------------

// FeedParser は Atom フィード版の一覧から詳細ページのリクエストを生成します。
type FeedParser struct {
	builder URLBuilder
	parser  *feed.Parser
}

// NewFeedParser は FeedParser を初期化します。
func NewFeedParser(builder URLBuilder) (*FeedParser, error) {
	if builder == nil {
		return nil, fmt.Errorf("listing.NewFeedParser: URLBuilder cannot be nil")
	}
	return &FeedParser{builder: builder, parser: feed.NewParser(nil)}, nil
}

// Parse はフィードのレスポンスから詳細ページのリクエストを生成します。
func (p *FeedParser) Parse(body []byte, rc types.RequestContext) ([]types.RequestContext, error) {
	parsed, err := p.parser.ParseBytes(body)
	if err != nil {
		return nil, &types.ParseError{URL: rc.TargetURL, Stage: types.StageFeed, Err: err}
	}
	return DetailRequests(feed.NewFeedAdapter(parsed), rc, p.builder, types.StageFeed)
}

// DetailRequests は LinkSource のリンクごとに詳細ページのリクエストを生成します。
// 起点URL (MainURL) には一覧ページの TargetURL を引き継ぎます。
func DetailRequests(source feed.LinkSource, rc types.RequestContext, builder URLBuilder, stage types.Stage) ([]types.RequestContext, error) {
	links := feed.GetAllLinks(source)
	if len(links) == 0 {
		return []types.RequestContext{}, &types.ParseError{URL: rc.TargetURL, Stage: stage, Err: ErrNoLinks}
	}

	requests := make([]types.RequestContext, 0, len(links))
	for _, link := range links {
		requests = append(requests, types.RequestContext{
			MainURL:    rc.TargetURL,
			TargetURL:  link,
			FetchURL:   builder.Build(link),
			Credential: rc.Credential,
		})
	}
	return requests, nil
}

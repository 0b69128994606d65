package detail

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/shouni/go-gazette-scraper/pkg/types"
)

// ----------------------------------------------------------------------
// 定数定義 (解析関連のみ)
// ----------------------------------------------------------------------
const (
	titleSeparator = " | "

	// primaryBodySelector は告示本文の主セレクター、fallbackBodySelector は旧レイアウト用です。
	primaryBodySelector  = `div[data-gazettes="P"] > p[data-gazettes="Text"]`
	fallbackBodySelector = `div[data-gazettes="Notice"] p`

	detailKeySelector   = "dt"
	detailValueSelector = "dd"

	// timelineSentinel は dd 内に埋め込まれるリンク文言で、値としては扱わない。
	timelineSentinel = "Notice timeline for company number"
)

// 項目ラベル (末尾のコロンを含む完全一致)
const (
	LabelType                = "Type:"
	LabelNoticeType          = "Notice type:"
	LabelPublicationDate     = "Publication date:"
	LabelEarliestPublishDate = "Earliest publish date:"
	LabelEdition             = "Edition:"
	LabelNoticeID            = "Notice ID:"
	LabelCompanyNumber       = "Company number:"
	LabelNoticeCode          = "Notice code:"
)

var (
	// ErrMissingTitle は、ページタイトルが取得できない場合のエラーです。
	ErrMissingTitle = errors.New("ページタイトルが見つかりません")
	// ErrDetailCountMismatch は、dt と dd の数が一致しない場合のエラーです。
	ErrDetailCountMismatch = errors.New("dt と dd の数が一致しません")
)

// Parser は詳細ページから告示レコードを抽出します。状態を持たず並行利用が可能です。
type Parser struct{}

// NewParser は Parser を初期化します。
func NewParser() *Parser {
	return &Parser{}
}

// Parse は詳細ページのHTMLを解析し、NoticeRecord を返します。
// 解析に失敗した場合は *types.ParseError を返し、レコードは生成しません。
func (p *Parser) Parse(body []byte, rc types.RequestContext) (*types.NoticeRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, p.fail(rc, fmt.Errorf("HTML解析に失敗しました: %w", err))
	}
	return p.ParseDocument(doc, rc)
}

// ParseDocument は goquery.Document から NoticeRecord を組み立てます。
func (p *Parser) ParseDocument(doc *goquery.Document, rc types.RequestContext) (*types.NoticeRecord, error) {
	// 1. タイトル
	title, err := extractTitle(doc)
	if err != nil {
		return nil, p.fail(rc, err)
	}

	// 2. 本文 (主セレクターで見つからなければ旧レイアウトのセレクター)
	description := extractDescription(doc)

	// 3. dt/dd の項目
	details, err := extractDetails(doc)
	if err != nil {
		return nil, p.fail(rc, err)
	}

	// 4. 5. レコードの組み立て
	record := &types.NoticeRecord{
		MainURL:     rc.MainURL,
		URL:         rc.TargetURL,
		Title:       types.StringPtr(title),
		Description: description,
	}
	if len(details) > 0 {
		record.NoticeDetails = details
		record.Type = lookup(details, LabelType)
		record.NoticeType = lookup(details, LabelNoticeType)
		record.PublicationDate = lookup(details, LabelPublicationDate, LabelEarliestPublishDate)
		record.Edition = lookup(details, LabelEdition)
		record.NoticeID = lookup(details, LabelNoticeID)
		record.CompanyNumber = lookup(details, LabelCompanyNumber)
		record.NoticeCode = lookup(details, LabelNoticeCode)
	}
	return record, nil
}

func (p *Parser) fail(rc types.RequestContext, err error) error {
	return &types.ParseError{URL: rc.TargetURL, Stage: types.StageDetail, Err: err}
}

// extractTitle は <title> の " | " より前の部分を返します。
func extractTitle(doc *goquery.Document) (string, error) {
	raw := doc.Find("title").First().Text()
	before, _, _ := strings.Cut(raw, titleSeparator)
	title := strings.TrimSpace(before)
	if title == "" {
		return "", ErrMissingTitle
	}
	return title, nil
}

// extractDescription は本文の段落を正規化して返します。空の段落は除外します。
func extractDescription(doc *goquery.Document) []string {
	paragraphs := doc.Find(primaryBodySelector)
	if paragraphs.Length() == 0 {
		paragraphs = doc.Find(fallbackBodySelector)
	}

	description := make([]string, 0, paragraphs.Length())
	paragraphs.Each(func(_ int, s *goquery.Selection) {
		if text := normalizeText(s.Text()); text != "" {
			description = append(description, text)
		}
	})
	return description
}

// extractDetails は dt をキー、dd を値として対応付けます。
// 件数が一致しない場合は位置ずれを避けるためエラーとします。
func extractDetails(doc *goquery.Document) (map[string]string, error) {
	keys := doc.Find(detailKeySelector)
	values := doc.Find(detailValueSelector)
	if keys.Length() != values.Length() {
		return nil, fmt.Errorf("%w (dt: %d, dd: %d)", ErrDetailCountMismatch, keys.Length(), values.Length())
	}

	details := make(map[string]string, keys.Length())
	keys.Each(func(i int, s *goquery.Selection) {
		key := normalizeText(s.Text())
		if key == "" {
			return
		}
		// 値が空のものは未取得として扱う
		if value := valueText(values.Eq(i)); value != "" {
			details[key] = value
		}
	})
	return details, nil
}

// valueText は dd 内のテキストノードを正規化し、空ノードとタイムラインの文言を除いて結合します。
func valueText(s *goquery.Selection) string {
	var parts []string
	for _, n := range s.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		text := normalizeText(n.Data)
		if text != "" && text != timelineSentinel {
			*parts = append(*parts, text)
		}
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// lookup は最初に見つかったラベルの値を返します。
func lookup(details map[string]string, labels ...string) *string {
	for _, label := range labels {
		if v, ok := details[label]; ok && v != "" {
			return types.StringPtr(v)
		}
	}
	return nil
}

// normalizeText は連続する空白を1つにまとめ、前後の空白を除去します。
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

package types

import (
	"errors"
	"fmt"
)

// RequestContext は、リクエスト生成からレスポンスを処理するパーサーまで引き継がれる不変の値です。
// 値渡しで受け渡し、生成後に変更してはいけません。
type RequestContext struct {
	MainURL    string // 起点となった一覧ページのURL (プロキシ変換前)
	TargetURL  string // 取得対象ページのURL (プロキシ変換前)
	FetchURL   string // 実際に取得するURL (プロキシ経由)
	Credential string // プロキシのAPIキー
}

// NoticeRecord は、詳細ページ1件から抽出された告示レコードです。
// MainURL と URL 以外のフィールドは nil (未取得) を許容します。
type NoticeRecord struct {
	MainURL         string            `json:"main_url"`
	URL             string            `json:"url"`
	Title           *string           `json:"title,omitempty"`
	Description     []string          `json:"description,omitempty"`
	NoticeDetails   map[string]string `json:"notice_details,omitempty"`
	Type            *string           `json:"type,omitempty"`
	NoticeType      *string           `json:"notice_type,omitempty"`
	PublicationDate *string           `json:"publication_date,omitempty"`
	Edition         *string           `json:"edition,omitempty"`
	NoticeID        *string           `json:"notice_id,omitempty"`
	CompanyNumber   *string           `json:"company_number,omitempty"`
	NoticeCode      *string           `json:"notice_code,omitempty"`
}

// Stage は、パイプライン上の処理段階を表します。
type Stage string

const (
	StageListing Stage = "listing"
	StageDetail  Stage = "detail"
	StageFeed    Stage = "feed"
)

// ParseError は、1ページ分の解析失敗を表します。
// 呼び出し元はログに記録した上でそのページを破棄し、処理を継続します。
type ParseError struct {
	URL   string
	Stage Stage
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s ページの解析に失敗しました (URL: %s): %v", e.Stage, e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError は err が ParseError を含むかどうかを判定します。
func IsParseError(err error) bool {
	var pErr *ParseError
	return errors.As(err, &pErr)
}

// Result は、特定のURLの処理結果、またはその処理中に発生したエラーを保持します。
// Engine の実行サマリーで利用されます。
type Result struct {
	URL   string
	Stage Stage
	Error error
}

// StringPtr は s のポインタを返します。
func StringPtr(s string) *string {
	return &s
}

// Deref は p が nil の場合に空文字列を返します。
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

package proxy

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultEndpoint は、プロキシ (ScraperAPI) のデフォルトエンドポイントです。
const DefaultEndpoint = "http://api.scraperapi.com/"

// ErrMissingCredential は、APIキーが未設定の場合に返されます。
// リクエスト生成前に検出されるべき設定エラーです。
var ErrMissingCredential = errors.New("プロキシのAPIキーが設定されていません")

// Build は、targetURL をプロキシ経由で取得するためのURLを生成します。
func Build(targetURL, credential string) (string, error) {
	return buildWithEndpoint(DefaultEndpoint, targetURL, credential)
}

func buildWithEndpoint(endpoint, targetURL, credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", ErrMissingCredential
	}
	payload := url.Values{}
	payload.Set("api_key", credential)
	payload.Set("url", targetURL)
	// url.Values.Encode はキー順 (api_key, url) で出力する
	return endpoint + "?" + payload.Encode(), nil
}

// Builder は、検証済みのエンドポイントとAPIキーを保持するURLビルダーです。
type Builder struct {
	endpoint   string
	credential string
}

// NewBuilder は Builder を初期化します。APIキーが空の場合は ErrMissingCredential を返します。
func NewBuilder(endpoint, credential string) (*Builder, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, ErrMissingCredential
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("プロキシエンドポイントのパースエラー: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("無効なプロキシエンドポイントです。httpまたはhttpsを指定してください: %s", endpoint)
	}
	return &Builder{endpoint: endpoint, credential: credential}, nil
}

// Build は targetURL のプロキシURLを返します。
func (b *Builder) Build(targetURL string) string {
	// NewBuilder で検証済みのため失敗しない
	u, _ := buildWithEndpoint(b.endpoint, targetURL, b.credential)
	return u
}

// Credential は保持しているAPIキーを返します。
func (b *Builder) Credential() string {
	return b.credential
}

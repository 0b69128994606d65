package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"go.uber.org/zap"

	"github.com/shouni/go-gazette-scraper/pkg/retry"
)

const (
	// HTTPクライアント関連の定数
	DefaultHTTPTimeout = 30 * time.Second

	// サイトからのブロックを避けるためのUser-Agent
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
)

// errTooManyRequests はプロキシが 429 を返したことを示します。
var errTooManyRequests = errors.New("HTTPステータスコード 429 (Too Many Requests)")

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースを定義します。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client は httpkit.Client に渡す Doer です。
// 共通ヘッダーの付与とリクエストのログ出力を行い、429 応答は指数バックオフで再送します。
// 5xx とネットワークエラーのリトライは httpkit.Client 側が担当します。
type Client struct {
	httpClient  Doer
	retryConfig retry.Config
	logger      *zap.Logger
}

// ClientOption はClientの設定を行うための関数型です。
type ClientOption func(*Client)

// WithHTTPClient はカスタムのDoerを設定します。
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithRetryConfig は 429 応答に対するリトライ設定を置き換えます。
func WithRetryConfig(cfg retry.Config) ClientOption {
	return func(c *Client) {
		c.retryConfig = cfg
	}
}

// WithLogger はログ出力先を設定します。
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New は、新しいClientを生成します。
func New(timeout time.Duration, options ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		retryConfig: retry.DefaultConfig(),
		logger:      zap.NewNop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// NewFetcher は Client を Doer とする httpkit.Client を生成します。
// 返される値は FetchBytes(ctx, url) を持ち、各パッケージの Fetcher を満たします。
func NewFetcher(timeout time.Duration, maxRetries uint64, options ...ClientOption) *httpkit.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return httpkit.New(timeout,
		httpkit.WithMaxRetries(maxRetries),
		httpkit.WithHTTPClient(New(timeout, options...)),
	)
}

// Do はリクエストを送信します。
// 429 応答はリトライ上限まで再送し、上限に達した場合は最後の応答をそのまま返します。
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/atom+xml;q=0.9,*/*;q=0.8")

	var (
		resp    *http.Response
		doErr   error
		attempt int
	)

	op := func() error {
		attempt++
		start := time.Now()
		r, err := c.httpClient.Do(req)
		if err != nil {
			// ネットワークエラーは httpkit 側でリトライされる
			doErr = err
			return nil
		}
		c.logger.Debug("HTTPリクエストを送信しました",
			zap.String("url", req.URL.String()),
			zap.Int("status", r.StatusCode),
			zap.Int("attempt", attempt),
			zap.Duration("elapsed", time.Since(start)),
		)
		resp = r
		if r.StatusCode == http.StatusTooManyRequests {
			return errTooManyRequests
		}
		return nil
	}

	cfg := c.retryConfig
	cfg.OnRetry = func(err error, wait time.Duration) {
		if resp != nil {
			resp.Body.Close()
			resp = nil
		}
		c.logger.Debug("リクエストをリトライします",
			zap.String("url", req.URL.String()),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := retry.Do(req.Context(), cfg, fmt.Sprintf("URL(%s)へのリクエスト", req.URL), op, isTooManyRequests)
	if doErr != nil {
		return nil, doErr
	}
	if err != nil {
		if errors.Is(err, errTooManyRequests) && resp != nil {
			// 上限到達後の 429 は通常の 4xx 応答として httpkit に渡す
			return resp, nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

// isTooManyRequests は retry.ShouldRetryFunc 型のシグネチャを満たします。
func isTooManyRequests(err error) bool {
	return errors.Is(err, errTooManyRequests)
}

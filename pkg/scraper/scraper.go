package scraper

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-gazette-scraper/pkg/types"
)

const (
	// DefaultMaxConcurrency は、並列スクレイピングのデフォルトの最大同時実行数を定義します。
	DefaultMaxConcurrency = 6
	// DefaultScrapeRateLimit は、リクエスト間の最小間隔のデフォルト値です。
	DefaultScrapeRateLimit = 1000 * time.Millisecond
	// DefaultRateBurst はレートリミッターのバースト数のデフォルト値です。
	DefaultRateBurst = 2
)

// Fetcher はURLからレスポンスボディを取得します。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// ListingParser は一覧ページから詳細ページのリクエストを生成します。
type ListingParser interface {
	Parse(body []byte, rc types.RequestContext) ([]types.RequestContext, error)
}

// DetailParser は詳細ページから NoticeRecord を抽出します。
type DetailParser interface {
	Parse(body []byte, rc types.RequestContext) (*types.NoticeRecord, error)
}

// Sink は抽出されたレコードの出力先です。並行呼び出しに対して安全である必要があります。
type Sink interface {
	Write(record *types.NoticeRecord) error
}

// Stats は1回の実行結果の集計です。
type Stats struct {
	ListingPages  int
	Links         int
	Records       int
	FetchFailures int
	ParseFailures int
	// Failures は失敗したリクエストの一覧です。
	Failures []types.Result
}

// Failed は失敗件数の合計を返します。
func (s Stats) Failed() int {
	return s.FetchFailures + s.ParseFailures
}

// Engine は一覧ページと詳細ページの取得・解析を並列に実行します。
type Engine struct {
	fetcher        Fetcher
	listing        ListingParser
	detail         DetailParser
	sink           Sink
	logger         *zap.Logger
	maxConcurrency int
	limiter        *rate.Limiter
}

// Option は Engine の設定を変更します。
type Option func(*Engine)

// WithMaxConcurrency は最大同時実行数を設定します。0以下の値は無視されます。
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// WithRateLimit は全リクエスト共通のレート (req/s) とバースト数を設定します。
// perSecond が0以下の場合はレート制限を行いません。
func WithRateLimit(perSecond float64, burst int) Option {
	return func(e *Engine) {
		if perSecond <= 0 {
			e.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine は Engine を初期化します。
func NewEngine(fetcher Fetcher, listing ListingParser, detail DetailParser, sink Sink, opts ...Option) (*Engine, error) {
	if fetcher == nil || listing == nil || detail == nil || sink == nil {
		return nil, errors.New("scraper.NewEngine: fetcher, listing, detail, sink はすべて必須です")
	}
	e := &Engine{
		fetcher:        fetcher,
		listing:        listing,
		detail:         detail,
		sink:           sink,
		logger:         zap.NewNop(),
		maxConcurrency: DefaultMaxConcurrency,
		limiter:        rate.NewLimiter(rate.Every(DefaultScrapeRateLimit), DefaultRateBurst),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// collector はワーカー間で共有される集計値です。
type collector struct {
	mu    sync.Mutex
	stats Stats
}

func (c *collector) update(fn func(s *Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.stats)
}

func (c *collector) fail(rc types.RequestContext, stage types.Stage, err error) {
	c.update(func(s *Stats) {
		if types.IsParseError(err) {
			s.ParseFailures++
		} else {
			s.FetchFailures++
		}
		s.Failures = append(s.Failures, types.Result{URL: rc.TargetURL, Stage: stage, Error: err})
	})
}

// Run は requests の各一覧ページを処理し、抽出したレコードを Sink に書き込みます。
// 個々のリクエストの失敗はログに記録して集計するのみで、他のリクエストには影響しません。
// Sink への書き込み失敗とコンテキストのキャンセルのみがエラーとして返されます。
func (e *Engine) Run(ctx context.Context, requests iter.Seq[types.RequestContext]) (Stats, error) {
	c := &collector{}
	g, gctx := errgroup.WithContext(ctx)
	details := make(chan types.RequestContext, e.maxConcurrency)

	// 1. 詳細ページのワーカープール
	for i := 0; i < e.maxConcurrency; i++ {
		g.Go(func() error {
			for rc := range details {
				if err := e.processDetail(gctx, rc, c); err != nil {
					return err
				}
			}
			return nil
		})
	}

	// 2. 一覧ページの取得 (同時実行数を SetLimit で制限)
	g.Go(func() error {
		defer close(details)

		var listings errgroup.Group
		listings.SetLimit(e.maxConcurrency)
		for rc := range requests {
			if gctx.Err() != nil {
				break
			}
			listings.Go(func() error {
				for _, next := range e.processListing(gctx, rc, c) {
					select {
					case details <- next:
					case <-gctx.Done():
						return nil
					}
				}
				return nil
			})
		}
		return listings.Wait()
	})

	err := g.Wait()

	c.mu.Lock()
	stats := c.stats
	c.mu.Unlock()

	if err != nil {
		return stats, err
	}
	if ctx.Err() != nil {
		return stats, ctx.Err()
	}
	return stats, nil
}

// processListing は一覧ページを取得・解析し、詳細ページのリクエストを返します。
func (e *Engine) processListing(ctx context.Context, rc types.RequestContext, c *collector) []types.RequestContext {
	body, err := e.fetch(ctx, rc)
	if err != nil {
		e.handleFailure(rc, types.StageListing, err, c)
		return nil
	}

	links, err := e.listing.Parse(body, rc)
	if err != nil {
		e.handleFailure(rc, types.StageListing, err, c)
		return nil
	}

	e.logger.Debug("一覧ページを処理しました", zap.String("url", rc.TargetURL), zap.Int("links", len(links)))
	c.update(func(s *Stats) {
		s.ListingPages++
		s.Links += len(links)
	})
	return links
}

// processDetail は詳細ページを取得・解析し、Sink に書き込みます。
// Sink のエラーのみを返します。
func (e *Engine) processDetail(ctx context.Context, rc types.RequestContext, c *collector) error {
	if ctx.Err() != nil {
		return nil
	}

	body, err := e.fetch(ctx, rc)
	if err != nil {
		e.handleFailure(rc, types.StageDetail, err, c)
		return nil
	}

	record, err := e.detail.Parse(body, rc)
	if err != nil {
		e.handleFailure(rc, types.StageDetail, err, c)
		return nil
	}

	if err := e.sink.Write(record); err != nil {
		return fmt.Errorf("レコードの出力に失敗しました (URL: %s): %w", rc.TargetURL, err)
	}

	e.logger.Debug("レコードを出力しました", zap.String("url", rc.TargetURL), zap.String("title", types.Deref(record.Title)))
	c.update(func(s *Stats) { s.Records++ })
	return nil
}

func (e *Engine) fetch(ctx context.Context, rc types.RequestContext) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.fetcher.FetchBytes(ctx, rc.FetchURL)
}

// handleFailure は失敗をログに記録して集計します。
func (e *Engine) handleFailure(rc types.RequestContext, stage types.Stage, err error, c *collector) {
	// キャンセルによる中断は失敗として扱わない
	if errors.Is(err, context.Canceled) {
		return
	}
	c.fail(rc, stage, err)

	msg := "ページの取得に失敗しました"
	if types.IsParseError(err) {
		msg = "ページの解析に失敗しました"
	}
	e.logger.Warn(msg,
		zap.String("url", rc.TargetURL),
		zap.String("stage", string(stage)),
		zap.Error(err),
	)
}

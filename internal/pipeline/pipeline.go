package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"go.uber.org/zap"

	"github.com/shouni/go-gazette-scraper/internal/config"
	"github.com/shouni/go-gazette-scraper/pkg/detail"
	"github.com/shouni/go-gazette-scraper/pkg/feed"
	"github.com/shouni/go-gazette-scraper/pkg/httpclient"
	"github.com/shouni/go-gazette-scraper/pkg/listing"
	"github.com/shouni/go-gazette-scraper/pkg/output"
	"github.com/shouni/go-gazette-scraper/pkg/pagination"
	"github.com/shouni/go-gazette-scraper/pkg/proxy"
	"github.com/shouni/go-gazette-scraper/pkg/retry"
	"github.com/shouni/go-gazette-scraper/pkg/scraper"
	"github.com/shouni/go-gazette-scraper/pkg/types"
)

// Summary はクロール1回分の実行結果です。
type Summary struct {
	scraper.Stats
	OutputPath string
}

// NewFetcher は設定に従って httpkit のフェッチャーを生成します。
func NewFetcher(cfg *config.Config, logger *zap.Logger) *httpkit.Client {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries
	return httpclient.NewFetcher(cfg.Timeout, cfg.MaxRetries,
		httpclient.WithRetryConfig(retryCfg),
		httpclient.WithLogger(logger),
	)
}

// newBuilder はプロキシURLビルダーを生成します。APIキー未設定は設定エラーとして扱います。
func newBuilder(cfg *config.Config) (*proxy.Builder, error) {
	builder, err := proxy.NewBuilder(cfg.ProxyEndpoint, cfg.APIKey)
	if err != nil {
		if errors.Is(err, proxy.ErrMissingCredential) {
			return nil, fmt.Errorf("%w: %w", config.ErrMissingAPIKey, err)
		}
		return nil, fmt.Errorf("プロキシ設定エラー: %w", err)
	}
	return builder, nil
}

// newGenerator は設定に従って一覧ページのジェネレーターを生成します。
func newGenerator(cfg *config.Config, builder *proxy.Builder) *pagination.Generator {
	gen := pagination.NewGenerator(builder, cfg.Pages)
	if cfg.PageSize > 0 {
		gen.PageSize = cfg.PageSize
	}
	if cfg.CategoryCode != "" {
		gen.CategoryCode = cfg.CategoryCode
	}
	if cfg.Discovery == config.DiscoveryFeed {
		gen.Template = pagination.FeedListing
	}
	return gen
}

func newListingParser(cfg *config.Config, builder *proxy.Builder) (scraper.ListingParser, error) {
	if cfg.Discovery == config.DiscoveryFeed {
		return listing.NewFeedParser(builder)
	}
	return listing.NewParser(builder)
}

// Run は一覧ページの巡回から詳細ページの抽出、出力までの一連の処理を実行します。
// 設定エラーの場合はリクエストを1件も生成せずにエラーを返します。
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (summary Summary, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// 1. 設定の検証
	if err := cfg.Validate(); err != nil {
		return summary, err
	}
	builder, err := newBuilder(cfg)
	if err != nil {
		return summary, err
	}
	format, err := output.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return summary, err
	}

	// 2. 依存性の初期化
	listingParser, err := newListingParser(cfg, builder)
	if err != nil {
		return summary, err
	}

	summary.OutputPath = cfg.OutputPath
	if summary.OutputPath == "" {
		summary.OutputPath = output.DefaultPath("", format, time.Now())
	}
	sink, err := output.Open(format, summary.OutputPath)
	if err != nil {
		return summary, err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("出力ファイルのクローズに失敗しました: %w", cerr)
		}
	}()

	engine, err := scraper.NewEngine(
		NewFetcher(cfg, logger),
		listingParser,
		detail.NewParser(),
		sink,
		scraper.WithMaxConcurrency(cfg.Concurrency),
		scraper.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		scraper.WithLogger(logger),
	)
	if err != nil {
		return summary, err
	}

	// 3. 実行
	logger.Info(fmt.Sprintf("start getting notice details for first %d pages", cfg.Pages),
		zap.String("discovery", cfg.Discovery),
		zap.Int("concurrency", cfg.Concurrency),
		zap.String("output", summary.OutputPath),
	)

	summary.Stats, err = engine.Run(ctx, newGenerator(cfg, builder).Requests())
	if err != nil {
		return summary, fmt.Errorf("クロールの実行エラー: %w", err)
	}

	logger.Info("クロールが完了しました",
		zap.Int("listing_pages", summary.ListingPages),
		zap.Int("links", summary.Links),
		zap.Int("records", summary.Records),
		zap.Int("fetch_failures", summary.FetchFailures),
		zap.Int("parse_failures", summary.ParseFailures),
	)
	return summary, nil
}

// ExtractNotice は詳細ページ1件をプロキシ経由で取得し、NoticeRecord を返します。
func ExtractNotice(ctx context.Context, cfg *config.Config, logger *zap.Logger, targetURL string) (*types.NoticeRecord, error) {
	builder, err := newBuilder(cfg)
	if err != nil {
		return nil, err
	}

	extractor, err := detail.NewExtractor(NewFetcher(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("Extractorの初期化エラー: %w", err)
	}

	rc := types.RequestContext{
		MainURL:    targetURL,
		TargetURL:  targetURL,
		FetchURL:   builder.Build(targetURL),
		Credential: builder.Credential(),
	}
	record, err := extractor.FetchAndParse(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("告示の抽出エラー: %w", err)
	}
	return record, nil
}

// FeedLinks は指定ページのフィードを取得し、詳細ページのURLを発見順に返します。
func FeedLinks(ctx context.Context, cfg *config.Config, logger *zap.Logger, page int) (feedURL string, links []string, err error) {
	builder, err := newBuilder(cfg)
	if err != nil {
		return "", nil, err
	}

	feedCfg := *cfg
	feedCfg.Discovery = config.DiscoveryFeed
	gen := newGenerator(&feedCfg, builder)
	feedURL = gen.ListingURL(page)

	parser := feed.NewParser(NewFetcher(cfg, logger))
	parsed, err := parser.FetchAndParse(ctx, builder.Build(feedURL))
	if err != nil {
		return feedURL, nil, err
	}
	return feedURL, feed.GetAllLinks(feed.NewFeedAdapter(parsed)), nil
}

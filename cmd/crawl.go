package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shouni/go-gazette-scraper/internal/config"
	"github.com/shouni/go-gazette-scraper/internal/pipeline"
	"github.com/shouni/go-gazette-scraper/pkg/pagination"
	"github.com/shouni/go-gazette-scraper/pkg/scraper"
)

// コマンドラインフラグ変数を定義
var crawlFlags struct {
	pages       int
	concurrency int
	discovery   string
	format      string
	output      string
	rate        float64
}

// printSummary は実行結果の集計を表示します。
func printSummary(summary pipeline.Summary) {
	fmt.Println("--- クロール結果 ---")
	fmt.Printf("一覧ページ: %d 件, 発見リンク: %d 件\n", summary.ListingPages, summary.Links)

	for i, res := range summary.Failures {
		fmt.Printf("❌ [%d] (%s) %s\n", i+1, res.Stage, res.URL)
		fmt.Printf("     エラー: %v\n", res.Error)
	}

	fmt.Println("-------------------------------")
	fmt.Printf("出力先: %s\n", summary.OutputPath)
	fmt.Printf("完了: 成功 %d 件, 失敗 %d 件 (取得失敗 %d 件, 解析失敗 %d 件)\n",
		summary.Records, summary.Failed(), summary.FetchFailures, summary.ParseFailures)
}

// applyCrawlFlags は明示的に指定されたフラグで設定を上書きします。
// 設定ファイルと同様に discovery と format は小文字に揃えます。
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("pages") {
		cfg.Pages = crawlFlags.pages
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = crawlFlags.concurrency
	}
	if flags.Changed("discovery") {
		cfg.Discovery = strings.ToLower(strings.TrimSpace(crawlFlags.discovery))
	}
	if flags.Changed("format") {
		cfg.OutputFormat = strings.ToLower(strings.TrimSpace(crawlFlags.format))
	}
	if flags.Changed("output") {
		cfg.OutputPath = crawlFlags.output
	}
	if flags.Changed("rate") {
		cfg.RateLimit = crawlFlags.rate
	}
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "告示一覧を巡回し、各告示の詳細を抽出してファイルに出力します",
	Long: `破産・清算関連の告示一覧ページ (またはAtomフィード) を指定ページ数だけ巡回し、
各告示の詳細ページからタイトル・本文・詳細項目を抽出して CSV / JSONL / SQLite に出力します。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if cfg == nil {
			return fmt.Errorf("設定が初期化されていません。rootコマンドのPreRunを確認してください")
		}

		// 1. フラグによる上書き
		applyCrawlFlags(cmd, cfg)

		// 2. 割り込みで中断できるコンテキスト
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// 3. メインロジックの実行
		summary, err := pipeline.Run(ctx, cfg, appLogger)
		if err != nil {
			if summary.OutputPath != "" {
				printSummary(summary)
			}
			return err
		}

		printSummary(summary)
		return nil
	},
}

func init() {
	crawlCmd.Flags().IntVarP(&crawlFlags.pages, "pages", "p", pagination.DefaultPages,
		"巡回する一覧ページ数")
	crawlCmd.Flags().IntVarP(&crawlFlags.concurrency, "concurrency", "c", scraper.DefaultMaxConcurrency,
		fmt.Sprintf("最大並列実行数 (デフォルト: %d)", scraper.DefaultMaxConcurrency))
	crawlCmd.Flags().StringVar(&crawlFlags.discovery, "discovery", "html",
		"一覧の取得方法 (html または feed)")
	crawlCmd.Flags().StringVar(&crawlFlags.format, "format", "csv",
		"出力形式 (csv, jsonl, sqlite)")
	crawlCmd.Flags().StringVarP(&crawlFlags.output, "output", "o", "",
		"出力ファイルのパス (未指定時は output_YYYY-MM-DD_HH-MM-SS.<拡張子>)")
	crawlCmd.Flags().Float64Var(&crawlFlags.rate, "rate", 1,
		"1秒あたりの最大リクエスト数 (0 で無制限)")
}

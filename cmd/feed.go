package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-gazette-scraper/internal/pipeline"
)

var feedPage int

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "告示一覧のAtomフィードを取得し、詳細ページのURLを一覧表示します",
	Long:  `指定ページの告示一覧をAtomフィードとして取得・解析し、各告示の詳細ページURLを発見順に表示します。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if cfg == nil {
			return fmt.Errorf("設定が初期化されていません。rootコマンドのPreRunを確認してください")
		}
		if feedPage <= 0 {
			return fmt.Errorf("ページ番号は1以上を指定してください: %d", feedPage)
		}

		timeout := overallTimeout(cfg)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// 1. メインロジックの実行
		feedURL, links, err := pipeline.FeedLinks(ctx, cfg, appLogger, feedPage)
		if err != nil {
			return fmt.Errorf("フィード解析パイプラインの実行エラー: %w", err)
		}
		appLogger.Debug("フィードを解析しました", zap.String("url", feedURL), zap.Int("links", len(links)))

		// 2. 結果の出力
		fmt.Printf("--- フィード解析結果 ---\n")
		fmt.Printf("フィードURL: %s\n", feedURL)
		fmt.Printf("合計リンク数: %d\n", len(links))
		fmt.Println("-----------------------")
		for i, link := range links {
			fmt.Printf("[%d] %s\n", i+1, link)
		}
		fmt.Println()

		return nil
	},
}

func init() {
	feedCmd.Flags().IntVarP(&feedPage, "page", "p", 1, "取得する一覧ページ番号")
}

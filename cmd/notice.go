package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-gazette-scraper/internal/pipeline"
)

var noticeURL string

var noticeCmd = &cobra.Command{
	Use:   "notice [URL | 告示ID]",
	Short: "告示の詳細ページを1件取得し、抽出結果をJSONで表示します",
	Long:  `指定された告示の詳細ページをプロキシ経由で取得し、タイトル・本文・詳細項目を抽出してJSONで標準出力に表示します。`,
	Args:  cobra.MaximumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if cfg == nil {
			return fmt.Errorf("設定が初期化されていません。rootコマンドのPreRunを確認してください")
		}

		// 1. 処理対象URLの決定 (フラグ優先)
		target := noticeURL
		if target == "" && len(args) > 0 {
			target = args[0]
		}
		if target == "" {
			return fmt.Errorf("告示のURLまたはIDを指定してください")
		}

		// 2. URLのスキーム補完とバリデーション
		processedURL, err := resolveNoticeURL(target)
		if err != nil {
			return fmt.Errorf("URLの処理エラー: %w", err)
		}

		timeout := overallTimeout(cfg)
		appLogger.Info("告示を取得します", zap.String("url", processedURL), zap.Duration("timeout", timeout))

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// 3. メインロジックの実行
		record, err := pipeline.ExtractNotice(ctx, cfg, appLogger, processedURL)
		if err != nil {
			return err
		}

		// 4. 結果の出力
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(record)
	},
}

func init() {
	noticeCmd.Flags().StringVarP(&noticeURL, "url", "u", "", "抽出対象の告示URL")
}

package cmd

import (
	"fmt"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-gazette-scraper/internal/config"
	"github.com/shouni/go-gazette-scraper/internal/logger"
)

// --- グローバル定数 ---

const (
	appName = "gazette-scraper"

	// 全体処理のタイムアウトはクライアントタイムアウトの倍数で決める (notice, feed で利用)
	overallTimeoutFactor = 2
	// DefaultOverallTimeout はクライアントタイムアウトが 0 の場合の全体タイムアウトです。
	DefaultOverallTimeout = 60 * time.Second
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	ConfigFile string // --config 設定ファイル
	TimeoutSec int    // --timeout タイムアウト
	MaxRetries int    // --max-retries リトライ回数
	LogLevel   string // --log-level ログレベル
}

var Flags AppFlags

var (
	appConfig *config.Config
	appLogger = zap.NewNop()
)

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVarP(
		&Flags.ConfigFile,
		"config", "f", "",
		"設定ファイルのパス (未指定時は ./config.ini を読み込み)",
	)
	rootCmd.PersistentFlags().IntVar(
		&Flags.TimeoutSec,
		"timeout",
		30,
		"HTTPリクエストのタイムアウト時間（秒）",
	)
	rootCmd.PersistentFlags().IntVar(
		&Flags.MaxRetries,
		"max-retries",
		3,
		"HTTPリクエストのリトライ最大回数",
	)
	rootCmd.PersistentFlags().StringVar(
		&Flags.LogLevel,
		"log-level",
		"",
		"ログレベル (debug, info, warn, error)",
	)
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// NOTE: clibaseの PersistentPreRunE チェーンにより、clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	// 1. 設定の読み込み
	cfg, err := config.Load(Flags.ConfigFile)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	// 2. フラグによる上書き (明示的に指定された場合のみ)
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = time.Duration(Flags.TimeoutSec) * time.Second
	}
	if cmd.Flags().Changed("max-retries") && Flags.MaxRetries >= 0 {
		cfg.MaxRetries = uint64(Flags.MaxRetries)
	}
	if Flags.LogLevel != "" {
		cfg.LogLevel = Flags.LogLevel
	}
	if clibase.Flags.Verbose {
		cfg.LogLevel = "debug"
	}

	// 3. ロガーの初期化
	l, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: clibase.Flags.Verbose})
	if err != nil {
		return err
	}
	appLogger = l
	appConfig = cfg

	appLogger.Debug("設定を読み込みました",
		zap.Duration("timeout", cfg.Timeout),
		zap.Uint64("max_retries", cfg.MaxRetries),
		zap.String("discovery", cfg.Discovery),
	)
	return nil
}

// overallTimeout は単発コマンドの全体タイムアウトを返します。
func overallTimeout(cfg *config.Config) time.Duration {
	if cfg.Timeout <= 0 {
		return DefaultOverallTimeout
	}
	return cfg.Timeout * overallTimeoutFactor * time.Duration(cfg.MaxRetries+1)
}

// --- エントリポイント ---

// Execute は、clibase を使ってルートコマンドを実行します。
func Execute() {
	defer func() { _ = appLogger.Sync() }()

	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		crawlCmd,
		noticeCmd,
		feedCmd,
	)
}

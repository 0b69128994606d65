// Package logger は zap ロガーの生成を提供します。
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel はデフォルトのログレベルです。
const DefaultLevel = "info"

// Config はロガーの設定です。
type Config struct {
	// Level は最小ログレベル (debug, info, warn, error) です。
	Level string
	// Development が true の場合、人間向けのコンソール形式で出力します。
	Development bool
	// OutputPaths は出力先です。未指定の場合は stderr に出力します。
	OutputPaths []string
}

// New は設定に応じた *zap.Logger を生成します。
func New(cfg Config) (*zap.Logger, error) {
	level := ParseLevel(cfg.Level)

	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapCfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	// 標準出力は notice / feed コマンドの結果出力に使うため、ログは stderr に出す
	zapCfg.OutputPaths = []string{"stderr"}
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}
	zapCfg.Sampling = nil

	z, err := zapCfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("zap ロガーの生成に失敗しました: %w", err)
	}
	return z, nil
}

// ParseLevel は文字列のログレベルを zapcore.Level に変換します。不明な値は info として扱います。
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info", "":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

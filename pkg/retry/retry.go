package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// リトライ関連の定数
	DefaultMaxRetries = 3 // 最大リトライ回数

	// バックオフのカスタム設定
	InitialBackoffInterval = 500 * time.Millisecond
	MaxBackoffInterval     = 5 * time.Second
)

// Operation はリトライ可能な処理を表す関数です。成功時は nil を返します。
type Operation func() error

// ShouldRetryFunc はエラーを受け取り、そのエラーがリトライ可能かどうかを判定する関数です。
type ShouldRetryFunc func(error) bool

// NotifyFunc は、リトライ前に直前のエラーと待機時間を受け取ります。
type NotifyFunc func(err error, wait time.Duration)

// Config はリトライ動作を設定するための構造体です。
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	OnRetry         NotifyFunc // 任意。ログ出力などに利用
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: InitialBackoffInterval,
		MaxInterval:     MaxBackoffInterval,
	}
}

// newBackOffPolicy は Config から指数バックオフのポリシーを生成します。
func newBackOffPolicy(ctx context.Context, cfg Config) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}
	// 経過時間による打ち切りは行わず、回数とコンテキストで制御する
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)
}

// Do は指数バックオフとカスタムエラー判定を使用して操作をリトライします。
func Do(ctx context.Context, cfg Config, operationName string, op Operation, shouldRetryFn ShouldRetryFunc) error {
	bo := newBackOffPolicy(ctx, cfg)

	var (
		lastErr   error
		permanent bool
	)

	retryableOp := func() error {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if shouldRetryFn(err) {
			return err // リトライ対象
		}
		permanent = true
		return backoff.Permanent(err) // 即時終了
	}

	notify := func(err error, wait time.Duration) {
		if cfg.OnRetry != nil {
			cfg.OnRetry(err, wait)
		}
	}

	err := backoff.RetryNotify(retryableOp, bo, notify)
	if err == nil {
		return nil
	}

	// コンテキストキャンセル/タイムアウトのエラー処理
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%sに失敗しました: コンテキストタイムアウト/キャンセル: %w", operationName, err)
	}

	if permanent {
		return fmt.Errorf("%sに失敗しました: 致命的なエラーのためリトライを中止: %w", operationName, lastErr)
	}

	return fmt.Errorf("%sに失敗しました: 最大リトライ回数 (%d回) に到達。最終エラー: %w", operationName, cfg.MaxRetries, lastErr)
}

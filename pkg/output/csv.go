package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/shouni/go-gazette-scraper/pkg/types"
)

// CSVWriter は NoticeRecord を CSV として書き出します。
type CSVWriter struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
}

// NewCSVWriter は w に対してヘッダー行を書き込み、CSVWriter を返します。
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, fmt.Errorf("CSVヘッダーの書き込みに失敗しました: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("CSVヘッダーの書き込みに失敗しました: %w", err)
	}
	c := &CSVWriter{w: cw}
	if closer, ok := w.(io.Closer); ok {
		c.closer = closer
	}
	return c, nil
}

// NewCSVFile は path に CSV ファイルを作成します。
func NewCSVFile(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("出力ファイルの作成に失敗しました (%s): %w", path, err)
	}
	w, err := NewCSVWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// Write は1レコードを1行として書き込みます。
func (c *CSVWriter) Write(record *types.NoticeRecord) error {
	row, err := Row(record)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("CSVの書き込みに失敗しました (URL: %s): %w", record.URL, err)
	}
	// 1件ごとにフラッシュし、途中終了時もそれまでのレコードを残す
	c.w.Flush()
	return c.w.Error()
}

// Close はバッファをフラッシュし、下位の Writer を閉じます。
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/shouni/go-gazette-scraper/pkg/types"
)

// JSONLinesWriter は NoticeRecord を1行1レコードの JSON として書き出します。
type JSONLinesWriter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// NewJSONLinesWriter は w に書き込む JSONLinesWriter を返します。
func NewJSONLinesWriter(w io.Writer) *JSONLinesWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	j := &JSONLinesWriter{enc: enc}
	if closer, ok := w.(io.Closer); ok {
		j.closer = closer
	}
	return j
}

// NewJSONLinesFile は path に JSONL ファイルを作成します。
func NewJSONLinesFile(path string) (*JSONLinesWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("出力ファイルの作成に失敗しました (%s): %w", path, err)
	}
	return NewJSONLinesWriter(f), nil
}

func (j *JSONLinesWriter) Write(record *types.NoticeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.enc.Encode(record); err != nil {
		return fmt.Errorf("JSONの書き込みに失敗しました (URL: %s): %w", record.URL, err)
	}
	return nil
}

func (j *JSONLinesWriter) Close() error {
	if j.closer == nil {
		return nil
	}
	return j.closer.Close()
}

package output

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/go-gazette-scraper/pkg/types"
)

// Format は出力形式を表します。
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSONL  Format = "jsonl"
	FormatSQLite Format = "sqlite"

	// descriptionSeparator は CSV 出力時の本文段落の区切り文字です。
	descriptionSeparator = "\n"
)

// Header は NoticeRecord の出力列 (順序固定) です。
var Header = []string{
	"MAIN_URL", "URL", "title", "description", "notice_details",
	"TYPE", "Notice_type", "Publication_date", "Edition",
	"Notice_ID", "Company_number", "Notice_code",
}

// Writer はレコードの出力先です。Write は並行に呼び出されても安全でなければなりません。
type Writer interface {
	Write(record *types.NoticeRecord) error
	Close() error
}

// ParseFormat は文字列を Format に変換します。
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSONL, FormatSQLite:
		return f, nil
	case "json", "ndjson":
		return FormatJSONL, nil
	case "db", "sqlite3":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("未対応の出力形式です: %s (csv, jsonl, sqlite のいずれかを指定してください)", s)
	}
}

// Extension は出力ファイルの拡張子を返します。
func (f Format) Extension() string {
	switch f {
	case FormatJSONL:
		return ".jsonl"
	case FormatSQLite:
		return ".db"
	default:
		return ".csv"
	}
}

// DefaultPath は output_YYYY-MM-DD_HH-MM-SS.<ext> 形式のファイル名を返します。
func DefaultPath(dir string, f Format, now time.Time) string {
	name := "output_" + now.Format("2006-01-02_15-04-05") + f.Extension()
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// Open は形式に応じた Writer を生成します。
func Open(f Format, path string) (Writer, error) {
	switch f {
	case FormatCSV:
		return NewCSVFile(path)
	case FormatJSONL:
		return NewJSONLinesFile(path)
	case FormatSQLite:
		return NewSQLiteWriter(path)
	default:
		return nil, fmt.Errorf("未対応の出力形式です: %s", f)
	}
}

// Row は NoticeRecord を Header の順序の文字列スライスに変換します。
// 未取得の項目は空文字列になります。
func Row(record *types.NoticeRecord) ([]string, error) {
	details, err := detailsJSON(record.NoticeDetails)
	if err != nil {
		return nil, err
	}
	return []string{
		record.MainURL,
		record.URL,
		types.Deref(record.Title),
		strings.Join(record.Description, descriptionSeparator),
		details,
		types.Deref(record.Type),
		types.Deref(record.NoticeType),
		types.Deref(record.PublicationDate),
		types.Deref(record.Edition),
		types.Deref(record.NoticeID),
		types.Deref(record.CompanyNumber),
		types.Deref(record.NoticeCode),
	}, nil
}

// detailsJSON は notice_details をキー順の JSON オブジェクトに変換します。
func detailsJSON(details map[string]string) (string, error) {
	if len(details) == 0 {
		return "", nil
	}
	// encoding/json は map のキーをソートして出力する
	b, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("notice_details のシリアライズに失敗しました: %w", err)
	}
	return string(b), nil
}

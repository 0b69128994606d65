package output

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shouni/go-gazette-scraper/pkg/types"
)

const createNoticesTable = `
CREATE TABLE IF NOT EXISTS notices (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	main_url         TEXT NOT NULL,
	url              TEXT NOT NULL,
	title            TEXT,
	description      TEXT,
	notice_details   TEXT,
	type             TEXT,
	notice_type      TEXT,
	publication_date TEXT,
	edition          TEXT,
	notice_id        TEXT,
	company_number   TEXT,
	notice_code      TEXT,
	scraped_at       TEXT NOT NULL
)`

const insertNotice = `
INSERT INTO notices (
	main_url, url, title, description, notice_details, type, notice_type,
	publication_date, edition, notice_id, company_number, notice_code, scraped_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteWriter は NoticeRecord を SQLite の notices テーブルに追記します。
// 未取得の項目は NULL として保存されます。
type SQLiteWriter struct {
	mu   sync.Mutex
	pool *sql.DB
	now  func() time.Time
}

// sqliteDSN は path をエスケープした file: URI を返します。
// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
func sqliteDSN(path string) string {
	u := url.URL{
		Scheme:   "file",
		Path:     path,
		OmitHost: true,
		RawQuery: "_pragma=busy_timeout(5000)",
	}
	return u.String()
}

// NewSQLiteWriter は path の SQLite データベースを開き、テーブルを作成します。
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	pool, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("SQLiteのオープンに失敗しました (%s): %w", path, err)
	}
	pool.SetMaxOpenConns(1) // sqlite typically wants 1 writer

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := pool.ExecContext(ctx, createNoticesTable); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("notices テーブルの作成に失敗しました: %w", err)
	}

	return &SQLiteWriter{pool: pool, now: time.Now}, nil
}

func (s *SQLiteWriter) Write(record *types.NoticeRecord) error {
	var description, details any
	if len(record.Description) > 0 {
		b, err := json.Marshal(record.Description)
		if err != nil {
			return fmt.Errorf("description のシリアライズに失敗しました: %w", err)
		}
		description = string(b)
	}
	if len(record.NoticeDetails) > 0 {
		d, err := detailsJSON(record.NoticeDetails)
		if err != nil {
			return err
		}
		details = d
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.pool.Exec(insertNotice,
		record.MainURL,
		record.URL,
		nullable(record.Title),
		description,
		details,
		nullable(record.Type),
		nullable(record.NoticeType),
		nullable(record.PublicationDate),
		nullable(record.Edition),
		nullable(record.NoticeID),
		nullable(record.CompanyNumber),
		nullable(record.NoticeCode),
		s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("notices への書き込みに失敗しました (URL: %s): %w", record.URL, err)
	}
	return nil
}

func (s *SQLiteWriter) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Close()
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

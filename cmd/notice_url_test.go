package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shouni/go-gazette-scraper/internal/config"
)

func TestResolveNoticeURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"告示ID", "4000001", "https://www.thegazette.co.uk/notice/4000001", false},
		{"ルート相対パス", "/notice/4000001", "https://www.thegazette.co.uk/notice/4000001", false},
		{"絶対URL", " https://www.thegazette.co.uk/notice/4000001 ", "https://www.thegazette.co.uk/notice/4000001", false},
		{"http のまま", "http://example.com/notice/1", "http://example.com/notice/1", false},
		{"スキームなし", "www.thegazette.co.uk/notice/1", "https://www.thegazette.co.uk/notice/1", false},
		{"プロトコル相対", "//www.thegazette.co.uk/notice/1", "https://www.thegazette.co.uk/notice/1", false},
		{"無効なスキーム", "ftp://example.com/notice/1", "", true},
		{"空文字列", "  ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveNoticeURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyCrawlFlags_NormalizesCase(t *testing.T) {
	flags := crawlCmd.Flags()
	t.Cleanup(func() {
		for _, name := range []string{"discovery", "format"} {
			f := flags.Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	assert.NoError(t, flags.Parse([]string{"--discovery", "FEED", "--format", "JSONL"}))

	cfg := &config.Config{Discovery: config.DiscoveryHTML, OutputFormat: "csv"}
	applyCrawlFlags(crawlCmd, cfg)

	assert.Equal(t, config.DiscoveryFeed, cfg.Discovery)
	assert.Equal(t, "jsonl", cfg.OutputFormat)
}

func TestOverallTimeout(t *testing.T) {
	assert.Equal(t, DefaultOverallTimeout, overallTimeout(&config.Config{}))
	assert.Equal(t, 80*time.Second, overallTimeout(&config.Config{Timeout: 10 * time.Second, MaxRetries: 3}))
}
